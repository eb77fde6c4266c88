package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/interface/rest/presenter"
	"github.com/okfn/ridl-curation/internal/service"
	"github.com/okfn/ridl-curation/internal/usecase"
)

type Handler struct {
	curation *usecase.CurationUsecase
	access   *usecase.AccessRequestUsecase
	signal   *service.SignalService
}

func NewHandler(
	curation *usecase.CurationUsecase,
	access *usecase.AccessRequestUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		curation: curation,
		access:   access,
		signal:   signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/deposit", h.handleCreateDeposit)
	e.GET("/api/v1/deposit/:id/status", h.handleStatus)
	e.GET("/api/v1/deposit/:id/activities", h.handleActivities)
	e.POST("/api/v1/deposit/:id/submit", h.handleSubmit)
	e.POST("/api/v1/deposit/:id/assign", h.handleAssign)
	e.POST("/api/v1/deposit/:id/request_changes", h.handleRequestChanges)
	e.POST("/api/v1/deposit/:id/request_review", h.handleRequestReview)
	e.POST("/api/v1/deposit/:id/approve", h.handleApprove)
	e.POST("/api/v1/deposit/:id/reject", h.handleReject)
	e.POST("/api/v1/deposit/:id/withdraw", h.handleWithdraw)

	e.POST("/api/v1/access-requests", h.handleCreateAccessRequest)
	e.GET("/api/v1/access-requests", h.handleListAccessRequests)
	e.POST("/api/v1/access-requests/:id/approve", h.handleApproveAccessRequest)
	e.POST("/api/v1/access-requests/:id/reject", h.handleRejectAccessRequest)

	e.GET("/realtime", h.handleRealtime)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// requesterID returns the authenticated user id, empty when anonymous.
func requesterID(c echo.Context) string {
	id, _ := c.Request().Context().Value(domain.RequesterIdCtxKey).(string)
	return id
}

func respondError(c echo.Context, err error) error {
	var vErr domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return presenter.Forbidden(c, err)
	case errors.As(err, &vErr):
		return presenter.Unprocessable(c, vErr)
	default:
		return presenter.InternalError(c, err)
	}
}

type transitionRequest struct {
	Message   string `json:"message"`
	CuratorID string `json:"curator_id"`
}

func (h *Handler) handleCreateDeposit(c echo.Context) error {
	ctx := c.Request().Context()
	uid := requesterID(c)
	if uid == "" {
		return presenter.Unauthorized(c)
	}

	var input usecase.DepositInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	ds, err := h.curation.CreateDeposit(ctx, uid, input)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, ds)
}

func (h *Handler) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	uid := requesterID(c)
	if uid == "" {
		return presenter.Unauthorized(c)
	}

	status, err := h.curation.Status(ctx, c.Param("id"), uid)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, status)
}

func (h *Handler) handleActivities(c echo.Context) error {
	ctx := c.Request().Context()
	uid := requesterID(c)
	if uid == "" {
		return presenter.Unauthorized(c)
	}

	activities, err := h.curation.Activities(ctx, c.Param("id"), uid)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, activities)
}

func (h *Handler) transition(c echo.Context, run func(id, uid string, req transitionRequest) (any, error)) error {
	uid := requesterID(c)
	if uid == "" {
		return presenter.Unauthorized(c)
	}

	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	result, err := run(c.Param("id"), uid, req)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, result)
}

func (h *Handler) handleSubmit(c echo.Context) error {
	ctx := c.Request().Context()
	return h.transition(c, func(id, uid string, req transitionRequest) (any, error) {
		return h.curation.Submit(ctx, id, uid, req.Message)
	})
}

func (h *Handler) handleAssign(c echo.Context) error {
	ctx := c.Request().Context()
	return h.transition(c, func(id, uid string, req transitionRequest) (any, error) {
		return h.curation.Assign(ctx, id, uid, req.CuratorID)
	})
}

func (h *Handler) handleRequestChanges(c echo.Context) error {
	ctx := c.Request().Context()
	return h.transition(c, func(id, uid string, req transitionRequest) (any, error) {
		return h.curation.RequestChanges(ctx, id, uid, req.Message)
	})
}

func (h *Handler) handleRequestReview(c echo.Context) error {
	ctx := c.Request().Context()
	return h.transition(c, func(id, uid string, req transitionRequest) (any, error) {
		return h.curation.RequestReview(ctx, id, uid, req.Message)
	})
}

func (h *Handler) handleApprove(c echo.Context) error {
	ctx := c.Request().Context()
	return h.transition(c, func(id, uid string, req transitionRequest) (any, error) {
		return h.curation.Approve(ctx, id, uid, req.Message)
	})
}

func (h *Handler) handleReject(c echo.Context) error {
	ctx := c.Request().Context()
	return h.transition(c, func(id, uid string, req transitionRequest) (any, error) {
		return h.curation.Reject(ctx, id, uid, req.Message)
	})
}

func (h *Handler) handleWithdraw(c echo.Context) error {
	ctx := c.Request().Context()
	return h.transition(c, func(id, uid string, req transitionRequest) (any, error) {
		return h.curation.Withdraw(ctx, id, uid, req.Message)
	})
}

func (h *Handler) handleCreateAccessRequest(c echo.Context) error {
	ctx := c.Request().Context()
	uid := requesterID(c)
	if uid == "" {
		return presenter.Unauthorized(c)
	}

	var input usecase.AccessRequestInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	req, err := h.access.Create(ctx, uid, input)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, req)
}

func (h *Handler) handleListAccessRequests(c echo.Context) error {
	ctx := c.Request().Context()
	uid := requesterID(c)
	if uid == "" {
		return presenter.Unauthorized(c)
	}

	pending, err := h.access.ListPending(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, pending)
}

func (h *Handler) decideAccessRequest(c echo.Context, decide func(uid string, id int64, message string) (domain.AccessRequest, error)) error {
	uid := requesterID(c)
	if uid == "" {
		return presenter.Unauthorized(c)
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	decided, err := decide(uid, id, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, decided)
}

func (h *Handler) handleApproveAccessRequest(c echo.Context) error {
	ctx := c.Request().Context()
	return h.decideAccessRequest(c, func(uid string, id int64, message string) (domain.AccessRequest, error) {
		return h.access.Approve(ctx, uid, id, message)
	})
}

func (h *Handler) handleRejectAccessRequest(c echo.Context) error {
	ctx := c.Request().Context()
	return h.decideAccessRequest(c, func(uid string, id int64, message string) (domain.AccessRequest, error) {
		return h.access.Reject(ctx, uid, id, message)
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleRealtime streams curation events to the dashboard.
func (h *Handler) handleRealtime(c echo.Context) error {
	if requesterID(c) == "" {
		return presenter.Unauthorized(c)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	output := make(chan domain.CurationEvent)
	go h.signal.Realtime(ctx, output)

	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok && !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
					slog.DebugContext(
						ctx, "WebSocket closed",
						slog.String("error", wsErr.Error()),
						slog.String("module", "socket"),
					)
				}
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-output:
			if err := ws.WriteJSON(event); err != nil {
				slog.ErrorContext(
					ctx, "Error writing event",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
