package usecase

import (
	"context"

	"github.com/pkg/errors"

	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/metrics"
)

// AccessRequestUsecase moderates access requests: create, list pending,
// and a single status flip per request.
type AccessRequestUsecase struct {
	requests   AccessRequestRepository
	datasets   DatasetRepository
	containers ContainerRepository
	users      UserRepository
	dispatcher *Dispatcher
}

func NewAccessRequestUsecase(
	requests AccessRequestRepository,
	datasets DatasetRepository,
	containers ContainerRepository,
	users UserRepository,
	dispatcher *Dispatcher,
) *AccessRequestUsecase {
	return &AccessRequestUsecase{
		requests:   requests,
		datasets:   datasets,
		containers: containers,
		users:      users,
		dispatcher: dispatcher,
	}
}

// AccessRequestInput is the payload for opening a request.
type AccessRequestInput struct {
	ObjectType domain.AccessObjectType `json:"object_type"`
	ObjectID   string                  `json:"object_id"`
	Message    string                  `json:"message"`
	Role       string                  `json:"role"`
}

func (uc *AccessRequestUsecase) Create(ctx context.Context, actingUserID string, input AccessRequestInput) (domain.AccessRequest, error) {
	ctx, span := tracer.Start(ctx, "AccessRequest.Usecase.Create")
	defer span.End()

	switch input.ObjectType {
	case domain.ObjectDataset, domain.ObjectContainer, domain.ObjectUser:
	default:
		fieldErrs := domain.FieldErrors{}
		fieldErrs.Add("object_type", "Must be dataset, organization or user")
		return domain.AccessRequest{}, domain.ValidationError{Fields: fieldErrs}
	}

	approvers, err := uc.approvers(ctx, input.ObjectType, input.ObjectID)
	if err != nil {
		return domain.AccessRequest{}, err
	}

	req := domain.AccessRequest{
		UserID:     actingUserID,
		Message:    input.Message,
		Role:       input.Role,
		Status:     domain.AccessRequested,
		ObjectType: input.ObjectType,
		ObjectID:   input.ObjectID,
	}
	if err := uc.requests.Create(ctx, &req); err != nil {
		return domain.AccessRequest{}, errors.Wrap(err, "create access request failed")
	}

	metrics.AccessRequestsTotal.WithLabelValues(string(domain.AccessRequested)).Inc()
	if uc.dispatcher != nil {
		uc.dispatcher.NotifyAccessRequest(ctx, req, approvers)
	}
	return req, nil
}

// ListPending returns open requests the acting user can decide on.
func (uc *AccessRequestUsecase) ListPending(ctx context.Context, actingUserID string) ([]domain.AccessRequest, error) {
	pending, err := uc.requests.ListPending(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list access requests failed")
	}

	visible := make([]domain.AccessRequest, 0, len(pending))
	for _, req := range pending {
		ok, err := uc.canDecide(ctx, actingUserID, req)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, req)
		}
	}
	return visible, nil
}

// Approve flips a pending request to approved. One flip only.
func (uc *AccessRequestUsecase) Approve(ctx context.Context, actingUserID string, id int64, message string) (domain.AccessRequest, error) {
	return uc.decide(ctx, actingUserID, id, message, domain.AccessApproved)
}

// Reject flips a pending request to rejected.
func (uc *AccessRequestUsecase) Reject(ctx context.Context, actingUserID string, id int64, message string) (domain.AccessRequest, error) {
	return uc.decide(ctx, actingUserID, id, message, domain.AccessRejected)
}

func (uc *AccessRequestUsecase) decide(ctx context.Context, actingUserID string, id int64, message string, status domain.AccessRequestStatus) (domain.AccessRequest, error) {
	ctx, span := tracer.Start(ctx, "AccessRequest.Usecase.Decide")
	defer span.End()

	req, err := uc.requests.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AccessRequest{}, domain.NotFoundError{Resource: "access request"}
		}
		return domain.AccessRequest{}, errors.Wrap(err, "access request lookup failed")
	}

	ok, err := uc.canDecide(ctx, actingUserID, req)
	if err != nil {
		return domain.AccessRequest{}, err
	}
	if !ok {
		return domain.AccessRequest{}, domain.ForbiddenError{Action: string(status)}
	}
	if req.Status != domain.AccessRequested {
		return domain.AccessRequest{}, domain.ForbiddenError{
			Action: string(status),
			Reason: "request has already been decided",
		}
	}

	if err := uc.requests.SetStatus(ctx, id, status); err != nil {
		return domain.AccessRequest{}, errors.Wrap(err, "access request update failed")
	}
	req.Status = status
	if message != "" {
		req.Message = message
	}

	metrics.AccessRequestsTotal.WithLabelValues(string(status)).Inc()
	if uc.dispatcher != nil {
		uc.dispatcher.NotifyAccessDecision(ctx, req)
	}
	return req, nil
}

// canDecide: sysadmins decide anything; container admins decide requests
// against their container or its datasets.
func (uc *AccessRequestUsecase) canDecide(ctx context.Context, actingUserID string, req domain.AccessRequest) (bool, error) {
	user, err := uc.users.Get(ctx, actingUserID)
	if err != nil {
		return false, errors.Wrap(err, "acting user lookup failed")
	}
	if user.Sysadmin {
		return true, nil
	}
	if req.ObjectType == domain.ObjectUser {
		return false, nil
	}

	containerID := req.ObjectID
	if req.ObjectType == domain.ObjectDataset {
		ds, err := uc.datasets.Get(ctx, req.ObjectID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return false, nil
			}
			return false, errors.Wrap(err, "dataset lookup failed")
		}
		containerID = ds.OwnerOrg
	}

	capacity, err := uc.containers.UserCapacity(ctx, containerID, actingUserID)
	if err != nil {
		return false, errors.Wrap(err, "membership lookup failed")
	}
	return capacity == domain.CapacityAdmin, nil
}

// approvers mirrors canDecide: the users who will be notified of a new
// request.
func (uc *AccessRequestUsecase) approvers(ctx context.Context, objectType domain.AccessObjectType, objectID string) ([]domain.User, error) {
	switch objectType {
	case domain.ObjectUser:
		return uc.users.ListSysadmins(ctx)

	case domain.ObjectDataset:
		ds, err := uc.datasets.Get(ctx, objectID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NotFoundError{Resource: "dataset"}
			}
			return nil, errors.Wrap(err, "dataset lookup failed")
		}
		return uc.containers.ListMembers(ctx, ds.OwnerOrg, domain.CapacityAdmin)

	default:
		container, err := uc.containers.Get(ctx, objectID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NotFoundError{Resource: "container"}
			}
			return nil, errors.Wrap(err, "container lookup failed")
		}
		return uc.containers.ListMembers(ctx, container.ID, domain.CapacityAdmin)
	}
}
