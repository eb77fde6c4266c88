package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/infra/database/models"
)

type AccessRequestRepository struct {
	db *gorm.DB
}

func NewAccessRequestRepository(db *gorm.DB) *AccessRequestRepository {
	return &AccessRequestRepository{db: db}
}

func (r *AccessRequestRepository) Create(ctx context.Context, req *domain.AccessRequest) error {
	m := models.AccessRequest{
		UserID:     req.UserID,
		Message:    req.Message,
		Role:       req.Role,
		Status:     string(req.Status),
		ObjectType: string(req.ObjectType),
		ObjectID:   req.ObjectID,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	req.ID = m.ID
	req.Timestamp = m.CDate
	return nil
}

func (r *AccessRequestRepository) Get(ctx context.Context, id int64) (domain.AccessRequest, error) {
	var m models.AccessRequest
	err := r.db.WithContext(ctx).Take(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AccessRequest{}, domain.NotFoundError{Resource: "access request"}
		}
		return domain.AccessRequest{}, err
	}
	return accessRequestToDomain(&m), nil
}

func (r *AccessRequestRepository) ListPending(ctx context.Context) ([]domain.AccessRequest, error) {
	var rows []models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.AccessRequested)).
		Order("c_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.AccessRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, accessRequestToDomain(&row))
	}
	return out, nil
}

func (r *AccessRequestRepository) SetStatus(ctx context.Context, id int64, status domain.AccessRequestStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("id = ?", id).
		Update("status", string(status)).Error
}

func accessRequestToDomain(m *models.AccessRequest) domain.AccessRequest {
	return domain.AccessRequest{
		ID:         m.ID,
		Timestamp:  m.CDate,
		UserID:     m.UserID,
		Message:    m.Message,
		Role:       m.Role,
		Status:     domain.AccessRequestStatus(m.Status),
		ObjectType: domain.AccessObjectType(m.ObjectType),
		ObjectID:   m.ObjectID,
	}
}
