package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/infra/database/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	var m models.User
	err := r.db.WithContext(ctx).
		Where("id = ? OR name = ?", id, id).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.NotFoundError{Resource: "user"}
		}
		return domain.User{}, err
	}
	return userToDomain(&m), nil
}

func (r *UserRepository) GetByAPIKey(ctx context.Context, key string) (domain.User, error) {
	if key == "" {
		return domain.User{}, domain.NotFoundError{Resource: "user"}
	}
	var m models.User
	err := r.db.WithContext(ctx).
		Where("api_key = ?", key).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.NotFoundError{Resource: "user"}
		}
		return domain.User{}, err
	}
	return userToDomain(&m), nil
}

func (r *UserRepository) ListSysadmins(ctx context.Context) ([]domain.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("sysadmin = ?", true).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, userToDomain(&u))
	}
	return out, nil
}

func userToDomain(m *models.User) domain.User {
	return domain.User{ID: m.ID, Name: m.Name, Email: m.Email, Sysadmin: m.Sysadmin}
}
