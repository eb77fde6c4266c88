package repository

import (
	"context"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"gorm.io/gorm"

	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/infra/database/models"
)

const capacityCacheTTL = 60 // seconds

type ContainerRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

// NewContainerRepository wires the membership store. mc may be nil, in
// which case capacity lookups always hit the database.
func NewContainerRepository(db *gorm.DB, mc *memcache.Client) *ContainerRepository {
	return &ContainerRepository{db: db, mc: mc}
}

func (r *ContainerRepository) Get(ctx context.Context, idOrName string) (domain.Container, error) {
	var m models.Container
	err := r.db.WithContext(ctx).
		Where("id = ? OR name = ?", idOrName, idOrName).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Container{}, domain.NotFoundError{Resource: "container"}
		}
		return domain.Container{}, err
	}
	return domain.Container{ID: m.ID, Name: m.Name, Title: m.Title}, nil
}

// UserCapacity returns the user's capacity in the container, empty when the
// user is not a member. Results are cached briefly in memcache since role
// resolution asks the same question several times per request.
func (r *ContainerRepository) UserCapacity(ctx context.Context, containerID, userID string) (domain.Capacity, error) {
	key := capacityCacheKey(containerID, userID)

	if r.mc != nil {
		if item, err := r.mc.Get(key); err == nil {
			return domain.Capacity(item.Value), nil
		}
	}

	var m models.Member
	err := r.db.WithContext(ctx).
		Where("container_id = ? AND user_id = ?", containerID, userID).
		Take(&m).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.CapacityNone, err
	}

	capacity := domain.Capacity(m.Capacity)
	if r.mc != nil {
		_ = r.mc.Set(&memcache.Item{
			Key:        key,
			Value:      []byte(capacity),
			Expiration: capacityCacheTTL,
		})
	}
	return capacity, nil
}

func (r *ContainerRepository) ListMembers(ctx context.Context, containerID string, capacities ...domain.Capacity) ([]domain.User, error) {
	caps := make([]string, 0, len(capacities))
	for _, c := range capacities {
		caps = append(caps, string(c))
	}

	var users []models.User
	query := r.db.WithContext(ctx).
		Table("members").
		Select("users.*").
		Joins("JOIN users ON users.id = members.user_id").
		Where("members.container_id = ?", containerID)
	if len(caps) > 0 {
		query = query.Where("members.capacity IN ?", caps)
	}
	if err := query.Scan(&users).Error; err != nil {
		return nil, err
	}

	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, domain.User{ID: u.ID, Name: u.Name, Email: u.Email, Sysadmin: u.Sysadmin})
	}
	return out, nil
}

// SetMember upserts a membership and drops the cached capacity.
func (r *ContainerRepository) SetMember(ctx context.Context, member domain.Member) error {
	m := models.Member{
		ContainerID: member.ContainerID,
		UserID:      member.UserID,
		Capacity:    string(member.Capacity),
	}
	err := r.db.WithContext(ctx).Save(&m).Error
	if err != nil {
		return err
	}
	if r.mc != nil {
		_ = r.mc.Delete(capacityCacheKey(member.ContainerID, member.UserID))
	}
	return nil
}

// capacityCacheKey hashes the pair; memcache keys have length and charset
// limits that raw ids may violate.
func capacityCacheKey(containerID, userID string) string {
	sum := xxh3.HashString(containerID + "\x00" + userID)
	return fmt.Sprintf("ridl:cap:%016x", sum)
}
