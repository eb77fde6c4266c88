package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/infra/database/models"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) List(ctx context.Context, datasetID string) ([]domain.CurationActivity, error) {
	var rows []models.CurationActivity
	err := r.db.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Order("c_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.CurationActivity, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.CurationActivity{
			ID:        row.ID,
			DatasetID: row.DatasetID,
			Type:      domain.ActivityType(row.Type),
			ActorID:   row.ActorID,
			Message:   row.Message,
			CreatedAt: row.CDate,
		})
	}
	return out, nil
}
