package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/okfn/ridl-curation"
	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/infra/database/models"
)

type DatasetRepository struct {
	db *gorm.DB
}

func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func (r *DatasetRepository) Get(ctx context.Context, idOrName string) (*ridl.Dataset, error) {
	var m models.Dataset
	err := r.db.WithContext(ctx).
		Where("id = ? OR name = ?", idOrName, idOrName).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError{Resource: "dataset"}
		}
		return nil, err
	}
	return datasetToDomain(&m), nil
}

func (r *DatasetRepository) Create(ctx context.Context, ds *ridl.Dataset) (*ridl.Dataset, error) {
	m := datasetToModel(ds)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.MDate = time.Now()

	err := r.db.WithContext(ctx).Create(m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fieldErrs := domain.FieldErrors{}
			fieldErrs.Add("name", "That URL is already in use")
			return nil, domain.ValidationError{Fields: fieldErrs}
		}
		return nil, err
	}
	return r.Get(ctx, m.ID)
}

// SaveTransition writes the mutated dataset and its audit entry in one
// transaction so a transition is either fully recorded or not at all.
func (r *DatasetRepository) SaveTransition(ctx context.Context, ds *ridl.Dataset, activity domain.CurationActivity) (*ridl.Dataset, error) {
	m := datasetToModel(ds)
	m.MDate = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(m).Error; err != nil {
			return err
		}
		entry := models.CurationActivity{
			DatasetID: m.ID,
			Type:      string(activity.Type),
			ActorID:   activity.ActorID,
			Message:   activity.Message,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, m.ID)
}

func datasetToModel(ds *ridl.Dataset) *models.Dataset {
	keywords := ""
	if len(ds.Keywords) > 0 {
		raw, _ := json.Marshal(ds.Keywords)
		keywords = string(raw)
	}
	return &models.Dataset{
		ID:                      ds.ID,
		Name:                    ds.Name,
		Title:                   ds.Title,
		Type:                    ds.Type,
		State:                   ds.State,
		OwnerOrg:                ds.OwnerOrg,
		OwnerOrgDest:            ds.OwnerOrgDest,
		CurationState:           ds.CurationState,
		CuratorID:               ds.CuratorID,
		CreatorUserID:           ds.CreatorUserID,
		Notes:                   ds.Notes,
		DataCollector:           ds.DataCollector,
		DataCollectionTechnique: ds.DataCollectionTechnique,
		UnitOfMeasurement:       ds.UnitOfMeasurement,
		Keywords:                keywords,
		ExternalAccessLevel:     ds.ExternalAccessLevel,
	}
}

func datasetToDomain(m *models.Dataset) *ridl.Dataset {
	var keywords []string
	if m.Keywords != "" {
		_ = json.Unmarshal([]byte(m.Keywords), &keywords)
	}
	return &ridl.Dataset{
		ID:                      m.ID,
		Name:                    m.Name,
		Title:                   m.Title,
		Type:                    m.Type,
		State:                   m.State,
		OwnerOrg:                m.OwnerOrg,
		OwnerOrgDest:            m.OwnerOrgDest,
		CurationState:           m.CurationState,
		CuratorID:               m.CuratorID,
		CreatorUserID:           m.CreatorUserID,
		Notes:                   m.Notes,
		DataCollector:           m.DataCollector,
		DataCollectionTechnique: m.DataCollectionTechnique,
		UnitOfMeasurement:       m.UnitOfMeasurement,
		Keywords:                keywords,
		ExternalAccessLevel:     m.ExternalAccessLevel,
		CreatedAt:               m.CDate,
		UpdatedAt:               m.MDate,
	}
}
