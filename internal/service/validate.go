package service

import (
	"regexp"

	"github.com/okfn/ridl-curation"
	"github.com/okfn/ridl-curation/internal/domain"
)

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-_]{1,99}$`)

var accessLevels = map[string]bool{
	"not_available": true,
	"direct_access": true,
	"public_use":    true,
	"licensed_use":  true,
	"data_enclave":  true,
	"open_access":   true,
}

// DatasetValidator runs the publish-time schema. Deposited drafts are
// allowed to be incomplete; this schema decides whether a dataset may be
// approved into a regular container. The owner_org field itself is not
// checked here since it is deposit-specific until approval.
type DatasetValidator struct{}

func NewDatasetValidator() *DatasetValidator {
	return &DatasetValidator{}
}

// Validate returns nil when the dataset is publish-clean.
func (v *DatasetValidator) Validate(ds *ridl.Dataset) domain.FieldErrors {
	errs := domain.FieldErrors{}

	if ds.Name == "" {
		errs.Add("name", "Missing value")
	} else if !nameRe.MatchString(ds.Name) {
		errs.Add("name", "Must be lowercase alphanumeric")
	}
	if ds.Title == "" {
		errs.Add("title", "Missing value")
	}
	if ds.Notes == "" {
		errs.Add("notes", "Missing value")
	}
	if ds.OwnerOrgDest == "" && ds.Type == ridl.TypeDeposited {
		errs.Add("owner_org_dest", "Missing value")
	}
	if ds.DataCollector == "" {
		errs.Add("data_collector", "Missing value")
	}
	if ds.DataCollectionTechnique == "" {
		errs.Add("data_collection_technique", "Missing value")
	}
	if ds.UnitOfMeasurement == "" {
		errs.Add("unit_of_measurement", "Missing value")
	}
	if len(ds.Keywords) == 0 {
		errs.Add("keywords", "Missing value")
	}
	if ds.ExternalAccessLevel == "" {
		errs.Add("external_access_level", "Missing value")
	} else if !accessLevels[ds.ExternalAccessLevel] {
		errs.Add("external_access_level", "Invalid value")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
