package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okfn/ridl-curation"
	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/metrics"
)

// CurationUsecase drives the deposited-dataset workflow: one method per
// transition, each authorizing itself through the resolver, persisting the
// mutation together with exactly one audit entry, then notifying
// best-effort.
type CurationUsecase struct {
	datasets   DatasetRepository
	containers ContainerRepository
	activities ActivityRepository
	resolver   *StatusResolver
	validator  Validator
	notifier   Notifier
	publisher  EventPublisher

	depositName string
}

func NewCurationUsecase(
	datasets DatasetRepository,
	containers ContainerRepository,
	activities ActivityRepository,
	resolver *StatusResolver,
	validator Validator,
	notifier Notifier,
	publisher EventPublisher,
	depositName string,
) *CurationUsecase {
	return &CurationUsecase{
		datasets:    datasets,
		containers:  containers,
		activities:  activities,
		resolver:    resolver,
		validator:   validator,
		notifier:    notifier,
		publisher:   publisher,
		depositName: depositName,
	}
}

// DepositInput is the payload for creating a new deposited dataset.
type DepositInput struct {
	Name                    string   `json:"name"`
	Title                   string   `json:"title"`
	Notes                   string   `json:"notes"`
	OwnerOrgDest            string   `json:"owner_org_dest"`
	DataCollector           string   `json:"data_collector"`
	DataCollectionTechnique string   `json:"data_collection_technique"`
	UnitOfMeasurement       string   `json:"unit_of_measurement"`
	Keywords                []string `json:"keywords"`
	ExternalAccessLevel     string   `json:"external_access_level"`
}

// CreateDeposit opens a new draft in the deposit container. Drafts are not
// held to the publish schema; validation only gates approval.
func (uc *CurationUsecase) CreateDeposit(ctx context.Context, actingUserID string, input DepositInput) (*ridl.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Curation.Usecase.CreateDeposit")
	defer span.End()

	if input.Name == "" || input.Title == "" {
		fieldErrs := domain.FieldErrors{}
		if input.Name == "" {
			fieldErrs.Add("name", "Missing value")
		}
		if input.Title == "" {
			fieldErrs.Add("title", "Missing value")
		}
		return nil, domain.ValidationError{Fields: fieldErrs}
	}

	deposit, err := uc.containers.Get(ctx, uc.depositName)
	if err != nil {
		return nil, errors.Wrap(err, "create deposit: deposit container lookup failed")
	}

	ds := &ridl.Dataset{
		Name:                    input.Name,
		Title:                   input.Title,
		Type:                    ridl.TypeDeposited,
		State:                   ridl.StateActive,
		OwnerOrg:                deposit.ID,
		OwnerOrgDest:            input.OwnerOrgDest,
		CurationState:           string(domain.StateDraft),
		CreatorUserID:           actingUserID,
		Notes:                   input.Notes,
		DataCollector:           input.DataCollector,
		DataCollectionTechnique: input.DataCollectionTechnique,
		UnitOfMeasurement:       input.UnitOfMeasurement,
		Keywords:                input.Keywords,
		ExternalAccessLevel:     input.ExternalAccessLevel,
	}
	return uc.datasets.Create(ctx, ds)
}

// Status resolves the curation view for UI rendering.
func (uc *CurationUsecase) Status(ctx context.Context, datasetID, actingUserID string) (domain.CurationStatus, error) {
	_, status, err := uc.load(ctx, datasetID, actingUserID)
	if err != nil {
		return domain.CurationStatus{}, err
	}
	return status, nil
}

// Activities returns the audit trail. Anyone with a stake in the dataset
// may read it; outsiders may not.
func (uc *CurationUsecase) Activities(ctx context.Context, datasetID, actingUserID string) ([]domain.CurationActivity, error) {
	ds, status, err := uc.load(ctx, datasetID, actingUserID)
	if err != nil {
		return nil, err
	}
	if status.Role == domain.RoleUser && !status.IsDepositor {
		return nil, domain.ForbiddenError{Action: "read_activities"}
	}
	return uc.activities.List(ctx, ds.ID)
}

// Submit moves a draft into the curation queue.
func (uc *CurationUsecase) Submit(ctx context.Context, datasetID, actingUserID, message string) (*ridl.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Curation.Usecase.Submit")
	defer span.End()

	ds, status, err := uc.load(ctx, datasetID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !status.Allows(domain.ActionSubmit) {
		return nil, domain.ForbiddenError{Action: string(domain.ActionSubmit)}
	}

	next := ds.Clone()
	next.CurationState = string(domain.StateSubmitted)

	saved, err := uc.datasets.SaveTransition(ctx, next, uc.activity(next, domain.ActivityDatasetSubmitted, actingUserID, message))
	if err != nil {
		return nil, errors.Wrap(err, "submit failed")
	}

	uc.afterTransition(ctx, domain.ActivityDatasetSubmitted, saved, status, NotifyInput{Message: message})
	return saved, nil
}

// Assign sets or clears the curator of a submitted dataset. An empty
// curatorID clears the assignment.
func (uc *CurationUsecase) Assign(ctx context.Context, datasetID, actingUserID, curatorID string) (*ridl.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Curation.Usecase.Assign")
	defer span.End()

	ds, status, err := uc.load(ctx, datasetID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !status.Allows(domain.ActionAssign) {
		return nil, domain.ForbiddenError{Action: string(domain.ActionAssign)}
	}

	if curatorID != "" {
		eligible, err := uc.resolver.EligibleCurators(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "assign: curator lookup failed")
		}
		found := false
		for _, u := range eligible {
			if u.ID == curatorID {
				found = true
				break
			}
		}
		if !found {
			fieldErrs := domain.FieldErrors{}
			fieldErrs.Add("curator_id", "User is not curation-eligible")
			return nil, domain.ValidationError{Fields: fieldErrs}
		}
	}

	previous := ds.CuratorID
	if previous == curatorID {
		// No-op assignment, nothing to record or announce.
		return ds, nil
	}

	activityType := domain.ActivityCuratorAssigned
	notifyTarget := curatorID
	if curatorID == "" {
		activityType = domain.ActivityCuratorRemoved
		notifyTarget = previous
	}

	next := ds.Clone()
	next.CuratorID = curatorID

	saved, err := uc.datasets.SaveTransition(ctx, next, uc.activity(next, activityType, actingUserID, ""))
	if err != nil {
		return nil, errors.Wrap(err, "assign failed")
	}

	uc.afterTransition(ctx, activityType, saved, status, NotifyInput{CuratorID: notifyTarget})
	return saved, nil
}

// RequestReview sends a validation-clean submission back to the depositor
// for a final check before it goes live.
func (uc *CurationUsecase) RequestReview(ctx context.Context, datasetID, actingUserID, message string) (*ridl.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Curation.Usecase.RequestReview")
	defer span.End()

	ds, status, err := uc.load(ctx, datasetID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !status.Allows(domain.ActionRequestReview) {
		return nil, domain.ForbiddenError{Action: string(domain.ActionRequestReview)}
	}

	next := ds.Clone()
	next.CurationState = string(domain.StateReview)

	saved, err := uc.datasets.SaveTransition(ctx, next, uc.activity(next, domain.ActivityFinalReviewRequested, actingUserID, message))
	if err != nil {
		return nil, errors.Wrap(err, "request review failed")
	}

	uc.afterTransition(ctx, domain.ActivityFinalReviewRequested, saved, status, NotifyInput{Message: message})
	return saved, nil
}

// RequestChanges bounces the dataset back: to draft when a curator asks the
// depositor for fixes, to submitted when the depositor objects during final
// review.
func (uc *CurationUsecase) RequestChanges(ctx context.Context, datasetID, actingUserID, message string) (*ridl.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Curation.Usecase.RequestChanges")
	defer span.End()

	ds, status, err := uc.load(ctx, datasetID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !status.Allows(domain.ActionRequestChanges) {
		return nil, domain.ForbiddenError{Action: string(domain.ActionRequestChanges)}
	}

	prev := domain.CurationState(ds.CurationState)
	next := ds.Clone()
	if prev == domain.StateReview {
		next.CurationState = string(domain.StateSubmitted)
	} else {
		next.CurationState = string(domain.StateDraft)
	}

	saved, err := uc.datasets.SaveTransition(ctx, next, uc.activity(next, domain.ActivityChangesRequested, actingUserID, message))
	if err != nil {
		return nil, errors.Wrap(err, "request changes failed")
	}

	uc.afterTransition(ctx, domain.ActivityChangesRequested, saved, status, NotifyInput{Message: message, PrevState: prev})
	return saved, nil
}

// Approve reclassifies the deposit as a regular dataset in its destination
// container. The full publish schema must pass; this is the terminal
// quality gate.
func (uc *CurationUsecase) Approve(ctx context.Context, datasetID, actingUserID, message string) (*ridl.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Curation.Usecase.Approve")
	defer span.End()

	ds, status, err := uc.load(ctx, datasetID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !status.Allows(domain.ActionApprove) {
		return nil, domain.ForbiddenError{Action: string(domain.ActionApprove)}
	}

	fieldErrs := uc.validator.Validate(ds)
	if fieldErrs == nil {
		fieldErrs = domain.FieldErrors{}
	}
	dest, err := uc.containers.Get(ctx, ds.OwnerOrgDest)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fieldErrs.Add("owner_org_dest", "Destination container does not exist")
		} else {
			return nil, errors.Wrap(err, "approve: destination lookup failed")
		}
	}
	if len(fieldErrs) > 0 {
		return nil, domain.ValidationError{Fields: fieldErrs}
	}

	next := ds.Clone()
	next.Type = ridl.TypeDataset
	next.OwnerOrg = dest.ID
	next.OwnerOrgDest = ""
	next.CurationState = ""
	next.CuratorID = ""

	saved, err := uc.datasets.SaveTransition(ctx, next, uc.activity(next, domain.ActivityDatasetApproved, actingUserID, message))
	if err != nil {
		return nil, errors.Wrap(err, "approve failed")
	}

	uc.afterTransition(ctx, domain.ActivityDatasetApproved, saved, status, NotifyInput{Message: message})
	return saved, nil
}

// Reject retires a submitted dataset that will never be published.
func (uc *CurationUsecase) Reject(ctx context.Context, datasetID, actingUserID, message string) (*ridl.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Curation.Usecase.Reject")
	defer span.End()

	ds, status, err := uc.load(ctx, datasetID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !status.Allows(domain.ActionReject) {
		return nil, domain.ForbiddenError{Action: string(domain.ActionReject)}
	}

	saved, err := uc.retire(ctx, ds, ridl.RetiredTagRejected, domain.ActivityDatasetRejected, actingUserID, message)
	if err != nil {
		return nil, err
	}

	uc.afterTransition(ctx, domain.ActivityDatasetRejected, saved, status, NotifyInput{Message: message})
	return saved, nil
}

// Withdraw retires a draft at the depositor's request.
func (uc *CurationUsecase) Withdraw(ctx context.Context, datasetID, actingUserID, message string) (*ridl.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Curation.Usecase.Withdraw")
	defer span.End()

	ds, status, err := uc.load(ctx, datasetID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !status.Allows(domain.ActionWithdraw) {
		return nil, domain.ForbiddenError{Action: string(domain.ActionWithdraw)}
	}

	saved, err := uc.retire(ctx, ds, ridl.RetiredTagWithdrawn, domain.ActivityDatasetWithdrawn, actingUserID, message)
	if err != nil {
		return nil, err
	}

	uc.afterTransition(ctx, domain.ActivityDatasetWithdrawn, saved, status, NotifyInput{Message: message})
	return saved, nil
}

// retire renames the dataset with a randomized suffix and soft-deletes it,
// freeing the original slug for a future submission while preserving the
// record for audit. The random suffix makes the rename collision-safe; the
// rename+delete pair is not guarded against concurrent transitions (see
// DESIGN.md, known gap inherited from the workflow design).
func (uc *CurationUsecase) retire(ctx context.Context, ds *ridl.Dataset, tag string, activityType domain.ActivityType, actingUserID, message string) (*ridl.Dataset, error) {
	next := ds.Clone()
	next.Name = ridl.RetiredName(ds.Name, tag)
	next.State = ridl.StateDeleted

	saved, err := uc.datasets.SaveTransition(ctx, next, uc.activity(next, activityType, actingUserID, message))
	if err != nil {
		return nil, errors.Wrapf(err, "retire (%s) failed", tag)
	}
	return saved, nil
}

// load fetches the dataset, rejects anything outside the deposit workflow,
// and resolves the acting user's status.
func (uc *CurationUsecase) load(ctx context.Context, datasetID, actingUserID string) (*ridl.Dataset, domain.CurationStatus, error) {
	ds, err := uc.datasets.Get(ctx, datasetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.CurationStatus{}, domain.NotFoundError{Resource: "dataset"}
		}
		return nil, domain.CurationStatus{}, errors.Wrap(err, "dataset lookup failed")
	}
	if !ds.Deposited() {
		return nil, domain.CurationStatus{}, domain.ForbiddenError{
			Action: "curation",
			Reason: "dataset is not a deposited dataset",
		}
	}

	status, err := uc.resolver.Resolve(ctx, ds, actingUserID)
	if err != nil {
		return nil, domain.CurationStatus{}, err
	}
	return ds, status, nil
}

func (uc *CurationUsecase) activity(ds *ridl.Dataset, t domain.ActivityType, actorID, message string) domain.CurationActivity {
	return domain.CurationActivity{
		DatasetID: ds.ID,
		Type:      t,
		ActorID:   actorID,
		Message:   message,
	}
}

// afterTransition runs the best-effort side effects: metrics, the realtime
// feed and the notification dispatch. None of them can fail the already
// committed transition.
func (uc *CurationUsecase) afterTransition(ctx context.Context, t domain.ActivityType, ds *ridl.Dataset, status domain.CurationStatus, in NotifyInput) {
	metrics.TransitionsTotal.WithLabelValues(string(t)).Inc()

	if uc.publisher != nil {
		event := domain.CurationEvent{
			DatasetID:   ds.ID,
			DatasetName: ds.Name,
			Type:        t,
			Timestamp:   time.Now().UTC(),
		}
		if err := uc.publisher.Publish(ctx, event); err != nil {
			slog.ErrorContext(ctx, "failed to publish curation event",
				slog.String("error", err.Error()),
				slog.String("dataset", ds.ID),
				slog.String("module", "curation"),
			)
		}
	}

	if uc.notifier != nil {
		in.Activity = t
		in.Dataset = ds
		in.Status = status
		uc.notifier.Notify(ctx, in)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("transition", string(t)))
}
