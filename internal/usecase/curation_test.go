package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/okfn/ridl-curation"
	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/service"
)

type env struct {
	f         *fixture
	datasets  *mockDatasetRepo
	notifier  *mockNotifier
	publisher *mockPublisher
	uc        *CurationUsecase
}

func newEnv(datasets ...*ridl.Dataset) *env {
	f := newFixture()
	repo := newMockDatasetRepo(datasets...)
	notifier := &mockNotifier{}
	publisher := &mockPublisher{}
	uc := NewCurationUsecase(
		repo, &mockContainerRepo{f: f}, &mockActivityRepo{datasets: repo},
		newResolver(f), service.NewDatasetValidator(), notifier, publisher, depositName,
	)
	return &env{f: f, datasets: repo, notifier: notifier, publisher: publisher, uc: uc}
}

func TestSubmitDraft(t *testing.T) {
	e := newEnv(validDeposit("ds-1", "household-survey-2025", "draft"))

	saved, err := e.uc.Submit(context.Background(), "ds-1", depositorID, "ready for review")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if saved.CurationState != "submitted" {
		t.Fatalf("expected submitted, got %s", saved.CurationState)
	}

	activities := e.datasets.activitiesOf("ds-1")
	if len(activities) != 1 || activities[0].Type != domain.ActivityDatasetSubmitted {
		t.Fatalf("expected exactly one dataset_submitted activity, got %v", activities)
	}
	if len(e.notifier.inputs) != 1 || e.notifier.inputs[0].Activity != domain.ActivityDatasetSubmitted {
		t.Fatalf("expected one submit notification")
	}
	if len(e.publisher.events) != 1 {
		t.Fatalf("expected one realtime event")
	}
}

func TestSubmitOnlyByDepositorFromDraft(t *testing.T) {
	e := newEnv(
		validDeposit("ds-1", "a", "draft"),
		validDeposit("ds-2", "b", "submitted"),
	)

	if _, err := e.uc.Submit(context.Background(), "ds-1", curatorID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("curator submitting a draft: expected Forbidden, got %v", err)
	}
	if _, err := e.uc.Submit(context.Background(), "ds-2", depositorID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("submitting an already submitted dataset: expected Forbidden, got %v", err)
	}
	if len(e.datasets.activities) != 0 {
		t.Fatalf("failed transitions must not record activities")
	}
}

func TestTransitionOnMissingDataset(t *testing.T) {
	e := newEnv()
	if _, err := e.uc.Submit(context.Background(), "nope", depositorID, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestTransitionOnRegularDataset(t *testing.T) {
	ds := validDeposit("ds-1", "a", "")
	ds.Type = ridl.TypeDataset
	e := newEnv(ds)

	if _, err := e.uc.Approve(context.Background(), "ds-1", adminID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected Forbidden for non-deposited dataset, got %v", err)
	}
}

func TestApproveMovesDatasetToDestination(t *testing.T) {
	e := newEnv(validDeposit("ds-1", "household-survey-2025", "submitted"))

	saved, err := e.uc.Approve(context.Background(), "ds-1", adminID, "")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if saved.Type != ridl.TypeDataset {
		t.Fatalf("expected regular dataset type, got %s", saved.Type)
	}
	if saved.OwnerOrg != destContainerID {
		t.Fatalf("expected owner org %s, got %s", destContainerID, saved.OwnerOrg)
	}
	if saved.CurationState != "" || saved.CuratorID != "" || saved.OwnerOrgDest != "" {
		t.Fatalf("curation fields must be cleared on approval: %+v", saved)
	}

	// The record left the deposit workflow entirely.
	if _, err := e.uc.Status(context.Background(), "ds-1", adminID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("approved dataset must no longer be addressable as a deposit, got %v", err)
	}
}

func TestApproveBlockedByValidation(t *testing.T) {
	e := newEnv(invalidDeposit("ds-1", "household-survey-2025", "review"))

	_, err := e.uc.Approve(context.Background(), "ds-1", depositorID, "")
	if !errors.Is(err, domain.ErrForbidden) {
		// The resolver withholds approve when validation fails, so the
		// executor reports Forbidden before it ever reaches the schema.
		t.Fatalf("expected Forbidden, got %v", err)
	}

	ds, _ := e.datasets.Get(context.Background(), "ds-1")
	if ds.CurationState != "review" {
		t.Fatalf("curation state must be unchanged, got %s", ds.CurationState)
	}
}

func TestApproveValidationErrorWhenDatasetDecays(t *testing.T) {
	// The dataset passes the resolver's check but its destination vanished
	// before approval: the terminal gate must still hold.
	ds := validDeposit("ds-1", "household-survey-2025", "submitted")
	e := newEnv(ds)
	delete(e.f.containers, destContainerID)

	_, err := e.uc.Approve(context.Background(), "ds-1", adminID, "")
	var vErr domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.Fields["owner_org_dest"]; !ok {
		t.Fatalf("expected owner_org_dest error, got %v", vErr.Fields)
	}

	after, _ := e.datasets.Get(context.Background(), "ds-1")
	if after.CurationState != "submitted" {
		t.Fatalf("curation state must be unchanged, got %s", after.CurationState)
	}
}

var retiredRe = regexp.MustCompile(`-(rejected|withdrawn)-[a-z0-9]{4}$`)

func TestRejectRetiresAndFreesName(t *testing.T) {
	e := newEnv(validDeposit("ds-1", "household-survey-2025", "submitted"))

	saved, err := e.uc.Reject(context.Background(), "ds-1", curatorID, "duplicate submission")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if saved.State != ridl.StateDeleted {
		t.Fatalf("expected soft-deleted record, got state %s", saved.State)
	}
	if !strings.Contains(saved.Name, "-rejected-") || !retiredRe.MatchString(saved.Name) {
		t.Fatalf("unexpected retired name %q", saved.Name)
	}

	// The original name is free for a new submission.
	if _, err := e.uc.CreateDeposit(context.Background(), depositorID, DepositInput{
		Name:  "household-survey-2025",
		Title: "Household survey 2025, second attempt",
	}); err != nil {
		t.Fatalf("resubmission under the original name must succeed: %v", err)
	}
}

func TestWithdrawDraft(t *testing.T) {
	e := newEnv(validDeposit("ds-1", "household-survey-2025", "draft"))

	saved, err := e.uc.Withdraw(context.Background(), "ds-1", depositorID, "")
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if saved.State != ridl.StateDeleted || !strings.Contains(saved.Name, "-withdrawn-") {
		t.Fatalf("unexpected retired record: %+v", saved)
	}
	if !retiredRe.MatchString(saved.Name) {
		t.Fatalf("suffix must be 4 lowercase alphanumerics: %q", saved.Name)
	}

	if _, err := e.uc.Withdraw(context.Background(), "ds-2", curatorID, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound for unknown dataset, got %v", err)
	}
}

func TestAssignAndClearCurator(t *testing.T) {
	e := newEnv(validDeposit("ds-1", "household-survey-2025", "submitted"))

	saved, err := e.uc.Assign(context.Background(), "ds-1", adminID, curatorID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if saved.CuratorID != curatorID {
		t.Fatalf("expected curator %s, got %s", curatorID, saved.CuratorID)
	}
	if len(e.notifier.inputs) != 1 ||
		e.notifier.inputs[0].Activity != domain.ActivityCuratorAssigned ||
		e.notifier.inputs[0].CuratorID != curatorID {
		t.Fatalf("expected assignment notification for %s", curatorID)
	}

	saved, err = e.uc.Assign(context.Background(), "ds-1", adminID, "")
	if err != nil {
		t.Fatalf("clear assignment failed: %v", err)
	}
	if saved.CuratorID != "" {
		t.Fatalf("curator must be cleared, got %s", saved.CuratorID)
	}
	last := e.notifier.inputs[len(e.notifier.inputs)-1]
	if last.Activity != domain.ActivityCuratorRemoved || last.CuratorID != curatorID {
		t.Fatalf("removal notification must target the previous curator, got %+v", last)
	}

	activities := e.datasets.activitiesOf("ds-1")
	if len(activities) != 2 ||
		activities[0].Type != domain.ActivityCuratorAssigned ||
		activities[1].Type != domain.ActivityCuratorRemoved {
		t.Fatalf("unexpected activity trail: %v", activities)
	}
}

func TestAssignRequiresEligibleCurator(t *testing.T) {
	e := newEnv(validDeposit("ds-1", "household-survey-2025", "submitted"))

	_, err := e.uc.Assign(context.Background(), "ds-1", adminID, strangerID)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ValidationError for ineligible curator, got %v", err)
	}

	// Only admins may assign.
	if _, err := e.uc.Assign(context.Background(), "ds-1", curatorID, curatorID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected Forbidden for curator assigning, got %v", err)
	}
}

func TestRequestChangesDirection(t *testing.T) {
	e := newEnv(
		invalidDeposit("ds-1", "a", "submitted"),
		validDeposit("ds-2", "b", "review"),
	)

	// Curator bounces an incomplete submission back to the depositor.
	saved, err := e.uc.RequestChanges(context.Background(), "ds-1", curatorID, "fix the notes")
	if err != nil {
		t.Fatalf("request changes failed: %v", err)
	}
	if saved.CurationState != "draft" {
		t.Fatalf("submitted -> draft expected, got %s", saved.CurationState)
	}
	if e.notifier.inputs[0].PrevState != domain.StateSubmitted {
		t.Fatalf("dispatcher must see the pre-transition state")
	}

	// Depositor pushes back during final review.
	saved, err = e.uc.RequestChanges(context.Background(), "ds-2", depositorID, "metadata is wrong")
	if err != nil {
		t.Fatalf("request changes from review failed: %v", err)
	}
	if saved.CurationState != "submitted" {
		t.Fatalf("review -> submitted expected, got %s", saved.CurationState)
	}
}

func TestRequestReview(t *testing.T) {
	e := newEnv(validDeposit("ds-1", "a", "submitted"))

	saved, err := e.uc.RequestReview(context.Background(), "ds-1", curatorID, "")
	if err != nil {
		t.Fatalf("request review failed: %v", err)
	}
	if saved.CurationState != "review" {
		t.Fatalf("expected review, got %s", saved.CurationState)
	}

	// With validation errors the action is withheld.
	e2 := newEnv(invalidDeposit("ds-1", "a", "submitted"))
	if _, err := e2.uc.RequestReview(context.Background(), "ds-1", curatorID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected Forbidden while validation fails, got %v", err)
	}
}

func TestCurationEndToEnd(t *testing.T) {
	e := newEnv(invalidDeposit("ds-1", "household-survey-2025", "draft"))
	ctx := context.Background()

	// Drafts may be submitted incomplete; validation only gates approval.
	if _, err := e.uc.Submit(ctx, "ds-1", depositorID, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The curator requests changes on the incomplete submission.
	saved, err := e.uc.RequestChanges(ctx, "ds-1", curatorID, "notes are missing")
	if err != nil {
		t.Fatalf("request changes: %v", err)
	}
	if saved.CurationState != "draft" {
		t.Fatalf("expected draft after changes requested, got %s", saved.CurationState)
	}

	// The depositor completes the metadata and resubmits.
	stored := e.datasets.datasets["ds-1"]
	stored.Notes = "Anonymized household-level microdata."
	stored.DataCollector = "UNHCR"
	if _, err := e.uc.Submit(ctx, "ds-1", depositorID, "fixed"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	// Admin approves; the dataset lands in its destination container.
	saved, err = e.uc.Approve(ctx, "ds-1", adminID, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if saved.Type != ridl.TypeDataset || saved.OwnerOrg != destContainerID {
		t.Fatalf("unexpected final dataset: %+v", saved)
	}

	var trail []domain.ActivityType
	for _, a := range e.datasets.activitiesOf("ds-1") {
		trail = append(trail, a.Type)
	}
	want := []domain.ActivityType{
		domain.ActivityDatasetSubmitted,
		domain.ActivityChangesRequested,
		domain.ActivityDatasetSubmitted,
		domain.ActivityDatasetApproved,
	}
	if len(trail) != len(want) {
		t.Fatalf("unexpected audit trail: %v", trail)
	}
	for i := range want {
		if trail[i] != want[i] {
			t.Fatalf("audit trail mismatch at %d: got %v want %v", i, trail, want)
		}
	}
}

func TestCreateDeposit(t *testing.T) {
	e := newEnv()

	ds, err := e.uc.CreateDeposit(context.Background(), depositorID, DepositInput{
		Name:  "new-survey",
		Title: "New survey",
	})
	if err != nil {
		t.Fatalf("create deposit failed: %v", err)
	}
	if ds.Type != ridl.TypeDeposited || ds.CurationState != "draft" {
		t.Fatalf("unexpected new deposit: %+v", ds)
	}
	if ds.OwnerOrg != depositContainerID {
		t.Fatalf("deposit must live in the deposit container, got %s", ds.OwnerOrg)
	}
	if ds.CreatorUserID != depositorID {
		t.Fatalf("creator must be the acting user, got %s", ds.CreatorUserID)
	}

	_, err = e.uc.CreateDeposit(context.Background(), depositorID, DepositInput{Title: "no name"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ValidationError for missing name, got %v", err)
	}
}
