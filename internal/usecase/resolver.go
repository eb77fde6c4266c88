package usecase

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/okfn/ridl-curation"
	"github.com/okfn/ridl-curation/internal/domain"
)

var tracer = otel.Tracer("curation")

// StatusResolver computes the derived curation view of one dataset for one
// acting user: role, validation state, permitted actions and contacts.
type StatusResolver struct {
	containers  ContainerRepository
	users       UserRepository
	validator   Validator
	depositName string
	finalReview bool
}

func NewStatusResolver(
	containers ContainerRepository,
	users UserRepository,
	validator Validator,
	depositName string,
	finalReview bool,
) *StatusResolver {
	return &StatusResolver{
		containers:  containers,
		users:       users,
		validator:   validator,
		depositName: depositName,
		finalReview: finalReview,
	}
}

// Resolve derives the CurationStatus for the acting user. It performs no
// mutation; the executor calls it to authorize transitions and the REST
// layer calls it to decide which actions to render.
func (r *StatusResolver) Resolve(ctx context.Context, ds *ridl.Dataset, userID string) (domain.CurationStatus, error) {
	ctx, span := tracer.Start(ctx, "Curation.Resolver.Resolve")
	defer span.End()

	deposit, err := r.containers.Get(ctx, r.depositName)
	if err != nil {
		return domain.CurationStatus{}, errors.Wrap(err, "resolve: deposit container lookup failed")
	}

	user, err := r.users.Get(ctx, userID)
	if err != nil {
		return domain.CurationStatus{}, errors.Wrap(err, "resolve: acting user lookup failed")
	}

	role, err := r.resolveRole(ctx, ds, deposit, user)
	if err != nil {
		return domain.CurationStatus{}, err
	}

	fieldErrs := r.validator.Validate(ds)

	status := domain.CurationStatus{
		Role:        role,
		State:       domain.CurationState(ds.CurationState),
		IsDepositor: ds.CreatorUserID == user.ID,
		IsCurator:   ds.CuratorID != "" && ds.CuratorID == user.ID,
		Error:       fieldErrs,
	}
	status.Actions = ActionsFor(status.State, role, status.IsDepositor, len(fieldErrs) > 0, r.finalReview)

	status.Contacts, err = r.contacts(ctx, ds, deposit)
	if err != nil {
		return domain.CurationStatus{}, err
	}

	return status, nil
}

// resolveRole walks the privilege chain highest first: deposit admin,
// curator (deposit editor or explicitly assigned), destination container
// admin, depositor, plain user.
func (r *StatusResolver) resolveRole(ctx context.Context, ds *ridl.Dataset, deposit domain.Container, user domain.User) (domain.Role, error) {
	depositCap, err := r.containers.UserCapacity(ctx, deposit.ID, user.ID)
	if err != nil {
		return "", errors.Wrap(err, "resolve: deposit membership lookup failed")
	}

	switch {
	case user.Sysadmin || depositCap == domain.CapacityAdmin:
		return domain.RoleAdmin, nil
	case depositCap == domain.CapacityEditor || (ds.CuratorID != "" && ds.CuratorID == user.ID):
		return domain.RoleCurator, nil
	}

	if ds.OwnerOrgDest != "" {
		destCap, err := r.containers.UserCapacity(ctx, ds.OwnerOrgDest, user.ID)
		if err != nil {
			return "", errors.Wrap(err, "resolve: destination membership lookup failed")
		}
		if destCap == domain.CapacityAdmin {
			return domain.RoleContainerAdmin, nil
		}
	}

	if ds.CreatorUserID == user.ID {
		return domain.RoleDepositor, nil
	}
	return domain.RoleUser, nil
}

// contacts lists who a depositor should reach out to: the assigned curator
// when there is one, otherwise all admins of the deposit container.
func (r *StatusResolver) contacts(ctx context.Context, ds *ridl.Dataset, deposit domain.Container) ([]domain.Contact, error) {
	if ds.CuratorID != "" {
		curator, err := r.users.Get(ctx, ds.CuratorID)
		if err != nil {
			return nil, errors.Wrap(err, "resolve: curator lookup failed")
		}
		return []domain.Contact{{Name: curator.Name, Email: curator.Email}}, nil
	}

	admins, err := r.containers.ListMembers(ctx, deposit.ID, domain.CapacityAdmin)
	if err != nil {
		return nil, errors.Wrap(err, "resolve: deposit admin lookup failed")
	}
	contacts := make([]domain.Contact, 0, len(admins))
	for _, admin := range admins {
		contacts = append(contacts, domain.Contact{Name: admin.Name, Email: admin.Email})
	}
	return contacts, nil
}

// EligibleCurators lists every user who may curate deposits: admins and
// editors of the deposit container.
func (r *StatusResolver) EligibleCurators(ctx context.Context) ([]domain.User, error) {
	deposit, err := r.containers.Get(ctx, r.depositName)
	if err != nil {
		return nil, errors.Wrap(err, "eligible curators: deposit container lookup failed")
	}
	return r.containers.ListMembers(ctx, deposit.ID, domain.CapacityAdmin, domain.CapacityEditor)
}

// ActionsFor is the strict allow-list of curation actions. Any (state,
// role) combination not handled here yields an empty set.
func ActionsFor(state domain.CurationState, role domain.Role, isDepositor, hasError, finalReview bool) []domain.Action {
	switch state {
	case domain.StateDraft:
		// Drafts belong to their depositor, whatever other hats the
		// depositor happens to wear.
		if isDepositor {
			return []domain.Action{domain.ActionEdit, domain.ActionSubmit, domain.ActionWithdraw}
		}

	case domain.StateSubmitted:
		if role == domain.RoleAdmin || role == domain.RoleCurator || role == domain.RoleContainerAdmin {
			actions := []domain.Action{domain.ActionEdit, domain.ActionReject}
			if role == domain.RoleAdmin {
				actions = append(actions, domain.ActionAssign)
			}
			if hasError {
				actions = append(actions, domain.ActionRequestChanges)
			} else {
				if finalReview {
					actions = append(actions, domain.ActionRequestReview)
				}
				actions = append(actions, domain.ActionApprove)
			}
			return actions
		}

	case domain.StateReview:
		if isDepositor {
			actions := []domain.Action{domain.ActionRequestChanges}
			if !hasError {
				actions = append(actions, domain.ActionApprove)
			}
			return actions
		}
	}
	return nil
}
