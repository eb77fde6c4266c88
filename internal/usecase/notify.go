package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/okfn/ridl-curation"
	"github.com/okfn/ridl-curation/internal/domain"
	"github.com/okfn/ridl-curation/internal/metrics"
)

// Notifier is what the executor sees of the notification machinery.
type Notifier interface {
	Notify(ctx context.Context, in NotifyInput)
}

// NotifyInput describes one transition outcome to announce.
type NotifyInput struct {
	Activity domain.ActivityType
	Dataset  *ridl.Dataset
	Status   domain.CurationStatus
	Message  string
	// CuratorID is the assigned (or just removed) curator for assign
	// transitions.
	CuratorID string
	// PrevState disambiguates who asked for changes.
	PrevState domain.CurationState
}

// Dispatcher resolves recipients per transition and enqueues one mail job
// per recipient. Everything here is fire and forget: a transition that has
// already been committed is never rolled back because an email could not be
// queued or delivered.
type Dispatcher struct {
	queue      JobQueue
	users      UserRepository
	containers ContainerRepository
	contacts   *gocache.Cache

	depositName string
	siteURL     string
}

func NewDispatcher(queue JobQueue, users UserRepository, containers ContainerRepository, depositName, siteURL string) *Dispatcher {
	return &Dispatcher{
		queue:       queue,
		users:       users,
		containers:  containers,
		contacts:    gocache.New(10*time.Minute, 15*time.Minute),
		depositName: depositName,
		siteURL:     siteURL,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, in NotifyInput) {
	recipients := d.recipients(ctx, in)
	if len(recipients) == 0 {
		return
	}

	subject, body := d.compose(in)
	for _, rcpt := range recipients {
		if rcpt.Email == "" {
			continue
		}
		job := MailJob{To: rcpt, Subject: subject, Body: body}
		if err := d.queue.Enqueue(ctx, job); err != nil {
			metrics.NotificationFailures.Inc()
			slog.ErrorContext(ctx, "failed to enqueue notification",
				slog.String("error", err.Error()),
				slog.String("recipient", rcpt.Email),
				slog.String("activity", string(in.Activity)),
				slog.String("module", "notify"),
			)
			continue
		}
		metrics.NotificationsEnqueued.Inc()
	}
}

// recipients implements the per-transition recipient table.
func (d *Dispatcher) recipients(ctx context.Context, in NotifyInput) []domain.Contact {
	ds := in.Dataset

	switch in.Activity {
	case domain.ActivityDatasetSubmitted:
		if ds.CuratorID != "" {
			return d.contactsFor(ctx, ds.CuratorID)
		}
		return d.eligibleContacts(ctx)

	case domain.ActivityCuratorAssigned, domain.ActivityCuratorRemoved:
		return d.contactsFor(ctx, in.CuratorID)

	case domain.ActivityChangesRequested:
		if in.PrevState == domain.StateReview {
			// The depositor pushed back during final review; the curator
			// has to take another look.
			if ds.CuratorID != "" {
				return d.contactsFor(ctx, ds.CuratorID)
			}
			return d.eligibleContacts(ctx)
		}
		return d.contactsFor(ctx, ds.CreatorUserID)

	case domain.ActivityFinalReviewRequested,
		domain.ActivityDatasetApproved,
		domain.ActivityDatasetRejected:
		return d.contactsFor(ctx, ds.CreatorUserID)

	case domain.ActivityDatasetWithdrawn:
		return d.eligibleContacts(ctx)
	}
	return nil
}

func (d *Dispatcher) compose(in NotifyInput) (string, string) {
	ds := in.Dataset
	link := fmt.Sprintf("%s/dataset/%s", d.siteURL, ds.Name)

	var subject, lead string
	switch in.Activity {
	case domain.ActivityDatasetSubmitted:
		subject = fmt.Sprintf("[RIDL] Dataset submitted: %s", ds.Title)
		lead = "A dataset has been submitted for curation."
	case domain.ActivityCuratorAssigned:
		subject = fmt.Sprintf("[RIDL] Curation assigned: %s", ds.Title)
		lead = "You have been assigned as curator of this dataset."
	case domain.ActivityCuratorRemoved:
		subject = fmt.Sprintf("[RIDL] Curation unassigned: %s", ds.Title)
		lead = "You are no longer the curator of this dataset."
	case domain.ActivityChangesRequested:
		subject = fmt.Sprintf("[RIDL] Changes requested: %s", ds.Title)
		lead = "Changes have been requested on this dataset."
	case domain.ActivityFinalReviewRequested:
		subject = fmt.Sprintf("[RIDL] Final review requested: %s", ds.Title)
		lead = "Your dataset is ready for your final review."
	case domain.ActivityDatasetApproved:
		subject = fmt.Sprintf("[RIDL] Dataset approved: %s", ds.Title)
		lead = "Your dataset has been approved and published."
	case domain.ActivityDatasetRejected:
		subject = fmt.Sprintf("[RIDL] Dataset rejected: %s", ds.Title)
		lead = "Your dataset has been rejected."
	case domain.ActivityDatasetWithdrawn:
		subject = fmt.Sprintf("[RIDL] Dataset withdrawn: %s", ds.Title)
		lead = "A deposited dataset has been withdrawn by its depositor."
	}

	body := lead
	if in.Message != "" {
		body += fmt.Sprintf("\n\nMessage:\n%s", in.Message)
	}
	body += fmt.Sprintf("\n\n%s", link)
	return subject, body
}

// contactsFor looks up one user's contact, memoized briefly since a burst
// of transitions tends to hit the same few people.
func (d *Dispatcher) contactsFor(ctx context.Context, userID string) []domain.Contact {
	if userID == "" {
		return nil
	}
	if cached, found := d.contacts.Get(userID); found {
		return []domain.Contact{cached.(domain.Contact)}
	}
	user, err := d.users.Get(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve notification recipient",
			slog.String("error", err.Error()),
			slog.String("user", userID),
			slog.String("module", "notify"),
		)
		return nil
	}
	contact := domain.Contact{Name: user.Name, Email: user.Email}
	d.contacts.Set(userID, contact, gocache.DefaultExpiration)
	return []domain.Contact{contact}
}

// eligibleContacts lists every curation-eligible user: admins and editors
// of the deposit container.
func (d *Dispatcher) eligibleContacts(ctx context.Context) []domain.Contact {
	deposit, err := d.containers.Get(ctx, d.depositName)
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve deposit container",
			slog.String("error", err.Error()),
			slog.String("module", "notify"),
		)
		return nil
	}
	users, err := d.containers.ListMembers(ctx, deposit.ID, domain.CapacityAdmin, domain.CapacityEditor)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list curation-eligible users",
			slog.String("error", err.Error()),
			slog.String("module", "notify"),
		)
		return nil
	}
	contacts := make([]domain.Contact, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, domain.Contact{Name: u.Name, Email: u.Email})
	}
	return contacts
}

// NotifyAccessRequest announces a new access request to its approvers.
func (d *Dispatcher) NotifyAccessRequest(ctx context.Context, req domain.AccessRequest, approvers []domain.User) {
	subject := fmt.Sprintf("[RIDL] Access request for %s %s", req.ObjectType, req.ObjectID)
	body := fmt.Sprintf("A user has requested access.\n\nMessage:\n%s\n\n%s/access-requests", req.Message, d.siteURL)
	for _, u := range approvers {
		if u.Email == "" {
			continue
		}
		job := MailJob{To: domain.Contact{Name: u.Name, Email: u.Email}, Subject: subject, Body: body}
		if err := d.queue.Enqueue(ctx, job); err != nil {
			metrics.NotificationFailures.Inc()
			slog.ErrorContext(ctx, "failed to enqueue access-request notification",
				slog.String("error", err.Error()),
				slog.String("module", "notify"),
			)
			continue
		}
		metrics.NotificationsEnqueued.Inc()
	}
}

// NotifyAccessDecision tells the requester how their request was decided.
func (d *Dispatcher) NotifyAccessDecision(ctx context.Context, req domain.AccessRequest) {
	contacts := d.contactsFor(ctx, req.UserID)
	if len(contacts) == 0 {
		return
	}
	subject := fmt.Sprintf("[RIDL] Access request %s", req.Status)
	body := fmt.Sprintf("Your access request for %s %s has been %s.", req.ObjectType, req.ObjectID, req.Status)
	if req.Message != "" {
		body += fmt.Sprintf("\n\nMessage:\n%s", req.Message)
	}
	job := MailJob{To: contacts[0], Subject: subject, Body: body}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		metrics.NotificationFailures.Inc()
		slog.ErrorContext(ctx, "failed to enqueue access-decision notification",
			slog.String("error", err.Error()),
			slog.String("module", "notify"),
		)
		return
	}
	metrics.NotificationsEnqueued.Inc()
}
