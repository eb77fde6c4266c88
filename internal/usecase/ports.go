package usecase

import (
	"context"

	"github.com/okfn/ridl-curation"
	"github.com/okfn/ridl-curation/internal/domain"
)

// DatasetRepository defines storage operations for datasets.
type DatasetRepository interface {
	Get(ctx context.Context, idOrName string) (*ridl.Dataset, error)
	Create(ctx context.Context, ds *ridl.Dataset) (*ridl.Dataset, error)
	// SaveTransition persists the mutated dataset and appends its audit
	// entry in one transaction.
	SaveTransition(ctx context.Context, ds *ridl.Dataset, activity domain.CurationActivity) (*ridl.Dataset, error)
}

// ContainerRepository defines lookup for containers and memberships.
type ContainerRepository interface {
	Get(ctx context.Context, idOrName string) (domain.Container, error)
	UserCapacity(ctx context.Context, containerID, userID string) (domain.Capacity, error)
	ListMembers(ctx context.Context, containerID string, capacities ...domain.Capacity) ([]domain.User, error)
}

// UserRepository defines identity lookup.
type UserRepository interface {
	Get(ctx context.Context, id string) (domain.User, error)
	GetByAPIKey(ctx context.Context, key string) (domain.User, error)
	ListSysadmins(ctx context.Context) ([]domain.User, error)
}

// ActivityRepository reads the append-only curation audit trail.
type ActivityRepository interface {
	List(ctx context.Context, datasetID string) ([]domain.CurationActivity, error)
}

// AccessRequestRepository defines storage for access requests.
type AccessRequestRepository interface {
	Create(ctx context.Context, req *domain.AccessRequest) error
	Get(ctx context.Context, id int64) (domain.AccessRequest, error)
	ListPending(ctx context.Context) ([]domain.AccessRequest, error)
	SetStatus(ctx context.Context, id int64, status domain.AccessRequestStatus) error
}

// Validator runs the publish-time dataset schema.
type Validator interface {
	Validate(ds *ridl.Dataset) domain.FieldErrors
}

// MailJob is one outbound email, enqueued as an independent unit so partial
// failure of one recipient never blocks the others.
type MailJob struct {
	To      domain.Contact `json:"to"`
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
}

// JobQueue hands mail jobs to the background sender, fire and forget.
type JobQueue interface {
	Enqueue(ctx context.Context, job MailJob) error
}

// Mailer performs the synchronous send, used by the queue worker.
type Mailer interface {
	Send(ctx context.Context, to domain.Contact, subject, body string) error
}

// EventPublisher pushes transition events to the realtime feed.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.CurationEvent) error
}
