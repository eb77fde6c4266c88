package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/okfn/ridl-curation"
	"github.com/okfn/ridl-curation/internal/domain"
)

// --- shared fixture ---

const (
	depositContainerID = "dc"
	depositName        = "data-deposit"
	destContainerID    = "org1"

	depositorID = "alice"
	curatorID   = "carol"
	adminID     = "dave"
	destAdminID = "oscar"
	sysadminID  = "sys"
	strangerID  = "rando"
)

type fixture struct {
	users      map[string]domain.User
	containers map[string]domain.Container
	// members: containerID -> userID -> capacity
	members map[string]map[string]domain.Capacity
}

func newFixture() *fixture {
	return &fixture{
		users: map[string]domain.User{
			depositorID: {ID: depositorID, Name: "Alice", Email: "alice@example.org"},
			curatorID:   {ID: curatorID, Name: "Carol", Email: "carol@example.org"},
			adminID:     {ID: adminID, Name: "Dave", Email: "dave@example.org"},
			destAdminID: {ID: destAdminID, Name: "Oscar", Email: "oscar@example.org"},
			sysadminID:  {ID: sysadminID, Name: "Sys", Email: "sys@example.org", Sysadmin: true},
			strangerID:  {ID: strangerID, Name: "Rando", Email: "rando@example.org"},
		},
		containers: map[string]domain.Container{
			depositContainerID: {ID: depositContainerID, Name: depositName, Title: "Data deposit"},
			destContainerID:    {ID: destContainerID, Name: "regional-office", Title: "Regional office"},
		},
		members: map[string]map[string]domain.Capacity{
			depositContainerID: {
				adminID:   domain.CapacityAdmin,
				curatorID: domain.CapacityEditor,
			},
			destContainerID: {
				destAdminID: domain.CapacityAdmin,
			},
		},
	}
}

// --- container repository mock ---

type mockContainerRepo struct {
	f *fixture
}

func (m *mockContainerRepo) Get(ctx context.Context, idOrName string) (domain.Container, error) {
	for _, c := range m.f.containers {
		if c.ID == idOrName || c.Name == idOrName {
			return c, nil
		}
	}
	return domain.Container{}, domain.NotFoundError{Resource: "container"}
}

func (m *mockContainerRepo) UserCapacity(ctx context.Context, containerID, userID string) (domain.Capacity, error) {
	return m.f.members[containerID][userID], nil
}

func (m *mockContainerRepo) ListMembers(ctx context.Context, containerID string, capacities ...domain.Capacity) ([]domain.User, error) {
	var out []domain.User
	for userID, capacity := range m.f.members[containerID] {
		for _, want := range capacities {
			if capacity == want {
				out = append(out, m.f.users[userID])
				break
			}
		}
	}
	return out, nil
}

// --- user repository mock ---

type mockUserRepo struct {
	f *fixture
}

func (m *mockUserRepo) Get(ctx context.Context, id string) (domain.User, error) {
	if u, ok := m.f.users[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.NotFoundError{Resource: "user"}
}

func (m *mockUserRepo) GetByAPIKey(ctx context.Context, key string) (domain.User, error) {
	id := strings.TrimPrefix(key, "key-")
	if id != key {
		return m.Get(ctx, id)
	}
	return domain.User{}, domain.NotFoundError{Resource: "user"}
}

func (m *mockUserRepo) ListSysadmins(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range m.f.users {
		if u.Sysadmin {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- dataset repository mock ---

type mockDatasetRepo struct {
	datasets   map[string]*ridl.Dataset
	activities []domain.CurationActivity
	nextID     int
	failSave   error
}

func newMockDatasetRepo(datasets ...*ridl.Dataset) *mockDatasetRepo {
	m := &mockDatasetRepo{datasets: map[string]*ridl.Dataset{}}
	for _, ds := range datasets {
		m.datasets[ds.ID] = ds.Clone()
	}
	m.nextID = len(datasets)
	return m
}

func (m *mockDatasetRepo) Get(ctx context.Context, idOrName string) (*ridl.Dataset, error) {
	for _, ds := range m.datasets {
		if ds.ID == idOrName || ds.Name == idOrName {
			return ds.Clone(), nil
		}
	}
	return nil, domain.NotFoundError{Resource: "dataset"}
}

func (m *mockDatasetRepo) Create(ctx context.Context, ds *ridl.Dataset) (*ridl.Dataset, error) {
	for _, existing := range m.datasets {
		if existing.Name == ds.Name && existing.State == ridl.StateActive {
			fieldErrs := domain.FieldErrors{}
			fieldErrs.Add("name", "That URL is already in use")
			return nil, domain.ValidationError{Fields: fieldErrs}
		}
	}
	out := ds.Clone()
	m.nextID++
	out.ID = fmt.Sprintf("ds-%d", m.nextID)
	m.datasets[out.ID] = out
	return out.Clone(), nil
}

func (m *mockDatasetRepo) SaveTransition(ctx context.Context, ds *ridl.Dataset, activity domain.CurationActivity) (*ridl.Dataset, error) {
	if m.failSave != nil {
		return nil, m.failSave
	}
	m.datasets[ds.ID] = ds.Clone()
	m.activities = append(m.activities, activity)
	return ds.Clone(), nil
}

func (m *mockDatasetRepo) activitiesOf(datasetID string) []domain.CurationActivity {
	var out []domain.CurationActivity
	for _, a := range m.activities {
		if a.DatasetID == datasetID {
			out = append(out, a)
		}
	}
	return out
}

// --- activity repository mock ---

type mockActivityRepo struct {
	datasets *mockDatasetRepo
}

func (m *mockActivityRepo) List(ctx context.Context, datasetID string) ([]domain.CurationActivity, error) {
	return m.datasets.activitiesOf(datasetID), nil
}

// --- queue / notifier / publisher mocks ---

type mockQueue struct {
	jobs    []MailJob
	failErr error
}

func (m *mockQueue) Enqueue(ctx context.Context, job MailJob) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockQueue) emails() []string {
	var out []string
	for _, job := range m.jobs {
		out = append(out, job.To.Email)
	}
	return out
}

type mockNotifier struct {
	inputs []NotifyInput
}

func (m *mockNotifier) Notify(ctx context.Context, in NotifyInput) {
	m.inputs = append(m.inputs, in)
}

type mockPublisher struct {
	events []domain.CurationEvent
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.CurationEvent) error {
	m.events = append(m.events, event)
	return nil
}

// --- access request repository mock ---

type mockAccessRepo struct {
	requests map[int64]domain.AccessRequest
	nextID   int64
}

func newMockAccessRepo() *mockAccessRepo {
	return &mockAccessRepo{requests: map[int64]domain.AccessRequest{}}
}

func (m *mockAccessRepo) Create(ctx context.Context, req *domain.AccessRequest) error {
	m.nextID++
	req.ID = m.nextID
	m.requests[req.ID] = *req
	return nil
}

func (m *mockAccessRepo) Get(ctx context.Context, id int64) (domain.AccessRequest, error) {
	if req, ok := m.requests[id]; ok {
		return req, nil
	}
	return domain.AccessRequest{}, domain.NotFoundError{Resource: "access request"}
}

func (m *mockAccessRepo) ListPending(ctx context.Context) ([]domain.AccessRequest, error) {
	var out []domain.AccessRequest
	for _, req := range m.requests {
		if req.Status == domain.AccessRequested {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *mockAccessRepo) SetStatus(ctx context.Context, id int64, status domain.AccessRequestStatus) error {
	req, ok := m.requests[id]
	if !ok {
		return domain.NotFoundError{Resource: "access request"}
	}
	req.Status = status
	m.requests[id] = req
	return nil
}

// --- dataset factories ---

func validDeposit(id, name, state string) *ridl.Dataset {
	return &ridl.Dataset{
		ID:                      id,
		Name:                    name,
		Title:                   "Household survey 2025",
		Type:                    ridl.TypeDeposited,
		State:                   ridl.StateActive,
		OwnerOrg:                depositContainerID,
		OwnerOrgDest:            destContainerID,
		CurationState:           state,
		CreatorUserID:           depositorID,
		Notes:                   "Anonymized household-level microdata.",
		DataCollector:           "UNHCR",
		DataCollectionTechnique: "f2f",
		UnitOfMeasurement:       "household",
		Keywords:                []string{"protection"},
		ExternalAccessLevel:     "public_use",
	}
}

func invalidDeposit(id, name, state string) *ridl.Dataset {
	ds := validDeposit(id, name, state)
	ds.Notes = ""
	ds.DataCollector = ""
	return ds
}
