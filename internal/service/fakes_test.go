package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
	"github.com/greenwhite/servicedesk-sla/internal/events"
)

func strp(s string) *string { return &s }

func intp(i int) *int { return &i }

func timep(t time.Time) *time.Time { return &t }

type fakeTicketRepo struct {
	byID      map[string]*domain.Ticket
	active    []domain.Ticket
	all       []domain.Ticket
	updates   []domain.Ticket
	updateErr error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{byID: map[string]*domain.Ticket{}}
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket, nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, *ticket)
	return nil
}

func (f *fakeTicketRepo) ListActiveWithPolicy(context.Context) ([]domain.Ticket, error) {
	return f.active, nil
}

func (f *fakeTicketRepo) ListWithPolicy(context.Context) ([]domain.Ticket, error) {
	return f.all, nil
}

func (f *fakeTicketRepo) ListApproachingBreach(_ context.Context, threshold time.Time) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range f.active {
		if ticket.FirstResponseAt == nil && ticket.FirstResponseDueAt != nil &&
			!ticket.FirstResponseBreached && ticket.FirstResponseDueAt.Before(threshold) {
			result = append(result, ticket)
			continue
		}
		if ticket.ResolutionDueAt != nil && !ticket.ResolutionBreached &&
			ticket.ResolutionDueAt.Before(threshold) {
			result = append(result, ticket)
		}
	}
	return result, nil
}

func (f *fakeTicketRepo) ListBreached(context.Context) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range f.active {
		if ticket.FirstResponseBreached || ticket.ResolutionBreached {
			result = append(result, ticket)
		}
	}
	return result, nil
}

type fakePolicyRepo struct {
	byID      map[string]*domain.SlaPolicy
	byProject map[string][]domain.SlaPolicy
	def       *domain.SlaPolicy
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{
		byID:      map[string]*domain.SlaPolicy{},
		byProject: map[string][]domain.SlaPolicy{},
	}
}

func (f *fakePolicyRepo) GetByID(_ context.Context, id string) (*domain.SlaPolicy, error) {
	policy, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return policy, nil
}

func (f *fakePolicyRepo) FindActiveByProject(_ context.Context, projectID string) ([]domain.SlaPolicy, error) {
	return f.byProject[projectID], nil
}

func (f *fakePolicyRepo) FindDefault(context.Context) (*domain.SlaPolicy, error) {
	if f.def == nil {
		return nil, pgx.ErrNoRows
	}
	return f.def, nil
}

func (f *fakePolicyRepo) List(context.Context) ([]domain.SlaPolicy, error) {
	var result []domain.SlaPolicy
	for _, policy := range f.byID {
		result = append(result, *policy)
	}
	return result, nil
}

type fakeCalendarRepo struct {
	byID map[string]*domain.BusinessCalendar
}

func newFakeCalendarRepo() *fakeCalendarRepo {
	return &fakeCalendarRepo{byID: map[string]*domain.BusinessCalendar{}}
}

func (f *fakeCalendarRepo) GetByID(_ context.Context, id string) (*domain.BusinessCalendar, error) {
	cal, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cal, nil
}

func (f *fakeCalendarRepo) List(context.Context) ([]domain.BusinessCalendar, error) {
	var result []domain.BusinessCalendar
	for _, cal := range f.byID {
		result = append(result, *cal)
	}
	return result, nil
}

type fakeTeamRepo struct {
	byID map[string]*domain.Team
}

func (f *fakeTeamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	team, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return team, nil
}

type fakeUserRepo struct {
	byID map[string]*domain.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type fakeMetricsCache struct {
	stored *domain.SlaMetrics
	sets   int
}

func (c *fakeMetricsCache) Get(context.Context) (*domain.SlaMetrics, bool) {
	if c.stored == nil {
		return nil, false
	}
	return c.stored, true
}

func (c *fakeMetricsCache) Set(_ context.Context, metrics *domain.SlaMetrics) {
	c.stored = metrics
	c.sets++
}
