package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/nucleushq/ticket-engine/internal/config"
	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/events"
	"github.com/nucleushq/ticket-engine/internal/persistence"
	"github.com/nucleushq/ticket-engine/internal/repository"
)

// testNow is the fixed clock used by every harness so timestamps are
// deterministic.
var testNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

type fakeTx struct {
	calls int
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (f *fakeDispatcher) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	return nil
}

func (f *fakeDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (f *fakeDispatcher) byType(eventType events.EventType) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.published {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	nextNum int64
	nextID  int
	now     func() time.Time
	// conflicts rejects that many Create attempts with a unique violation,
	// consuming the contested number as the concurrent winner would.
	conflicts int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets: make(map[string]*domain.Ticket),
		now:     func() time.Time { return testNow },
	}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts > 0 {
		f.conflicts--
		f.nextNum++
		return &pgconn.PgError{Code: "23505"}
	}
	f.nextID++
	f.nextNum++
	ticket.ID = fmt.Sprintf("ticket-%d", f.nextID)
	ticket.Number = f.nextNum
	ticket.CreatedAt = f.now()
	ticket.UpdatedAt = f.now()
	stored := *ticket
	f.tickets[ticket.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = f.now()
	stored := *ticket
	f.tickets[ticket.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Active && ticket.Status == domain.TicketStatusDone {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.CreatorID != nil && (ticket.CreatorID == nil || *ticket.CreatorID != *filter.CreatorID) {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		if filter.Type != nil && ticket.Type != *filter.Type {
			continue
		}
		if filter.Search != nil && !strings.Contains(strings.ToLower(ticket.Title), strings.ToLower(*filter.Search)) {
			continue
		}
		out = append(out, *ticket)
	}

	sort.Slice(out, func(i, j int) bool {
		if filter.OrderAsc {
			return out[i].Number < out[j].Number
		}
		return out[i].Number > out[j].Number
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []domain.Ticket{}, nil
		}
		out = out[filter.Offset:]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeEmployeeRepo struct {
	mu        sync.Mutex
	employees []domain.Employee
}

func newFakeEmployeeRepo(employees ...domain.Employee) *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: employees}
}

func (f *fakeEmployeeRepo) GetByID(_ context.Context, id string) (*domain.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.employees {
		if e.ID == id {
			copied := e
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeEmployeeRepo) ListActive(_ context.Context) ([]domain.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Employee
	for _, e := range f.employees {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
	nextSeq int64
	failOn  domain.ActivityAction
}

func (f *fakeActivityRepo) Create(_ context.Context, entry *domain.ActivityEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && entry.Action == f.failOn {
		return fmt.Errorf("activity insert refused for %s", entry.Action)
	}
	f.nextSeq++
	entry.Seq = f.nextSeq
	entry.ID = fmt.Sprintf("activity-%d", f.nextSeq)
	entry.CreatedAt = testNow
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeActivityRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ActivityEntry
	for _, entry := range f.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) forTicket(ticketID string) []domain.ActivityEntry {
	entries, _ := f.ListByTicket(context.Background(), ticketID)
	return entries
}

type fakeNotificationRepo struct {
	mu         sync.Mutex
	items      []domain.Notification
	nextID     int
	failCreate error
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.nextID++
	notification.ID = fmt.Sprintf("notification-%d", f.nextID)
	notification.CreatedAt = testNow
	f.items = append(f.items, *notification)
	return nil
}

func (f *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for i := len(f.items) - 1; i >= 0; i-- {
		item := f.items[i]
		if item.RecipientID != recipientID {
			continue
		}
		if unreadOnly && item.IsRead {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var flipped int64
	for i := range f.items {
		if f.items[i].RecipientID == recipientID && !f.items[i].IsRead {
			f.items[i].IsRead = true
			flipped++
		}
	}
	return flipped, nil
}

func (f *fakeNotificationRepo) CountUnread(_ context.Context, recipientID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, item := range f.items {
		if item.RecipientID == recipientID && !item.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) forRecipient(recipientID string) []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, item := range f.items {
		if item.RecipientID == recipientID {
			out = append(out, item)
		}
	}
	return out
}

type fakeUnreadCache struct {
	mu     sync.Mutex
	counts map[string]int64
	getErr error
	incrs  int
	resets int
}

func newFakeUnreadCache() *fakeUnreadCache {
	return &fakeUnreadCache{counts: make(map[string]int64)}
}

func (f *fakeUnreadCache) Get(_ context.Context, recipientID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return 0, f.getErr
	}
	count, ok := f.counts[recipientID]
	if !ok {
		return 0, persistence.ErrCacheMiss
	}
	return count, nil
}

func (f *fakeUnreadCache) Set(_ context.Context, recipientID string, count int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[recipientID] = count
	return nil
}

func (f *fakeUnreadCache) Incr(_ context.Context, recipientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrs++
	if _, ok := f.counts[recipientID]; ok {
		f.counts[recipientID]++
	}
	return nil
}

func (f *fakeUnreadCache) Reset(_ context.Context, recipientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.counts[recipientID] = 0
	return nil
}

// ticketHarness wires a TicketService against in-memory fakes.
type ticketHarness struct {
	service    *TicketService
	tickets    *fakeTicketRepo
	employees  *fakeEmployeeRepo
	activity   *fakeActivityRepo
	notes      *fakeNotificationRepo
	dispatcher *fakeDispatcher
}

func newTicketHarness(employees ...domain.Employee) *ticketHarness {
	h := &ticketHarness{
		tickets:    newFakeTicketRepo(),
		employees:  newFakeEmployeeRepo(employees...),
		activity:   &fakeActivityRepo{},
		notes:      &fakeNotificationRepo{},
		dispatcher: &fakeDispatcher{},
	}
	notifier := NewNotificationService(h.notes, nil, zap.NewNop(), config.NotificationConfig{})
	h.service = NewTicketService(TicketDependencies{
		TicketRepo:   h.tickets,
		EmployeeRepo: h.employees,
		Recorder:     NewActivityRecorder(h.activity),
		Notifier:     notifier,
		Tx:           &fakeTx{},
		Dispatcher:   h.dispatcher,
		Logger:       zap.NewNop(),
		Clock:        func() time.Time { return testNow },
	})
	return h
}

// commentHarness wires a CommentService against in-memory fakes sharing the
// ticket fixtures with a ticketHarness.
type commentHarness struct {
	service    *CommentService
	tickets    *fakeTicketRepo
	employees  *fakeEmployeeRepo
	activity   *fakeActivityRepo
	notes      *fakeNotificationRepo
	comments   *fakeCommentRepo
	dispatcher *fakeDispatcher
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments []domain.Comment
	nextID   int
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	comment.ID = fmt.Sprintf("comment-%d", f.nextID)
	comment.CreatedAt = testNow
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Comment
	for _, c := range f.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

func newCommentHarness(employees ...domain.Employee) *commentHarness {
	h := &commentHarness{
		tickets:    newFakeTicketRepo(),
		employees:  newFakeEmployeeRepo(employees...),
		activity:   &fakeActivityRepo{},
		notes:      &fakeNotificationRepo{},
		comments:   &fakeCommentRepo{},
		dispatcher: &fakeDispatcher{},
	}
	notifier := NewNotificationService(h.notes, nil, zap.NewNop(), config.NotificationConfig{})
	h.service = NewCommentService(CommentDependencies{
		CommentRepo:      h.comments,
		TicketRepo:       h.tickets,
		EmployeeRepo:     h.employees,
		NotificationRepo: h.notes,
		Recorder:         NewActivityRecorder(h.activity),
		Notifier:         notifier,
		Tx:               &fakeTx{},
		Dispatcher:       h.dispatcher,
		Logger:           zap.NewNop(),
	})
	return h
}

func (h *commentHarness) seedTicket(creatorID, assigneeID *string) *domain.Ticket {
	ticket := &domain.Ticket{
		Title:      "Broken export",
		Type:       domain.TicketTypeBug,
		Priority:   domain.TicketPriorityMedium,
		Status:     domain.TicketStatusOpen,
		CreatorID:  creatorID,
		AssigneeID: assigneeID,
	}
	_ = h.tickets.Create(context.Background(), ticket)
	return ticket
}

func employee(id, name string) domain.Employee {
	return domain.Employee{ID: id, Name: name, Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com", Role: "member", Active: true, CreatedAt: testNow}
}
