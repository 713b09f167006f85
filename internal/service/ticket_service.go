package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/events"
	"github.com/nucleushq/ticket-engine/internal/persistence"
	"github.com/nucleushq/ticket-engine/internal/repository"
	apperrors "github.com/nucleushq/ticket-engine/pkg/util"
)

// AssignmentField selects which holder slot an assignment targets.
type AssignmentField string

const (
	FieldAssignee AssignmentField = "assignee"
	FieldReviewer AssignmentField = "reviewer"
)

// createNumberRetries bounds how often a create is re-run when concurrent
// creates collide on the ticket number unique index. Each attempt is a fresh
// transaction; the unique violation aborts the previous one.
const createNumberRetries = 5

// TicketService owns ticket records and validates every transition against
// the lifecycle rules: any status may move to any other, except that a
// ticket leaves testing for done only with a reviewer who is not the
// assignee.
type TicketService struct {
	tickets    repository.TicketRepository
	employees  repository.EmployeeRepository
	recorder   *ActivityRecorder
	notifier   *NotificationService
	tx         persistence.TxRunner
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	EmployeeRepo repository.EmployeeRepository
	Recorder     *ActivityRecorder
	Notifier     *NotificationService
	Tx           persistence.TxRunner
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		employees:  deps.EmployeeRepo,
		recorder:   deps.Recorder,
		notifier:   deps.Notifier,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		clock:      clock,
	}
}

// CreateInput describes ticket creation payload.
type CreateInput struct {
	Title       string
	Description *string
	Type        domain.TicketType
	Priority    domain.TicketPriority
	AssigneeID  *string
}

// UpdateInput describes a partial ticket update. Assignee and reviewer carry
// a Set flag so clearing a holder (nil id) is distinguishable from leaving
// the field untouched. ExpectedUpdatedAt, when present, must match the
// current row or the whole update is rejected as a stale write.
type UpdateInput struct {
	Title             *string
	Description       *string
	Type              *domain.TicketType
	Priority          *domain.TicketPriority
	Status            *domain.TicketStatus
	SetAssignee       bool
	AssigneeID        *string
	SetReviewer       bool
	ReviewerID        *string
	ExpectedUpdatedAt *time.Time
}

// ListFilter describes list/board queries in client terms. Status accepts
// the five states plus the pseudo-value "active" (everything not done).
type ListFilter struct {
	Status     string
	AssigneeID *string
	CreatorID  *string
	Priority   string
	Type       string
	Search     *string
	Limit      int
	Offset     int
}

// BoardColumn is one status bucket of the board view.
type BoardColumn struct {
	Status  domain.TicketStatus
	Tickets []domain.Ticket
}

// CreateTicket validates input, assigns the next workspace number and
// records the creation in the activity log, all in one transaction.
func (s *TicketService) CreateTicket(ctx context.Context, creatorID *string, input CreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if input.Type == "" {
		input.Type = domain.TicketTypeBug
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: trimDescription(input.Description),
		Type:        input.Type,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatorID:   creatorID,
		AssigneeID:  input.AssigneeID,
	}

	var err error
	for attempt := 0; attempt < createNumberRetries; attempt++ {
		err = s.tx.InTx(ctx, func(ctx context.Context) error {
			if err := s.tickets.Create(ctx, ticket); err != nil {
				return err
			}
			initial := string(domain.TicketStatusOpen)
			return s.recorder.Record(ctx, ticket.ID, creatorID, domain.ActivityCreated, nil, &initial)
		})
		if err == nil || !persistence.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.AssigneeID != nil && !sameID(ticket.AssigneeID, creatorID) {
		s.sendAssignedNotification(ctx, ticket, FieldAssignee, *ticket.AssigneeID, creatorID)
	}
	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketCreated,
		TicketID:     ticket.ID,
		TicketNumber: ticket.Number,
		ActorID:      creatorID,
		Payload: events.TicketCreatedPayload{
			Title:      ticket.Title,
			Type:       ticket.Type,
			Priority:   ticket.Priority,
			AssigneeID: ticket.AssigneeID,
		},
	})
	return ticket, nil
}

// GetTicket fetches one ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketError(err)
	}
	return ticket, nil
}

// ListTickets applies the composed filters, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter ListFilter) ([]domain.Ticket, error) {
	repoFilter, err := s.repoFilter(filter)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// Board groups the filtered tickets into the five fixed status columns,
// preserving creation order within each column.
func (s *TicketService) Board(ctx context.Context, filter ListFilter) ([]BoardColumn, error) {
	repoFilter, err := s.repoFilter(filter)
	if err != nil {
		return nil, err
	}
	repoFilter.OrderAsc = true
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	buckets := make(map[domain.TicketStatus][]domain.Ticket, len(domain.StatusColumns))
	for _, ticket := range tickets {
		buckets[ticket.Status] = append(buckets[ticket.Status], ticket)
	}
	columns := make([]BoardColumn, 0, len(domain.StatusColumns))
	for _, status := range domain.StatusColumns {
		bucket := buckets[status]
		if bucket == nil {
			bucket = []domain.Ticket{}
		}
		columns = append(columns, BoardColumn{Status: status, Tickets: bucket})
	}
	return columns, nil
}

// ChangeStatus moves a ticket to a new lifecycle state.
func (s *TicketService) ChangeStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, actorID *string) (*domain.Ticket, error) {
	return s.UpdateTicket(ctx, ticketID, actorID, UpdateInput{Status: &newStatus})
}

// Assign sets or clears the assignee or reviewer slot.
func (s *TicketService) Assign(ctx context.Context, ticketID string, field AssignmentField, employeeID *string, actorID *string) (*domain.Ticket, error) {
	input := UpdateInput{}
	switch field {
	case FieldAssignee:
		input.SetAssignee = true
		input.AssigneeID = employeeID
	case FieldReviewer:
		input.SetReviewer = true
		input.ReviewerID = employeeID
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid assignment field %q", field), nil)
	}
	return s.UpdateTicket(ctx, ticketID, actorID, input)
}

// ChangePriority updates priority unconditionally.
func (s *TicketService) ChangePriority(ctx context.Context, ticketID string, newPriority domain.TicketPriority, actorID *string) (*domain.Ticket, error) {
	return s.UpdateTicket(ctx, ticketID, actorID, UpdateInput{Priority: &newPriority})
}

// pendingNotification is fan-out deferred until after the transaction
// commits; notification delivery is best-effort relative to the primary
// write.
type pendingNotification struct {
	field       AssignmentField
	recipientID string
	statusMove  bool
}

// UpdateTicket applies a partial update as one atomic unit: the ticket row,
// one activity entry per observable change, nothing on failure.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID string, actorID *string, input UpdateInput) (*domain.Ticket, error) {
	var (
		ticket  *domain.Ticket
		pending []pendingNotification
		evs     []events.Event
	)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return ticketError(err)
		}
		if input.ExpectedUpdatedAt != nil && !current.UpdatedAt.Equal(*input.ExpectedUpdatedAt) {
			return apperrors.NewConflict("ticket was modified by someone else", map[string]any{
				"updated_at": current.UpdatedAt,
			})
		}

		nextAssignee := current.AssigneeID
		if input.SetAssignee {
			nextAssignee = input.AssigneeID
		}
		nextReviewer := current.ReviewerID
		if input.SetReviewer {
			nextReviewer = input.ReviewerID
		}
		if nextReviewer != nil && nextAssignee != nil && *nextReviewer == *nextAssignee {
			return apperrors.NewValidationError("the reviewer cannot be the same person as the assignee", nil)
		}

		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return apperrors.NewValidationError("title is required", nil)
			}
			current.Title = title
		}
		if input.Description != nil {
			current.Description = trimDescription(input.Description)
		}
		if input.Type != nil {
			current.Type = *input.Type
		}

		if input.Status != nil && *input.Status != current.Status {
			oldStatus := current.Status
			newStatus := *input.Status

			// QA gate: the testing -> done edge requires an independent
			// reviewer. Every other edge in the graph is unguarded.
			if newStatus == domain.TicketStatusDone && oldStatus == domain.TicketStatusTesting && nextReviewer == nil {
				return apperrors.NewQAGateViolation("a reviewer must verify the ticket before it can be marked done")
			}

			current.Status = newStatus
			if newStatus == domain.TicketStatusDone {
				now := s.clock()
				current.ResolvedAt = &now
			} else if oldStatus == domain.TicketStatusDone {
				current.ResolvedAt = nil
			}

			from, to := string(oldStatus), string(newStatus)
			if err := s.recorder.Record(ctx, current.ID, actorID, domain.ActivityStatusChanged, &from, &to); err != nil {
				return err
			}
			for _, watcher := range []*string{nextAssignee, nextReviewer} {
				if watcher != nil && !sameID(watcher, actorID) {
					pending = append(pending, pendingNotification{statusMove: true, recipientID: *watcher})
				}
			}
			evs = append(evs, events.Event{
				Type:    events.EventTicketStatusChanged,
				Payload: events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: newStatus},
			})
		}

		if input.SetAssignee && !sameID(current.AssigneeID, input.AssigneeID) {
			from, to := current.AssigneeID, input.AssigneeID
			current.AssigneeID = input.AssigneeID
			if err := s.recorder.Record(ctx, current.ID, actorID, domain.ActivityAssigned, from, to); err != nil {
				return err
			}
			if to != nil && !sameID(to, actorID) {
				pending = append(pending, pendingNotification{field: FieldAssignee, recipientID: *to})
			}
			evs = append(evs, events.Event{
				Type:    events.EventTicketAssigned,
				Payload: events.TicketAssignedPayload{Field: string(FieldAssignee), EmployeeID: to},
			})
		}

		if input.SetReviewer && !sameID(current.ReviewerID, input.ReviewerID) {
			from, to := current.ReviewerID, input.ReviewerID
			current.ReviewerID = input.ReviewerID
			if err := s.recorder.Record(ctx, current.ID, actorID, domain.ActivityAssigned, from, to); err != nil {
				return err
			}
			if to != nil && !sameID(to, actorID) {
				pending = append(pending, pendingNotification{field: FieldReviewer, recipientID: *to})
			}
			evs = append(evs, events.Event{
				Type:    events.EventTicketAssigned,
				Payload: events.TicketAssignedPayload{Field: string(FieldReviewer), EmployeeID: to},
			})
		}

		if input.Priority != nil && *input.Priority != current.Priority {
			from, to := string(current.Priority), string(*input.Priority)
			current.Priority = *input.Priority
			if err := s.recorder.Record(ctx, current.ID, actorID, domain.ActivityPriorityChanged, &from, &to); err != nil {
				return err
			}
			evs = append(evs, events.Event{
				Type:    events.EventTicketPriorityChanged,
				Payload: events.TicketPriorityChangedPayload{OldPriority: domain.TicketPriority(from), NewPriority: domain.TicketPriority(to)},
			})
		}

		if err := s.tickets.Update(ctx, current); err != nil {
			return err
		}
		ticket = current
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.dispatchPending(ctx, ticket, actorID, pending)
	for _, event := range evs {
		event.TicketID = ticket.ID
		event.TicketNumber = ticket.Number
		event.ActorID = actorID
		s.publishEvent(ctx, event)
	}
	return ticket, nil
}

func (s *TicketService) dispatchPending(ctx context.Context, ticket *domain.Ticket, actorID *string, pending []pendingNotification) {
	for _, p := range pending {
		if p.statusMove {
			notification := &domain.Notification{
				RecipientID: p.recipientID,
				TicketID:    ticket.ID,
				Type:        domain.NotificationStatusChanged,
				Message:     fmt.Sprintf("Ticket #%d moved to %s", ticket.Number, ticket.Status.Label()),
				ActorID:     actorID,
			}
			if err := s.notifier.Notify(ctx, notification); err != nil {
				s.logger.Warn("status notification failed",
					zap.String("ticket_id", ticket.ID),
					zap.String("recipient_id", p.recipientID),
					zap.Error(err))
			}
			continue
		}
		s.sendAssignedNotification(ctx, ticket, p.field, p.recipientID, actorID)
	}
}

func (s *TicketService) sendAssignedNotification(ctx context.Context, ticket *domain.Ticket, field AssignmentField, recipientID string, actorID *string) {
	actorName := s.displayName(ctx, actorID)
	message := fmt.Sprintf("%s assigned you ticket #%d: %s", actorName, ticket.Number, ticket.Title)
	if field == FieldReviewer {
		message = fmt.Sprintf("%s assigned you as reviewer on ticket #%d: %s", actorName, ticket.Number, ticket.Title)
	}
	notification := &domain.Notification{
		RecipientID: recipientID,
		TicketID:    ticket.ID,
		Type:        domain.NotificationAssigned,
		Message:     message,
		ActorID:     actorID,
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.logger.Warn("assignment notification failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("recipient_id", recipientID),
			zap.Error(err))
	}
}

func (s *TicketService) repoFilter(filter ListFilter) (repository.TicketFilter, error) {
	repoFilter := repository.TicketFilter{
		AssigneeID: filter.AssigneeID,
		CreatorID:  filter.CreatorID,
		Search:     filter.Search,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	switch filter.Status {
	case "", "all":
	case "active":
		repoFilter.Active = true
	default:
		status, err := domain.ParseTicketStatus(filter.Status)
		if err != nil {
			return repository.TicketFilter{}, apperrors.NewValidationError(err.Error(), nil)
		}
		repoFilter.Status = &status
	}
	if filter.Priority != "" {
		priority, err := domain.ParseTicketPriority(filter.Priority)
		if err != nil {
			return repository.TicketFilter{}, apperrors.NewValidationError(err.Error(), nil)
		}
		repoFilter.Priority = &priority
	}
	if filter.Type != "" {
		ticketType, err := domain.ParseTicketType(filter.Type)
		if err != nil {
			return repository.TicketFilter{}, apperrors.NewValidationError(err.Error(), nil)
		}
		repoFilter.Type = &ticketType
	}
	return repoFilter, nil
}

func (s *TicketService) displayName(ctx context.Context, employeeID *string) string {
	if employeeID == nil {
		return "Someone"
	}
	employee, err := s.employees.GetByID(ctx, *employeeID)
	if err != nil {
		return "Someone"
	}
	return employee.Name
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func ticketError(err error) error {
	if de := apperrors.ToDomainError(err); de.Code == "NOT_FOUND" {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.MapError(err)
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func trimDescription(description *string) *string {
	if description == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
