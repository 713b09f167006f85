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

// commentPreviewLen caps the comment excerpt stored on the activity entry.
const commentPreviewLen = 100

// CommentService persists threaded comments, resolves @mentions and fans out
// the resulting notifications.
type CommentService struct {
	comments      repository.CommentRepository
	tickets       repository.TicketRepository
	employees     repository.EmployeeRepository
	notifications repository.NotificationRepository
	recorder      *ActivityRecorder
	notifier      *NotificationService
	tx            persistence.TxRunner
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	CommentRepo      repository.CommentRepository
	TicketRepo       repository.TicketRepository
	EmployeeRepo     repository.EmployeeRepository
	NotificationRepo repository.NotificationRepository
	Recorder         *ActivityRecorder
	Notifier         *NotificationService
	Tx               persistence.TxRunner
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		comments:      deps.CommentRepo,
		tickets:       deps.TicketRepo,
		employees:     deps.EmployeeRepo,
		notifications: deps.NotificationRepo,
		recorder:      deps.Recorder,
		notifier:      deps.Notifier,
		tx:            deps.Tx,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// PostComment validates and persists a comment. The comment row, its
// activity entry and the mention notifications commit as one unit; the
// courtesy notifications to the creator and assignee are dispatched after
// commit and never roll the comment back.
func (s *CommentService) PostComment(ctx context.Context, ticketID string, authorID *string, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketError(err)
	}

	members, err := s.employees.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	mentions := newMentionIndex(members).Resolve(content)

	authorName := s.displayName(ctx, authorID)

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: authorID,
		Content:  content,
		Mentions: mentions,
	}

	var mentionRecipients []string
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.comments.Create(ctx, comment); err != nil {
			return err
		}
		preview := truncate(content, commentPreviewLen)
		if err := s.recorder.Record(ctx, ticket.ID, authorID, domain.ActivityCommented, nil, &preview); err != nil {
			return err
		}
		for _, mentionedID := range mentions {
			if authorID != nil && mentionedID == *authorID {
				continue
			}
			notification := &domain.Notification{
				RecipientID: mentionedID,
				TicketID:    ticket.ID,
				Type:        domain.NotificationMentioned,
				Message:     fmt.Sprintf("%s mentioned you in ticket #%d: %s", authorName, ticket.Number, ticket.Title),
				ActorID:     authorID,
			}
			if err := s.notifications.Create(ctx, notification); err != nil {
				return err
			}
			mentionRecipients = append(mentionRecipients, mentionedID)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.notifier.TouchUnread(ctx, mentionRecipients...)
	s.notifyWatchers(ctx, ticket, authorID, authorName, mentions)
	s.publishEvent(ctx, events.Event{
		Type:         events.EventTicketCommented,
		TicketID:     ticket.ID,
		TicketNumber: ticket.Number,
		ActorID:      authorID,
		Payload: events.TicketCommentedPayload{
			CommentID:      comment.ID,
			AuthorID:       authorID,
			MentionedIDs:   mentions,
			ContentPreview: truncate(content, commentPreviewLen),
		},
	})
	return comment, nil
}

// ListComments returns a ticket's thread in creation order.
func (s *CommentService) ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// notifyWatchers tells the ticket creator and assignee about the comment
// unless they wrote it or were already mentioned. Best-effort.
func (s *CommentService) notifyWatchers(ctx context.Context, ticket *domain.Ticket, authorID *string, authorName string, mentions []string) {
	mentioned := make(map[string]struct{}, len(mentions))
	for _, id := range mentions {
		mentioned[id] = struct{}{}
	}
	isAuthor := func(id string) bool {
		return authorID != nil && *authorID == id
	}

	message := fmt.Sprintf("%s commented on ticket #%d: %s", authorName, ticket.Number, ticket.Title)
	recipients := make([]string, 0, 2)
	if ticket.CreatorID != nil && !isAuthor(*ticket.CreatorID) {
		if _, ok := mentioned[*ticket.CreatorID]; !ok {
			recipients = append(recipients, *ticket.CreatorID)
		}
	}
	if ticket.AssigneeID != nil && !isAuthor(*ticket.AssigneeID) &&
		(ticket.CreatorID == nil || *ticket.AssigneeID != *ticket.CreatorID) {
		if _, ok := mentioned[*ticket.AssigneeID]; !ok {
			recipients = append(recipients, *ticket.AssigneeID)
		}
	}

	for _, recipientID := range recipients {
		notification := &domain.Notification{
			RecipientID: recipientID,
			TicketID:    ticket.ID,
			Type:        domain.NotificationCommented,
			Message:     message,
			ActorID:     authorID,
		}
		if err := s.notifier.Notify(ctx, notification); err != nil {
			s.logger.Warn("comment notification failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("recipient_id", recipientID),
				zap.Error(err))
		}
	}
}

func (s *CommentService) displayName(ctx context.Context, employeeID *string) string {
	if employeeID == nil {
		return "Someone"
	}
	employee, err := s.employees.GetByID(ctx, *employeeID)
	if err != nil {
		return "Someone"
	}
	return employee.Name
}

func (s *CommentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
