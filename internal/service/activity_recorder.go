package service

import (
	"context"

	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/repository"
	apperrors "github.com/nucleushq/ticket-engine/pkg/util"
)

// ActivityRecorder appends audit entries on behalf of the other services.
// It is only invoked from inside their transactions so an entry never
// outlives a rolled-back mutation, and a mutation never commits without its
// entry.
type ActivityRecorder struct {
	activity repository.ActivityRepository
}

// NewActivityRecorder constructs the recorder.
func NewActivityRecorder(activityRepo repository.ActivityRepository) *ActivityRecorder {
	return &ActivityRecorder{activity: activityRepo}
}

// Record appends one entry for an observed ticket mutation.
func (r *ActivityRecorder) Record(ctx context.Context, ticketID string, actorID *string, action domain.ActivityAction, fromValue, toValue *string) error {
	entry := &domain.ActivityEntry{
		TicketID:  ticketID,
		ActorID:   actorID,
		Action:    action,
		FromValue: fromValue,
		ToValue:   toValue,
	}
	if err := r.activity.Create(ctx, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// List returns a ticket's full history in creation order.
func (r *ActivityRecorder) List(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	entries, err := r.activity.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if entries == nil {
		entries = []domain.ActivityEntry{}
	}
	return entries, nil
}
