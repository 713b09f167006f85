package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nucleushq/ticket-engine/internal/config"
	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/persistence"
	"github.com/nucleushq/ticket-engine/internal/repository"
	apperrors "github.com/nucleushq/ticket-engine/pkg/util"
)

// listLimit caps a notification page; clients poll frequently and only
// render the most recent entries.
const listLimit = 50

// UnreadCounterCache is the per-recipient unread counter kept in Redis.
// Implemented by persistence.UnreadCache; nil disables caching.
type UnreadCounterCache interface {
	Get(ctx context.Context, recipientID string) (int64, error)
	Set(ctx context.Context, recipientID string, count int64) error
	Incr(ctx context.Context, recipientID string) error
	Reset(ctx context.Context, recipientID string) error
}

// NotificationService creates, lists and acknowledges per-recipient
// notifications. Creation is fan-out from ticket and comment mutations,
// never a direct user action.
type NotificationService struct {
	notifications repository.NotificationRepository
	cache         UnreadCounterCache
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(notificationRepo repository.NotificationRepository, cache UnreadCounterCache, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		notifications: notificationRepo,
		cache:         cache,
		logger:        logger,
		cfg:           cfg,
	}
}

// Notify inserts one notification row. Repeated events produce repeated
// rows; there is no deduplication.
func (n *NotificationService) Notify(ctx context.Context, notification *domain.Notification) error {
	if strings.TrimSpace(notification.RecipientID) == "" {
		return apperrors.NewValidationError("recipient is required", nil)
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		return apperrors.MapError(err)
	}
	n.TouchUnread(ctx, notification.RecipientID)
	return nil
}

// TouchUnread bumps the cached unread counter for each recipient. Cache
// failures are logged, never surfaced; the counter re-seeds from storage on
// the next miss.
func (n *NotificationService) TouchUnread(ctx context.Context, recipientIDs ...string) {
	if n.cache == nil {
		return
	}
	for _, id := range recipientIDs {
		if err := n.cache.Incr(ctx, id); err != nil {
			n.logger.Warn("unread counter incr failed", zap.String("recipient_id", id), zap.Error(err))
		}
	}
}

// List returns notifications for a recipient, most recent first.
func (n *NotificationService) List(ctx context.Context, recipientID string, unreadOnly bool) ([]domain.Notification, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, apperrors.NewValidationError("recipient_id is required", nil)
	}
	items, err := n.notifications.ListByRecipient(ctx, recipientID, unreadOnly, listLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

// MarkAllRead acknowledges every unread notification for the recipient.
// Idempotent: a second call flips zero rows.
func (n *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	if strings.TrimSpace(recipientID) == "" {
		return apperrors.NewValidationError("recipient_id is required", nil)
	}
	if _, err := n.notifications.MarkAllRead(ctx, recipientID); err != nil {
		return apperrors.MapError(err)
	}
	if n.cache != nil {
		if err := n.cache.Reset(ctx, recipientID); err != nil {
			n.logger.Warn("unread counter reset failed", zap.String("recipient_id", recipientID), zap.Error(err))
		}
	}
	return nil
}

// UnreadCount serves the badge counter, preferring the cache and falling
// back to a storage count on a miss or cache error.
func (n *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	if strings.TrimSpace(recipientID) == "" {
		return 0, apperrors.NewValidationError("recipient_id is required", nil)
	}
	if n.cache != nil {
		count, err := n.cache.Get(ctx, recipientID)
		if err == nil {
			return count, nil
		}
		if !errors.Is(err, persistence.ErrCacheMiss) {
			n.logger.Warn("unread counter read failed", zap.String("recipient_id", recipientID), zap.Error(err))
		}
	}

	count, err := n.notifications.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if n.cache != nil {
		if err := n.cache.Set(ctx, recipientID, count); err != nil {
			n.logger.Warn("unread counter seed failed", zap.String("recipient_id", recipientID), zap.Error(err))
		}
	}
	return count, nil
}

// PollInterval is the cadence clients are told to poll at.
func (n *NotificationService) PollInterval() time.Duration {
	if n.cfg.PollIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(n.cfg.PollIntervalSeconds) * time.Second
}
