package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nucleushq/ticket-engine/internal/api/dto"
	"github.com/nucleushq/ticket-engine/internal/auth"
	"github.com/nucleushq/ticket-engine/internal/service"
	apperrors "github.com/nucleushq/ticket-engine/pkg/util"
)

// NotificationsHandler exposes the per-recipient notification endpoints.
// The recipient is always the authenticated employee; clients poll the list
// endpoint at the interval advertised by the X-Poll-Interval header.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	unreadOnly := c.QueryBool("unread_only")

	items, err := h.notifications.List(c.UserContext(), actor.ID, unreadOnly)
	if err != nil {
		return err
	}
	resp := make([]dto.NotificationResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, dto.NewNotificationResponse(item))
	}
	c.Set("X-Poll-Interval", strconv.Itoa(int(h.notifications.PollInterval().Seconds())))
	return c.JSON(fiber.Map{"data": resp})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	count, err := h.notifications.UnreadCount(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"unread": count}})
}

// MarkAllRead POST /notifications/read.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	if err := h.notifications.MarkAllRead(c.UserContext(), actor.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"acknowledged": true}})
}
