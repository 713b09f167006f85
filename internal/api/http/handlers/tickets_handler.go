package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nucleushq/ticket-engine/internal/api/dto"
	"github.com/nucleushq/ticket-engine/internal/auth"
	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/service"
	apperrors "github.com/nucleushq/ticket-engine/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	recorder *service.ActivityRecorder
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, recorder *service.ActivityRecorder) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, recorder: recorder}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
	}
	if req.Type != "" {
		ticketType, err := domain.ParseTicketType(req.Type)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		input.Type = ticketType
	}
	if req.Priority != "" {
		priority, err := domain.ParseTicketPriority(req.Priority)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		input.Priority = priority
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), &actor.ID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListTickets(c.UserContext(), parseListFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Board GET /tickets/board.
func (h *TicketsHandler) Board(c *fiber.Ctx) error {
	columns, err := h.tickets.Board(c.UserContext(), parseListFilter(c))
	if err != nil {
		return err
	}
	resp := make([]dto.BoardColumnResponse, 0, len(columns))
	for _, column := range columns {
		tickets := make([]dto.TicketResponse, 0, len(column.Tickets))
		for i := range column.Tickets {
			tickets = append(tickets, dto.NewTicketResponse(&column.Tickets[i]))
		}
		resp = append(resp, dto.BoardColumnResponse{Status: string(column.Status), Tickets: tickets})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.UpdateInput{
		Title:             req.Title,
		Description:       req.Description,
		SetAssignee:       req.AssigneeID.Set,
		AssigneeID:        req.AssigneeID.Value,
		SetReviewer:       req.ReviewerID.Set,
		ReviewerID:        req.ReviewerID.Value,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	}
	if req.Status != nil {
		status, err := domain.ParseTicketStatus(*req.Status)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		input.Status = &status
	}
	if req.Priority != nil {
		priority, err := domain.ParseTicketPriority(*req.Priority)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		input.Priority = &priority
	}
	if req.Type != nil {
		ticketType, err := domain.ParseTicketType(*req.Type)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		input.Type = &ticketType
	}

	ticket, err := h.tickets.UpdateTicket(c.UserContext(), c.Params("id"), &actor.ID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListActivity GET /tickets/:id/activity.
func (h *TicketsHandler) ListActivity(c *fiber.Ctx) error {
	entries, err := h.recorder.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ActivityEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityEntryResponse(entry))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseListFilter(c *fiber.Ctx) service.ListFilter {
	filter := service.ListFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Type:     c.Query("type"),
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if creator := c.Query("creator_id"); creator != "" {
		filter.CreatorID = &creator
	}
	if search := c.Query("search"); search != "" {
		filter.Search = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
