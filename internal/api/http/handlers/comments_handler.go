package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nucleushq/ticket-engine/internal/api/dto"
	"github.com/nucleushq/ticket-engine/internal/auth"
	"github.com/nucleushq/ticket-engine/internal/service"
	apperrors "github.com/nucleushq/ticket-engine/pkg/util"
)

// CommentsHandler exposes the comment thread endpoints.
type CommentsHandler struct {
	comments *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{comments: commentService}
}

// ListComments GET /tickets/:id/comments.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.comments.ListComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// PostComment POST /tickets/:id/comments.
func (h *CommentsHandler) PostComment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	comment, err := h.comments.PostComment(c.UserContext(), c.Params("id"), &actor.ID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}
