package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/repository"
	apperrors "github.com/nucleushq/ticket-engine/pkg/util"
)

const actorKey = "auth_actor"

// Middleware validates bearer tokens and resolves the acting employee.
// Session management lives outside this service; the middleware only maps a
// token to a workspace member.
type Middleware struct {
	tokens    *TokenManager
	employees repository.EmployeeRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, employees repository.EmployeeRepository) *Middleware {
	return &Middleware{tokens: tokens, employees: employees}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	employeeID, err := m.tokens.Verify(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	employee, err := m.employees.GetByID(c.Context(), employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("employee not found")
		}
		return apperrors.MapError(err)
	}
	if !employee.Active {
		return apperrors.NewUnauthorized("employee deactivated")
	}

	c.Locals(actorKey, employee)
	return c.Next()
}

// ActorFromContext retrieves the authenticated employee.
func ActorFromContext(c *fiber.Ctx) (*domain.Employee, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return nil, false
	}
	employee, ok := val.(*domain.Employee)
	return employee, ok
}
