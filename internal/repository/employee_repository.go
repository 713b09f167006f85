package repository

import (
	"context"

	"github.com/nucleushq/ticket-engine/internal/domain"
	"github.com/nucleushq/ticket-engine/internal/persistence"
)

// EmployeeRepository reads the workspace member directory. The directory is
// maintained by another system; this side only reads it.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	ListActive(ctx context.Context) ([]domain.Employee, error)
}

type employeeRepository struct {
	pg *persistence.Postgres
}

// NewEmployeeRepository builds repository.
func NewEmployeeRepository(pg *persistence.Postgres) EmployeeRepository {
	return &employeeRepository{pg: pg}
}

func (r *employeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	const query = `
        SELECT id, name, email, role, active, created_at
        FROM employees WHERE id=$1`
	var employee domain.Employee
	if err := r.pg.Querier(ctx).QueryRow(ctx, query, id).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Email,
		&employee.Role,
		&employee.Active,
		&employee.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) ListActive(ctx context.Context) ([]domain.Employee, error) {
	const query = `
        SELECT id, name, email, role, active, created_at
        FROM employees WHERE active=TRUE ORDER BY name ASC`
	rows, err := r.pg.Querier(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Employee
	for rows.Next() {
		var employee domain.Employee
		if err := rows.Scan(
			&employee.ID,
			&employee.Name,
			&employee.Email,
			&employee.Role,
			&employee.Active,
			&employee.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, employee)
	}
	return result, rows.Err()
}
