package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
)

const ticketColumns = `id, number, subject, project_id, team_id, assignee_user_id,
       status, priority, created_at, updated_at, resolved_at, first_response_at,
       sla_policy_id, sla_first_response_due, sla_resolution_due,
       sla_first_response_breached, sla_resolution_breached,
       sla_paused_at, sla_paused_minutes`

// TicketRepository encapsulates the ticket persistence the SLA engine needs.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Update writes back the mutable SLA surface of a ticket: status,
	// priority, assignee and every SLA tracking field.
	Update(ctx context.Context, ticket *domain.Ticket) error
	// ListActiveWithPolicy returns tickets in an active status that carry an
	// SLA policy reference, for the periodic monitor job.
	ListActiveWithPolicy(ctx context.Context) ([]domain.Ticket, error)
	// ListWithPolicy returns every ticket carrying a policy, for metrics.
	ListWithPolicy(ctx context.Context) ([]domain.Ticket, error)
	// ListApproachingBreach returns active tickets whose unmet first-response
	// or resolution due date falls before the given threshold.
	ListApproachingBreach(ctx context.Context, threshold time.Time) ([]domain.Ticket, error)
	// ListBreached returns active tickets with at least one breach latch set.
	ListBreached(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	ticket, err := scanTicketRow(row)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, assignee_user_id=$3,
            sla_policy_id=$4, sla_first_response_due=$5, sla_resolution_due=$6,
            sla_first_response_breached=$7, sla_resolution_breached=$8,
            sla_paused_at=$9, sla_paused_minutes=$10, updated_at=NOW()
        WHERE id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.SlaPolicyID,
		ticket.FirstResponseDueAt,
		ticket.ResolutionDueAt,
		ticket.FirstResponseBreached,
		ticket.ResolutionBreached,
		ticket.SlaPausedAt,
		ticket.SlaPausedMinutes,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListActiveWithPolicy(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE sla_policy_id IS NOT NULL
          AND status IN ('NEW','OPEN','IN_PROGRESS','PENDING','REOPENED')
        ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithPolicy(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE sla_policy_id IS NOT NULL`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListApproachingBreach(ctx context.Context, threshold time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE sla_policy_id IS NOT NULL
          AND status IN ('NEW','OPEN','IN_PROGRESS','PENDING','REOPENED')
          AND (
            (first_response_at IS NULL AND sla_first_response_due IS NOT NULL
             AND NOT sla_first_response_breached AND sla_first_response_due < $1)
            OR
            (sla_resolution_due IS NOT NULL
             AND NOT sla_resolution_breached AND sla_resolution_due < $1)
          )
        ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListBreached(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE sla_policy_id IS NOT NULL
          AND status IN ('NEW','OPEN','IN_PROGRESS','PENDING','REOPENED')
          AND (sla_first_response_breached OR sla_resolution_breached)
        ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicketRow(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Subject,
		&ticket.ProjectID,
		&ticket.TeamID,
		&ticket.AssigneeID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.FirstResponseAt,
		&ticket.SlaPolicyID,
		&ticket.FirstResponseDueAt,
		&ticket.ResolutionDueAt,
		&ticket.FirstResponseBreached,
		&ticket.ResolutionBreached,
		&ticket.SlaPausedAt,
		&ticket.SlaPausedMinutes,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicketRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
