package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
)

// PolicyRepository loads SLA policies together with their priority targets,
// escalation rules and project associations.
type PolicyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error)
	// FindActiveByProject returns active policies associated with a project.
	FindActiveByProject(ctx context.Context, projectID string) ([]domain.SlaPolicy, error)
	// FindDefault returns the active default policy, or pgx.ErrNoRows.
	FindDefault(ctx context.Context) (*domain.SlaPolicy, error)
	List(ctx context.Context) ([]domain.SlaPolicy, error)
}

type policyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository instantiates the repository.
func NewPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepository{pool: pool}
}

const policyColumns = `id, name, description, is_default, active, calendar_id, created_at, updated_at`

func (r *policyRepository) GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE id=$1`
	policy, err := scanPolicyRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachAssociations(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

func (r *policyRepository) FindActiveByProject(ctx context.Context, projectID string) ([]domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + `
        FROM sla_policies p
        JOIN project_sla_policies link ON link.policy_id = p.id
        WHERE link.project_id=$1 AND p.active
        ORDER BY p.created_at`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	policies, err := scanPolicies(rows)
	if err != nil {
		return nil, err
	}
	for i := range policies {
		if err := r.attachAssociations(ctx, &policies[i]); err != nil {
			return nil, err
		}
	}
	return policies, nil
}

func (r *policyRepository) FindDefault(ctx context.Context) (*domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE is_default AND active LIMIT 1`
	policy, err := scanPolicyRow(r.pool.QueryRow(ctx, query))
	if err != nil {
		return nil, err
	}
	if err := r.attachAssociations(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

func (r *policyRepository) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	policies, err := scanPolicies(rows)
	if err != nil {
		return nil, err
	}
	for i := range policies {
		if err := r.attachAssociations(ctx, &policies[i]); err != nil {
			return nil, err
		}
	}
	return policies, nil
}

func (r *policyRepository) attachAssociations(ctx context.Context, policy *domain.SlaPolicy) error {
	targets, err := r.loadTargets(ctx, policy.ID)
	if err != nil {
		return err
	}
	policy.Targets = targets

	escalations, err := r.loadEscalations(ctx, policy.ID)
	if err != nil {
		return err
	}
	policy.Escalations = escalations

	projects, err := r.loadProjectIDs(ctx, policy.ID)
	if err != nil {
		return err
	}
	policy.ProjectIDs = projects
	return nil
}

func (r *policyRepository) loadTargets(ctx context.Context, policyID string) ([]domain.PriorityTarget, error) {
	const query = `
        SELECT id, policy_id, priority, first_response_minutes, resolution_minutes,
               first_response_enabled, resolution_enabled
        FROM sla_priority_targets WHERE policy_id=$1`
	rows, err := r.pool.Query(ctx, query, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []domain.PriorityTarget
	for rows.Next() {
		var t domain.PriorityTarget
		if err := rows.Scan(
			&t.ID,
			&t.PolicyID,
			&t.Priority,
			&t.FirstResponseMinutes,
			&t.ResolutionMinutes,
			&t.FirstResponseEnabled,
			&t.ResolutionEnabled,
		); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func (r *policyRepository) loadEscalations(ctx context.Context, policyID string) ([]domain.EscalationRule, error) {
	const query = `
        SELECT id, policy_id, name, escalation_type, trigger_minutes_before,
               action, reassign_to_user_id, active
        FROM sla_escalations WHERE policy_id=$1`
	rows, err := r.pool.Query(ctx, query, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.EscalationRule
	for rows.Next() {
		var rule domain.EscalationRule
		if err := rows.Scan(
			&rule.ID,
			&rule.PolicyID,
			&rule.Name,
			&rule.Type,
			&rule.TriggerMinutesBefore,
			&rule.Action,
			&rule.ReassignToID,
			&rule.Active,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rules {
		notify, err := r.loadNotifyUserIDs(ctx, rules[i].ID)
		if err != nil {
			return nil, err
		}
		rules[i].NotifyUserIDs = notify
	}
	return rules, nil
}

func (r *policyRepository) loadNotifyUserIDs(ctx context.Context, escalationID string) ([]string, error) {
	const query = `SELECT user_id FROM sla_escalation_notify_users WHERE escalation_id=$1`
	rows, err := r.pool.Query(ctx, query, escalationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *policyRepository) loadProjectIDs(ctx context.Context, policyID string) ([]string, error) {
	const query = `SELECT project_id FROM project_sla_policies WHERE policy_id=$1`
	rows, err := r.pool.Query(ctx, query, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPolicyRow(row rowScanner) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	if err := row.Scan(
		&policy.ID,
		&policy.Name,
		&policy.Description,
		&policy.IsDefault,
		&policy.Active,
		&policy.CalendarID,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}

func scanPolicies(rows pgx.Rows) ([]domain.SlaPolicy, error) {
	var result []domain.SlaPolicy
	for rows.Next() {
		policy, err := scanPolicyRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}
