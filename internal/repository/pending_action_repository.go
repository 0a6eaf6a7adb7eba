package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

const pendingActionColumns = `id, action_type, requested_by_id, requested_at, target_user_id, action_data, status, priority,
       reviewed_by_id, reviewed_at, review_notes`

// PendingActionRepository persists approval workflow rows.
type PendingActionRepository struct {
	db *sqlx.DB
}

// NewPendingActionRepository constructs the repository.
func NewPendingActionRepository(db *sqlx.DB) *PendingActionRepository {
	return &PendingActionRepository{db: db}
}

// Create inserts a new pending action.
func (r *PendingActionRepository) Create(ctx context.Context, action *models.PendingAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.Status == "" {
		action.Status = models.PendingActionPending
	}
	if action.Priority == "" {
		action.Priority = models.PriorityMedium
	}
	if action.RequestedAt.IsZero() {
		action.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pending_actions
	(id, action_type, requested_by_id, requested_at, target_user_id, action_data, status, priority, reviewed_by_id, reviewed_at, review_notes)
	VALUES (:id, :action_type, :requested_by_id, :requested_at, :target_user_id, :action_data, :status, :priority, :reviewed_by_id, :reviewed_at, :review_notes)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, action); err != nil {
		return fmt.Errorf("create pending action: %w", err)
	}
	return nil
}

// GetByID fetches a pending action by identifier.
func (r *PendingActionRepository) GetByID(ctx context.Context, id string) (*models.PendingAction, error) {
	query := `SELECT ` + pendingActionColumns + ` FROM pending_actions WHERE id = $1`
	var action models.PendingAction
	if err := conn(ctx, r.db).GetContext(ctx, &action, query, id); err != nil {
		return nil, err
	}
	return &action, nil
}

// List returns actions matching the filter, highest priority first then latest first.
func (r *PendingActionRepository) List(ctx context.Context, filter models.PendingActionFilter) ([]models.PendingAction, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + pendingActionColumns + ` FROM pending_actions`)

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ActionType != "" {
		args = append(args, filter.ActionType)
		conditions = append(conditions, fmt.Sprintf("action_type = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(` ORDER BY CASE priority WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END DESC, requested_at DESC`)

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var actions []models.PendingAction
	if err := conn(ctx, r.db).SelectContext(ctx, &actions, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	return actions, nil
}

// TransitionParams groups the columns written by the single terminal transition.
type TransitionParams struct {
	ID         string
	Status     models.PendingActionStatus
	ReviewedBy string
	ReviewedAt time.Time
	Notes      *string
	ActionData []byte
}

// Transition moves a PENDING action to a terminal status. The status predicate makes
// this a compare-and-swap; sql.ErrNoRows means the row is missing or already reviewed.
func (r *PendingActionRepository) Transition(ctx context.Context, params TransitionParams) error {
	setParts := []string{
		"status = :status",
		"reviewed_by_id = :reviewed_by_id",
		"reviewed_at = :reviewed_at",
		"review_notes = :review_notes",
	}
	if len(params.ActionData) > 0 {
		setParts = append(setParts, "action_data = :action_data")
	}
	query := fmt.Sprintf("UPDATE pending_actions SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "),
		models.PendingActionPending,
	)
	result, err := conn(ctx, r.db).NamedExecContext(ctx, query, map[string]interface{}{
		"id":             params.ID,
		"status":         params.Status,
		"reviewed_by_id": params.ReviewedBy,
		"reviewed_at":    params.ReviewedAt,
		"review_notes":   params.Notes,
		"action_data":    params.ActionData,
	})
	if err != nil {
		return fmt.Errorf("transition pending action: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check pending action update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeletePending removes an action still PENDING and owned by requesterID.
func (r *PendingActionRepository) DeletePending(ctx context.Context, id, requesterID string) (bool, error) {
	const query = `DELETE FROM pending_actions WHERE id = $1 AND requested_by_id = $2 AND status = 'PENDING'`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, requesterID)
	if err != nil {
		return false, fmt.Errorf("delete pending action: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check pending action delete rows: %w", err)
	}
	return rows > 0, nil
}
