package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

const alertColumns = `id, alert_type, title, message, severity, related_disease, related_student_id, related_record_id,
       recipient_user_id, is_read, read_at, is_resolved, resolved_by_id, resolution_notes, resolved_at, created_at`

// AlertRepository is the durable alert log.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository constructs the repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts an alert row.
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO alerts
	(id, alert_type, title, message, severity, related_disease, related_student_id, related_record_id, recipient_user_id,
	 is_read, read_at, is_resolved, resolved_by_id, resolution_notes, resolved_at, created_at)
	VALUES (:id, :alert_type, :title, :message, :severity, :related_disease, :related_student_id, :related_record_id, :recipient_user_id,
	 :is_read, :read_at, :is_resolved, :resolved_by_id, :resolution_notes, :resolved_at, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// GetByID fetches an alert by identifier.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	var alert models.Alert
	if err := conn(ctx, r.db).GetContext(ctx, &alert, query, id); err != nil {
		return nil, err
	}
	return &alert, nil
}

// List returns alerts visible to the viewer ordered by severity then recency.
func (r *AlertRepository) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	args := []interface{}{filter.ViewerID}
	conditions := []string{"(recipient_user_id IS NULL OR recipient_user_id = $1)"}
	if filter.UnreadOnly {
		conditions = append(conditions, "is_read = FALSE")
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("alert_type = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE %s
	ORDER BY CASE severity WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END DESC, created_at DESC
	LIMIT %d`, alertColumns, strings.Join(conditions, " AND "), limit)

	var alerts []models.Alert
	if err := conn(ctx, r.db).SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// CountUnread counts unread alerts visible to the viewer.
func (r *AlertRepository) CountUnread(ctx context.Context, viewerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM alerts WHERE (recipient_user_id IS NULL OR recipient_user_id = $1) AND is_read = FALSE`
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, query, viewerID); err != nil {
		return 0, fmt.Errorf("count unread alerts: %w", err)
	}
	return count, nil
}

// MarkRead flags an alert read, keeping the first read timestamp.
func (r *AlertRepository) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE alerts SET is_read = TRUE, read_at = COALESCE(read_at, $2) WHERE id = $1`
	return r.execAffected(ctx, "mark alert read", query, id, at)
}

// MarkAllRead flags every unread alert visible to the viewer.
func (r *AlertRepository) MarkAllRead(ctx context.Context, viewerID string, at time.Time) (int64, error) {
	const query = `UPDATE alerts SET is_read = TRUE, read_at = $2
	WHERE (recipient_user_id IS NULL OR recipient_user_id = $1) AND is_read = FALSE`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, viewerID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all alerts read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check mark all read rows: %w", err)
	}
	return rows, nil
}

// Resolve soft-dismisses an alert. It does not change the read flag.
func (r *AlertRepository) Resolve(ctx context.Context, id, resolverID string, notes *string, at time.Time) (bool, error) {
	const query = `UPDATE alerts SET is_resolved = TRUE, resolved_by_id = $2, resolution_notes = $3, resolved_at = $4 WHERE id = $1`
	return r.execAffected(ctx, "resolve alert", query, id, resolverID, notes, at)
}

// Delete permanently removes an alert.
func (r *AlertRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM alerts WHERE id = $1`
	return r.execAffected(ctx, "delete alert", query, id)
}

// ExistsRecent reports whether an alert of alertType with the same correlation key
// was created at or after since.
func (r *AlertRepository) ExistsRecent(ctx context.Context, alertType models.AlertType, key models.AlertCorrelation, since time.Time) (bool, error) {
	args := []interface{}{alertType, since}
	conditions := []string{"alert_type = $1", "created_at >= $2"}
	if key.Disease != "" {
		args = append(args, key.Disease)
		conditions = append(conditions, fmt.Sprintf("LOWER(related_disease) = LOWER($%d)", len(args)))
	}
	if key.StudentID != "" {
		args = append(args, key.StudentID)
		conditions = append(conditions, fmt.Sprintf("related_student_id = $%d", len(args)))
	}
	if key.RecordID != "" {
		args = append(args, key.RecordID)
		conditions = append(conditions, fmt.Sprintf("related_record_id = $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM alerts WHERE %s)`, strings.Join(conditions, " AND "))
	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check recent alert: %w", err)
	}
	return exists, nil
}

func (r *AlertRepository) execAffected(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check %s rows: %w", op, err)
	}
	return rows > 0, nil
}
