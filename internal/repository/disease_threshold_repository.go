package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

const thresholdColumns = `id, disease_name, cases_per_week, is_active, auto_created, created_by_id, updated_by_id, created_at, updated_at`

// DiseaseThresholdRepository stores per-disease weekly thresholds. disease_name is
// unique on LOWER(disease_name).
type DiseaseThresholdRepository struct {
	db *sqlx.DB
}

// NewDiseaseThresholdRepository constructs the repository.
func NewDiseaseThresholdRepository(db *sqlx.DB) *DiseaseThresholdRepository {
	return &DiseaseThresholdRepository{db: db}
}

// List returns all thresholds sorted by disease name.
func (r *DiseaseThresholdRepository) List(ctx context.Context) ([]models.DiseaseThreshold, error) {
	query := `SELECT ` + thresholdColumns + ` FROM disease_thresholds ORDER BY LOWER(disease_name)`
	var thresholds []models.DiseaseThreshold
	if err := conn(ctx, r.db).SelectContext(ctx, &thresholds, query); err != nil {
		return nil, fmt.Errorf("list disease thresholds: %w", err)
	}
	return thresholds, nil
}

// FindByDisease returns the threshold for a disease regardless of its active flag.
func (r *DiseaseThresholdRepository) FindByDisease(ctx context.Context, disease string) (*models.DiseaseThreshold, error) {
	query := `SELECT ` + thresholdColumns + ` FROM disease_thresholds WHERE LOWER(disease_name) = LOWER($1) LIMIT 1`
	var threshold models.DiseaseThreshold
	if err := conn(ctx, r.db).GetContext(ctx, &threshold, query, disease); err != nil {
		return nil, err
	}
	return &threshold, nil
}

// FindActiveByDisease returns the active threshold matching the disease case-insensitively.
func (r *DiseaseThresholdRepository) FindActiveByDisease(ctx context.Context, disease string) (*models.DiseaseThreshold, error) {
	query := `SELECT ` + thresholdColumns + ` FROM disease_thresholds WHERE LOWER(disease_name) = LOWER($1) AND is_active = TRUE LIMIT 1`
	var threshold models.DiseaseThreshold
	if err := conn(ctx, r.db).GetContext(ctx, &threshold, query, disease); err != nil {
		return nil, err
	}
	return &threshold, nil
}

// Insert adds a threshold. A concurrent insert of the same disease surfaces as a
// unique violation from the driver.
func (r *DiseaseThresholdRepository) Insert(ctx context.Context, threshold *models.DiseaseThreshold) error {
	if threshold.ID == "" {
		threshold.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if threshold.CreatedAt.IsZero() {
		threshold.CreatedAt = now
	}
	threshold.UpdatedAt = now
	const query = `INSERT INTO disease_thresholds (id, disease_name, cases_per_week, is_active, auto_created, created_by_id, updated_by_id, created_at, updated_at)
	VALUES (:id, :disease_name, :cases_per_week, :is_active, :auto_created, :created_by_id, :updated_by_id, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, threshold); err != nil {
		return fmt.Errorf("insert disease threshold: %w", err)
	}
	return nil
}

// Update writes the operator-editable columns of an existing threshold.
func (r *DiseaseThresholdRepository) Update(ctx context.Context, threshold *models.DiseaseThreshold) error {
	threshold.UpdatedAt = time.Now().UTC()
	const query = `UPDATE disease_thresholds SET disease_name = :disease_name, cases_per_week = :cases_per_week, is_active = :is_active,
	auto_created = :auto_created, updated_by_id = :updated_by_id, updated_at = :updated_at WHERE id = :id`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, threshold); err != nil {
		return fmt.Errorf("update disease threshold: %w", err)
	}
	return nil
}

// SetActive toggles a threshold.
func (r *DiseaseThresholdRepository) SetActive(ctx context.Context, id string, active bool, updatedBy string, at time.Time) (bool, error) {
	const query = `UPDATE disease_thresholds SET is_active = $2, updated_by_id = $3, updated_at = $4 WHERE id = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, active, updatedBy, at)
	if err != nil {
		return false, fmt.Errorf("set disease threshold active: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check disease threshold rows: %w", err)
	}
	return rows > 0, nil
}

// Delete removes a threshold.
func (r *DiseaseThresholdRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM disease_thresholds WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete disease threshold: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check disease threshold rows: %w", err)
	}
	return rows > 0, nil
}
