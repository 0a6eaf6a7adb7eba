package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

// MedicalVisitRepository stores clinic visits and answers the case-count queries
// the detectors need.
type MedicalVisitRepository struct {
	db *sqlx.DB
}

// NewMedicalVisitRepository constructs the repository.
func NewMedicalVisitRepository(db *sqlx.DB) *MedicalVisitRepository {
	return &MedicalVisitRepository{db: db}
}

// Create inserts a visit.
func (r *MedicalVisitRepository) Create(ctx context.Context, visit *models.MedicalVisit) error {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO medical_visits (id, student_id, visit_date, complaint, diagnosis, disease_category, treatment, temperature, recorded_by_id, created_at)
	VALUES (:id, :student_id, :visit_date, :complaint, :diagnosis, :disease_category, :treatment, :temperature, :recorded_by_id, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, visit); err != nil {
		return fmt.Errorf("create medical visit: %w", err)
	}
	return nil
}

// ListByStudent returns a student's visits, latest first.
func (r *MedicalVisitRepository) ListByStudent(ctx context.Context, studentID string) ([]models.MedicalVisit, error) {
	const query = `SELECT id, student_id, visit_date, complaint, diagnosis, disease_category, treatment, temperature, recorded_by_id, created_at
	FROM medical_visits WHERE student_id = $1 ORDER BY visit_date DESC`
	var visits []models.MedicalVisit
	if err := conn(ctx, r.db).SelectContext(ctx, &visits, query, studentID); err != nil {
		return nil, fmt.Errorf("list medical visits: %w", err)
	}
	return visits, nil
}

// CountByDisease counts visits tagged with disease in [from, to).
func (r *MedicalVisitRepository) CountByDisease(ctx context.Context, disease string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM medical_visits
	WHERE LOWER(disease_category) = LOWER($1) AND visit_date >= $2 AND visit_date < $3`
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, query, disease, from, to); err != nil {
		return 0, fmt.Errorf("count visits by disease: %w", err)
	}
	return count, nil
}
