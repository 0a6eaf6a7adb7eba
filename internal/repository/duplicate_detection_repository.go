package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

// DuplicateDetectionRepository persists probable duplicate pairs.
type DuplicateDetectionRepository struct {
	db *sqlx.DB
}

// NewDuplicateDetectionRepository constructs the repository.
func NewDuplicateDetectionRepository(db *sqlx.DB) *DuplicateDetectionRepository {
	return &DuplicateDetectionRepository{db: db}
}

// Create stores a detection. MatchingFields is serialised into the JSONB column.
func (r *DuplicateDetectionRepository) Create(ctx context.Context, detection *models.DuplicateDetection) error {
	if detection.ID == "" {
		detection.ID = uuid.NewString()
	}
	if detection.CreatedAt.IsZero() {
		detection.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(detection.MatchingFields)
	if err != nil {
		return fmt.Errorf("marshal matching fields: %w", err)
	}
	detection.MatchingFieldsRaw = raw

	const query = `INSERT INTO duplicate_detections (id, student_id, matched_student_id, similarity_score, matching_fields, created_at)
	VALUES (:id, :student_id, :matched_student_id, :similarity_score, :matching_fields, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, detection); err != nil {
		return fmt.Errorf("create duplicate detection: %w", err)
	}
	return nil
}

// ListByStudent returns detections recorded for a student, latest first.
func (r *DuplicateDetectionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.DuplicateDetection, error) {
	const query = `SELECT id, student_id, matched_student_id, similarity_score, matching_fields, created_at
	FROM duplicate_detections WHERE student_id = $1 ORDER BY created_at DESC`
	var detections []models.DuplicateDetection
	if err := conn(ctx, r.db).SelectContext(ctx, &detections, query, studentID); err != nil {
		return nil, fmt.Errorf("list duplicate detections: %w", err)
	}
	for i := range detections {
		if len(detections[i].MatchingFieldsRaw) == 0 {
			continue
		}
		if err := json.Unmarshal(detections[i].MatchingFieldsRaw, &detections[i].MatchingFields); err != nil {
			return nil, fmt.Errorf("decode matching fields: %w", err)
		}
	}
	return detections, nil
}
