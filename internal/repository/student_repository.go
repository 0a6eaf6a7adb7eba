package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

const studentColumns = `id, user_id, student_number, first_name, middle_name, last_name, date_of_birth, gender, national_id,
       grade_level, section, contact_number, guardian_name, guardian_contact, address, blood_type, allergies, created_at, updated_at`

// StudentRepository manages persistence for student patient records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID retrieves a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := conn(ctx, r.db).GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByID reports whether the student exists.
func (r *StudentRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check student exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, user_id, student_number, first_name, middle_name, last_name, date_of_birth, gender, national_id,
	grade_level, section, contact_number, guardian_name, guardian_contact, address, blood_type, allergies, created_at, updated_at)
	VALUES (:id, :user_id, :student_number, :first_name, :middle_name, :last_name, :date_of_birth, :gender, :national_id,
	:grade_level, :section, :contact_number, :guardian_name, :guardian_contact, :address, :blood_type, :allergies, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// FindCandidates returns other students sharing at least one identity field with the
// subject. Scoring happens in the caller.
func (r *StudentRepository) FindCandidates(ctx context.Context, subject models.PatientIdentity) ([]models.PatientIdentity, error) {
	nationalID := ""
	if subject.NationalID != nil {
		nationalID = *subject.NationalID
	}
	const query = `SELECT id, first_name, last_name, date_of_birth, national_id FROM students
	WHERE id <> $1 AND (
		LOWER(first_name) = LOWER($2)
		OR LOWER(last_name) = LOWER($3)
		OR date_of_birth = $4::date
		OR ($5 <> '' AND national_id = $5)
	)
	ORDER BY created_at DESC
	LIMIT 200`
	var candidates []models.PatientIdentity
	if err := conn(ctx, r.db).SelectContext(ctx, &candidates, query,
		subject.ID, subject.FirstName, subject.LastName, subject.DateOfBirth.Format("2006-01-02"), nationalID); err != nil {
		return nil, fmt.Errorf("find duplicate candidates: %w", err)
	}
	return candidates, nil
}
