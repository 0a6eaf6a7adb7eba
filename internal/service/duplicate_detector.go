package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

const (
	duplicatePointsPerField = 25
	duplicateMinScore       = 50
	duplicateHighScore      = 75
)

type candidateFinder interface {
	FindCandidates(ctx context.Context, subject models.PatientIdentity) ([]models.PatientIdentity, error)
}

type detectionStore interface {
	Create(ctx context.Context, detection *models.DuplicateDetection) error
	ListByStudent(ctx context.Context, studentID string) ([]models.DuplicateDetection, error)
}

// DuplicateDetector flags probable duplicate patient records after registration.
type DuplicateDetector struct {
	candidates candidateFinder
	detections detectionStore
	alerts     AlertCreator
	logger     *zap.Logger
}

// NewDuplicateDetector constructs the detector.
func NewDuplicateDetector(candidates candidateFinder, detections detectionStore, alerts AlertCreator, logger *zap.Logger) *DuplicateDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuplicateDetector{candidates: candidates, detections: detections, alerts: alerts, logger: logger}
}

// Detect scores every candidate sharing an identity field with subject and records a
// detection plus an alert for each one scoring at least 50. It keeps going past
// individual failures and returns them joined.
func (d *DuplicateDetector) Detect(ctx context.Context, subject models.PatientIdentity) ([]models.DuplicateDetection, error) {
	candidates, err := d.candidates.FindCandidates(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	var (
		recorded []models.DuplicateDetection
		errs     []error
	)
	for _, candidate := range candidates {
		if candidate.ID == subject.ID {
			continue
		}
		score, fields := scoreDuplicate(subject, candidate)
		if score < duplicateMinScore {
			continue
		}
		detection := &models.DuplicateDetection{
			StudentID:        subject.ID,
			MatchedStudentID: candidate.ID,
			SimilarityScore:  score,
			MatchingFields:   fields,
		}
		if err := d.detections.Create(ctx, detection); err != nil {
			errs = append(errs, fmt.Errorf("record detection %s/%s: %w", subject.ID, candidate.ID, err))
			continue
		}
		recorded = append(recorded, *detection)

		severity := models.SeverityMedium
		if score >= duplicateHighScore {
			severity = models.SeverityHigh
		}
		if _, err := d.alerts.Create(ctx, models.NewAlert{
			Type:     models.AlertDuplicateDetected,
			Title:    "Possible duplicate patient record",
			Severity: severity,
			Message: fmt.Sprintf("%s %s matches an existing record on %s (similarity %d%%).",
				subject.FirstName, subject.LastName, strings.Join(fields, ", "), score),
			RelatedStudentID: subject.ID,
			RelatedRecordID:  candidate.ID,
			Recipient:        models.Broadcast(),
		}); err != nil {
			errs = append(errs, fmt.Errorf("alert detection %s/%s: %w", subject.ID, candidate.ID, err))
		}
	}
	if len(recorded) > 0 {
		d.logger.Info("duplicate candidates recorded", zap.String("student_id", subject.ID), zap.Int("count", len(recorded)))
	}
	return recorded, errors.Join(errs...)
}

// scoreDuplicate adds 25 points per matching identity field.
func scoreDuplicate(subject, candidate models.PatientIdentity) (int, []string) {
	fields := make([]string, 0, 4)
	if namesMatch(subject.FirstName, candidate.FirstName) {
		fields = append(fields, models.MatchFirstName)
	}
	if namesMatch(subject.LastName, candidate.LastName) {
		fields = append(fields, models.MatchLastName)
	}
	if sameCalendarDay(subject.DateOfBirth, candidate.DateOfBirth) {
		fields = append(fields, models.MatchDateOfBirth)
	}
	if nationalIDsMatch(subject.NationalID, candidate.NationalID) {
		fields = append(fields, models.MatchNationalID)
	}
	return len(fields) * duplicatePointsPerField, fields
}

func namesMatch(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// sameCalendarDay compares the wall-clock dates of a and b, each in its own location.
func sameCalendarDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func nationalIDsMatch(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	x, y := strings.TrimSpace(*a), strings.TrimSpace(*b)
	return x != "" && x == y
}

// ListForStudent returns the detections recorded against a student.
func (d *DuplicateDetector) ListForStudent(ctx context.Context, studentID string) ([]models.DuplicateDetection, error) {
	detections, err := d.detections.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list duplicate detections")
	}
	return detections, nil
}
