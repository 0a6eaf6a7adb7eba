package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

type visitStore interface {
	Create(ctx context.Context, visit *models.MedicalVisit) error
	ListByStudent(ctx context.Context, studentID string) ([]models.MedicalVisit, error)
}

type studentLookup interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type thresholdEnsurer interface {
	EnsureDefault(ctx context.Context, disease string) error
}

type outbreakChecker interface {
	CheckThreshold(ctx context.Context, disease string) (*models.Alert, error)
}

type trendChecker interface {
	CheckTrend(ctx context.Context, disease string) (*models.Alert, error)
}

// MedicalVisitService records clinic visits and runs the disease detectors after
// each tagged visit is stored.
type MedicalVisitService struct {
	visits     visitStore
	students   studentLookup
	thresholds thresholdEnsurer
	outbreak   outbreakChecker
	trend      trendChecker
	validator  *validator.Validate
	metrics    detectorMetrics
	logger     *zap.Logger
}

// NewMedicalVisitService constructs the service. Detector collaborators may be nil.
func NewMedicalVisitService(visits visitStore, students studentLookup, thresholds thresholdEnsurer, outbreak outbreakChecker, trend trendChecker, validate *validator.Validate, metrics detectorMetrics, logger *zap.Logger) *MedicalVisitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MedicalVisitService{
		visits:     visits,
		students:   students,
		thresholds: thresholds,
		outbreak:   outbreak,
		trend:      trend,
		validator:  validate,
		metrics:    metrics,
		logger:     logger,
	}
}

// Record stores a visit. Detector failures are logged and never fail the write.
func (s *MedicalVisitService) Record(ctx context.Context, req dto.RecordVisitRequest, actorID string) (*models.MedicalVisit, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.DiseaseCategory = strings.TrimSpace(req.DiseaseCategory)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid medical visit payload")
	}
	visitDate := time.Now().UTC()
	if strings.TrimSpace(req.VisitDate) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(req.VisitDate))
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "visitDate must be RFC3339")
		}
		visitDate = parsed
	}
	exists, err := s.students.ExistsByID(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	visit := &models.MedicalVisit{
		StudentID:       req.StudentID,
		VisitDate:       visitDate,
		Complaint:       strings.TrimSpace(req.Complaint),
		Diagnosis:       optionalString(req.Diagnosis),
		DiseaseCategory: optionalString(req.DiseaseCategory),
		Treatment:       optionalString(req.Treatment),
		Temperature:     req.Temperature,
		RecordedByID:    actorID,
	}
	if err := s.visits.Create(ctx, visit); err != nil {
		return nil, appErrors.Internal(err, "failed to record medical visit")
	}

	if visit.DiseaseCategory != nil {
		s.runDetectors(ctx, *visit.DiseaseCategory)
	}
	return visit, nil
}

// ListByStudent returns a student's visits, latest first.
func (s *MedicalVisitService) ListByStudent(ctx context.Context, studentID string) ([]models.MedicalVisit, error) {
	visits, err := s.visits.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list medical visits")
	}
	return visits, nil
}

func (s *MedicalVisitService) runDetectors(ctx context.Context, disease string) {
	field := zap.String("disease", disease)
	if s.thresholds != nil {
		swallowDetector(s.logger, s.metrics, detectorOutbreak, s.thresholds.EnsureDefault(ctx, disease), field)
	}
	if s.outbreak != nil {
		_, err := s.outbreak.CheckThreshold(ctx, disease)
		swallowDetector(s.logger, s.metrics, detectorOutbreak, err, field)
	}
	if s.trend != nil {
		_, err := s.trend.CheckTrend(ctx, disease)
		swallowDetector(s.logger, s.metrics, detectorTrend, err, field)
	}
}
