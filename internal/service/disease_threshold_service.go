package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	"github.com/noah-isme/clinic-records-api/pkg/database"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

type thresholdStore interface {
	List(ctx context.Context) ([]models.DiseaseThreshold, error)
	FindByDisease(ctx context.Context, disease string) (*models.DiseaseThreshold, error)
	FindActiveByDisease(ctx context.Context, disease string) (*models.DiseaseThreshold, error)
	Insert(ctx context.Context, threshold *models.DiseaseThreshold) error
	Update(ctx context.Context, threshold *models.DiseaseThreshold) error
	SetActive(ctx context.Context, id string, active bool, updatedBy string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// DiseaseThresholdService manages per-disease weekly case thresholds.
type DiseaseThresholdService struct {
	repo             thresholdStore
	validator        *validator.Validate
	logger           *zap.Logger
	defaultThreshold int
}

// NewDiseaseThresholdService constructs the service. defaultThreshold is used for
// thresholds created on first sight of a disease.
func NewDiseaseThresholdService(repo thresholdStore, validate *validator.Validate, logger *zap.Logger, defaultThreshold int) *DiseaseThresholdService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if defaultThreshold <= 0 {
		defaultThreshold = 10
	}
	return &DiseaseThresholdService{repo: repo, validator: validate, logger: logger, defaultThreshold: defaultThreshold}
}

// List returns every configured threshold.
func (s *DiseaseThresholdService) List(ctx context.Context) ([]models.DiseaseThreshold, error) {
	thresholds, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list disease thresholds")
	}
	return thresholds, nil
}

// ActiveFor returns the active threshold for disease, or nil when none is configured.
func (s *DiseaseThresholdService) ActiveFor(ctx context.Context, disease string) (*models.DiseaseThreshold, error) {
	threshold, err := s.repo.FindActiveByDisease(ctx, strings.TrimSpace(disease))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load disease threshold")
	}
	return threshold, nil
}

// Upsert creates or updates the threshold keyed by disease name, case-insensitively.
func (s *DiseaseThresholdService) Upsert(ctx context.Context, req dto.UpsertThresholdRequest, actorID string) (*models.DiseaseThreshold, error) {
	req.DiseaseName = strings.TrimSpace(req.DiseaseName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid disease threshold payload")
	}
	existing, err := s.repo.FindByDisease(ctx, req.DiseaseName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load disease threshold")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	if existing != nil {
		existing.DiseaseName = req.DiseaseName
		existing.CasesPerWeek = req.CasesPerWeek
		existing.IsActive = active
		existing.AutoCreated = false
		existing.UpdatedByID = &actorID
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, appErrors.Internal(err, "failed to update disease threshold")
		}
		return existing, nil
	}
	threshold := &models.DiseaseThreshold{
		DiseaseName:  req.DiseaseName,
		CasesPerWeek: req.CasesPerWeek,
		IsActive:     active,
		CreatedByID:  &actorID,
		UpdatedByID:  &actorID,
	}
	if err := s.repo.Insert(ctx, threshold); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "disease threshold was created concurrently, retry")
		}
		return nil, appErrors.Internal(err, "failed to create disease threshold")
	}
	return threshold, nil
}

// EnsureDefault creates an active threshold with the default weekly count the first
// time a disease is seen. Losing the creation race to another request is success.
func (s *DiseaseThresholdService) EnsureDefault(ctx context.Context, disease string) error {
	disease = strings.TrimSpace(disease)
	if disease == "" {
		return nil
	}
	_, err := s.repo.FindByDisease(ctx, disease)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to load disease threshold")
	}
	threshold := &models.DiseaseThreshold{
		DiseaseName:  disease,
		CasesPerWeek: s.defaultThreshold,
		IsActive:     true,
		AutoCreated:  true,
	}
	if err := s.repo.Insert(ctx, threshold); err != nil {
		if database.IsUniqueViolation(err) {
			s.logger.Debug("disease threshold already created", zap.String("disease", disease))
			return nil
		}
		return appErrors.Internal(err, "failed to create default disease threshold")
	}
	s.logger.Info("default disease threshold created", zap.String("disease", disease), zap.Int("cases_per_week", s.defaultThreshold))
	return nil
}

// SetActive toggles a threshold.
func (s *DiseaseThresholdService) SetActive(ctx context.Context, id string, active bool, actorID string) error {
	found, err := s.repo.SetActive(ctx, id, active, actorID, time.Now().UTC())
	if err != nil {
		return appErrors.Internal(err, "failed to update disease threshold")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "disease threshold not found")
	}
	return nil
}

// Delete removes a threshold. The next tagged visit recreates it with the default count.
func (s *DiseaseThresholdService) Delete(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to delete disease threshold")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "disease threshold not found")
	}
	return nil
}
