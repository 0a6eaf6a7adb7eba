package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

type alertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	CountUnread(ctx context.Context, viewerID string) (int, error)
	MarkRead(ctx context.Context, id string, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, viewerID string, at time.Time) (int64, error)
	Resolve(ctx context.Context, id, resolverID string, notes *string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	ExistsRecent(ctx context.Context, alertType models.AlertType, key models.AlertCorrelation, since time.Time) (bool, error)
}

// alertSink receives stored, non-confidential alerts for fan-out. It must not block.
type alertSink interface {
	Publish(alert *models.Alert)
}

type alertMetrics interface {
	RecordAlertCreated(alertType models.AlertType, severity models.AlertSeverity)
}

// AlertCreator is the write side used by detectors and the workflow.
type AlertCreator interface {
	Create(ctx context.Context, input models.NewAlert) (*models.Alert, error)
	ExistsRecent(ctx context.Context, alertType models.AlertType, key models.AlertCorrelation, window time.Duration) (bool, error)
}

// AlertService is the durable notification log.
type AlertService struct {
	repo    alertStore
	sink    alertSink
	metrics alertMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// AlertServiceOption configures the service.
type AlertServiceOption func(*AlertService)

// WithAlertSink fans stored alerts out to an external consumer.
func WithAlertSink(sink alertSink) AlertServiceOption {
	return func(s *AlertService) {
		s.sink = sink
	}
}

// WithAlertMetrics records created alerts.
func WithAlertMetrics(metrics alertMetrics) AlertServiceOption {
	return func(s *AlertService) {
		s.metrics = metrics
	}
}

// WithAlertClock overrides the time source.
func WithAlertClock(now func() time.Time) AlertServiceOption {
	return func(s *AlertService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAlertService constructs the alert store service.
func NewAlertService(repo alertStore, logger *zap.Logger, opts ...AlertServiceOption) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AlertService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create validates and stores an alert.
func (s *AlertService) Create(ctx context.Context, input models.NewAlert) (*models.Alert, error) {
	if !input.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported alert type")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "alert title is required")
	}
	severity := input.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}
	alert := &models.Alert{
		AlertType:        input.Type,
		Title:            title,
		Message:          input.Message,
		Severity:         severity,
		RelatedDisease:   optionalString(input.RelatedDisease),
		RelatedStudentID: optionalString(input.RelatedStudentID),
		RelatedRecordID:  optionalString(input.RelatedRecordID),
		RecipientUserID:  input.Recipient.UserID(),
		CreatedAt:        s.now(),
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, appErrors.Internal(err, "failed to create alert")
	}
	if s.metrics != nil {
		s.metrics.RecordAlertCreated(alert.AlertType, alert.Severity)
	}
	if s.sink != nil && !input.Confidential {
		s.sink.Publish(alert)
	}
	return alert, nil
}

// ExistsRecent reports whether an alert with the same type and correlation key was
// created within window.
func (s *AlertService) ExistsRecent(ctx context.Context, alertType models.AlertType, key models.AlertCorrelation, window time.Duration) (bool, error) {
	exists, err := s.repo.ExistsRecent(ctx, alertType, key, s.now().Add(-window))
	if err != nil {
		return false, appErrors.Internal(err, "failed to check recent alerts")
	}
	return exists, nil
}

// List returns the alerts visible to viewerID, most severe first.
func (s *AlertService) List(ctx context.Context, viewerID string, query dto.AlertQuery) ([]models.Alert, error) {
	if viewerID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if query.Type != "" && !query.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported alert type")
	}
	alerts, err := s.repo.List(ctx, models.AlertFilter{
		ViewerID:   viewerID,
		UnreadOnly: query.UnreadOnly,
		Type:       query.Type,
		Limit:      query.Limit,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list alerts")
	}
	return alerts, nil
}

// UnreadCount counts unread alerts visible to viewerID.
func (s *AlertService) UnreadCount(ctx context.Context, viewerID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, viewerID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count unread alerts")
	}
	return count, nil
}

// MarkRead flags an alert read for everyone who can see it.
func (s *AlertService) MarkRead(ctx context.Context, id, viewerID string) error {
	if _, err := s.visible(ctx, id, viewerID); err != nil {
		return err
	}
	found, err := s.repo.MarkRead(ctx, id, s.now())
	if err != nil {
		return appErrors.Internal(err, "failed to mark alert read")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "alert not found")
	}
	return nil
}

// MarkAllRead flags every visible unread alert and returns how many changed.
func (s *AlertService) MarkAllRead(ctx context.Context, viewerID string) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, viewerID, s.now())
	if err != nil {
		return 0, appErrors.Internal(err, "failed to mark alerts read")
	}
	return updated, nil
}

// Resolve soft-dismisses an alert. The read flag is left as is.
func (s *AlertService) Resolve(ctx context.Context, id, resolverID string, notes string) error {
	if _, err := s.visible(ctx, id, resolverID); err != nil {
		return err
	}
	found, err := s.repo.Resolve(ctx, id, resolverID, optionalString(notes), s.now())
	if err != nil {
		return appErrors.Internal(err, "failed to resolve alert")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "alert not found")
	}
	return nil
}

// Delete permanently removes an alert.
func (s *AlertService) Delete(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to delete alert")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "alert not found")
	}
	return nil
}

// visible loads the alert and hides private alerts addressed to someone else.
func (s *AlertService) visible(ctx context.Context, id, viewerID string) (*models.Alert, error) {
	alert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.Internal(err, "failed to load alert")
	}
	recipient := alert.Recipient()
	if !recipient.IsBroadcast() && *recipient.UserID() != viewerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
	}
	return alert, nil
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
