package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

type thresholdLookup interface {
	ActiveFor(ctx context.Context, disease string) (*models.DiseaseThreshold, error)
}

type visitCounter interface {
	CountByDisease(ctx context.Context, disease string, from, to time.Time) (int, error)
}

// DetectorConfig holds the settings shared by the visit-driven detectors.
type DetectorConfig struct {
	DedupWindow time.Duration
	WindowDays  int
	Location    *time.Location
	Now         func() time.Time
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.DedupWindow <= 0 {
		c.DedupWindow = 24 * time.Hour
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 7
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// OutbreakDetector raises OUTBREAK_SUSPECTED when a disease reaches its weekly threshold.
type OutbreakDetector struct {
	thresholds thresholdLookup
	visits     visitCounter
	alerts     AlertCreator
	lock       detectorLock
	logger     *zap.Logger
	cfg        DetectorConfig
}

// NewOutbreakDetector constructs the detector. lock may be nil.
func NewOutbreakDetector(thresholds thresholdLookup, visits visitCounter, alerts AlertCreator, lock detectorLock, logger *zap.Logger, cfg DetectorConfig) *OutbreakDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutbreakDetector{
		thresholds: thresholds,
		visits:     visits,
		alerts:     alerts,
		lock:       lock,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

// CheckThreshold evaluates disease against its active threshold. It returns the alert
// it created, or nil when nothing fired.
func (d *OutbreakDetector) CheckThreshold(ctx context.Context, disease string) (*models.Alert, error) {
	disease = strings.TrimSpace(disease)
	if disease == "" {
		return nil, nil
	}
	var created *models.Alert
	err := withDetectorLock(ctx, d.lock, d.logger, detectorOutbreak, disease, func() error {
		alert, err := d.evaluate(ctx, disease)
		created = alert
		return err
	})
	return created, err
}

func (d *OutbreakDetector) evaluate(ctx context.Context, disease string) (*models.Alert, error) {
	threshold, err := d.thresholds.ActiveFor(ctx, disease)
	if err != nil {
		return nil, err
	}
	if threshold == nil || threshold.CasesPerWeek <= 0 {
		return nil, nil
	}

	key := models.AlertCorrelation{Disease: disease}
	recent, err := d.alerts.ExistsRecent(ctx, models.AlertOutbreakSuspected, key, d.cfg.DedupWindow)
	if err != nil {
		return nil, err
	}
	if recent {
		return nil, nil
	}

	from, to := trailingDays(d.cfg.Now().In(d.cfg.Location), d.cfg.WindowDays)
	count, err := d.visits.CountByDisease(ctx, disease, from, to)
	if err != nil {
		return nil, fmt.Errorf("count %s visits: %w", disease, err)
	}
	if count < threshold.CasesPerWeek {
		return nil, nil
	}

	severity := models.SeverityHigh
	if count >= 2*threshold.CasesPerWeek {
		severity = models.SeverityCritical
	}
	alert, err := d.alerts.Create(ctx, models.NewAlert{
		Type:     models.AlertOutbreakSuspected,
		Title:    fmt.Sprintf("Possible %s outbreak", threshold.DiseaseName),
		Severity: severity,
		Message: fmt.Sprintf("%d cases of %s recorded in the last %d days (threshold: %d per week).",
			count, threshold.DiseaseName, d.cfg.WindowDays, threshold.CasesPerWeek),
		RelatedDisease: disease,
		Recipient:      models.Broadcast(),
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info("outbreak alert raised", zap.String("disease", disease), zap.Int("count", count), zap.Int("threshold", threshold.CasesPerWeek))
	return alert, nil
}

// trailingDays returns [midnight days-1 ago, midnight tomorrow) in now's location.
func trailingDays(now time.Time, days int) (time.Time, time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -(days - 1)), today.AddDate(0, 0, 1)
}
