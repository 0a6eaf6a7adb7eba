package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

const (
	trendMinPercent        = 50.0
	trendMinCurrent        = 2
	trendMinIncrease       = 2
	trendNoBaselineMinimum = 3
)

// trendDecision is the outcome of comparing two monthly counts.
type trendDecision struct {
	Fire bool
	// Percent is meaningful only when HasBaseline is true.
	Percent     float64
	HasBaseline bool
}

// evaluateTrend applies the month-over-month rule.
func evaluateTrend(current, previous int) trendDecision {
	if current <= 0 {
		return trendDecision{}
	}
	if previous <= 0 {
		return trendDecision{Fire: current >= trendNoBaselineMinimum}
	}
	percent := float64(current-previous) / float64(previous) * 100
	fire := percent >= trendMinPercent && current >= trendMinCurrent && current-previous >= trendMinIncrease
	return trendDecision{Fire: fire, Percent: percent, HasBaseline: true}
}

// TrendDetector raises DISEASE_TREND when a disease rises sharply month over month.
type TrendDetector struct {
	visits visitCounter
	alerts AlertCreator
	lock   detectorLock
	logger *zap.Logger
	cfg    DetectorConfig
}

// NewTrendDetector constructs the detector. Months are calendar months in UTC.
func NewTrendDetector(visits visitCounter, alerts AlertCreator, lock detectorLock, logger *zap.Logger, cfg DetectorConfig) *TrendDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrendDetector{visits: visits, alerts: alerts, lock: lock, logger: logger, cfg: cfg.withDefaults()}
}

// CheckTrend compares this month's visits for disease against last month's.
func (d *TrendDetector) CheckTrend(ctx context.Context, disease string) (*models.Alert, error) {
	disease = strings.TrimSpace(disease)
	if disease == "" {
		return nil, nil
	}
	var created *models.Alert
	err := withDetectorLock(ctx, d.lock, d.logger, detectorTrend, disease, func() error {
		alert, err := d.evaluate(ctx, disease)
		created = alert
		return err
	})
	return created, err
}

func (d *TrendDetector) evaluate(ctx context.Context, disease string) (*models.Alert, error) {
	key := models.AlertCorrelation{Disease: disease}
	recent, err := d.alerts.ExistsRecent(ctx, models.AlertDiseaseTrend, key, d.cfg.DedupWindow)
	if err != nil {
		return nil, err
	}
	if recent {
		return nil, nil
	}

	prevStart, curStart, nextStart := monthBounds(d.cfg.Now().UTC())
	current, err := d.visits.CountByDisease(ctx, disease, curStart, nextStart)
	if err != nil {
		return nil, fmt.Errorf("count %s visits this month: %w", disease, err)
	}
	if current == 0 {
		return nil, nil
	}
	previous, err := d.visits.CountByDisease(ctx, disease, prevStart, curStart)
	if err != nil {
		return nil, fmt.Errorf("count %s visits last month: %w", disease, err)
	}

	decision := evaluateTrend(current, previous)
	if !decision.Fire {
		return nil, nil
	}
	var message string
	if decision.HasBaseline {
		message = fmt.Sprintf("%s cases rose %.0f%% month over month (%d last month, %d this month).",
			disease, decision.Percent, previous, current)
	} else {
		message = fmt.Sprintf("%d new %s cases this month with none recorded last month.", current, disease)
	}
	alert, err := d.alerts.Create(ctx, models.NewAlert{
		Type:           models.AlertDiseaseTrend,
		Title:          fmt.Sprintf("Rising %s cases", disease),
		Message:        message,
		Severity:       models.SeverityHigh,
		RelatedDisease: disease,
		Recipient:      models.Broadcast(),
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info("trend alert raised", zap.String("disease", disease), zap.Int("current", current), zap.Int("previous", previous))
	return alert, nil
}

// monthBounds returns the starts of the previous, current and next calendar month.
func monthBounds(now time.Time) (time.Time, time.Time, time.Time) {
	cur := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return cur.AddDate(0, -1, 0), cur, cur.AddDate(0, 1, 0)
}
