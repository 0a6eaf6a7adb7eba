package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

func newOutbreakFixture(count int, threshold int, now time.Time) (*OutbreakDetector, *alertRepoStub, *visitCounterStub) {
	cfg := DetectorConfig{Location: time.UTC, Now: fixedClock(now)}
	from, _ := trailingDays(now, 7)
	visits := &visitCounterStub{counts: map[time.Time]int{from: count}}
	alertRepo := &alertRepoStub{}
	alerts := NewAlertService(alertRepo, nil, WithAlertClock(fixedClock(now)))
	thresholds := &thresholdLookupStub{threshold: &models.DiseaseThreshold{DiseaseName: "Influenza", CasesPerWeek: threshold, IsActive: true}}
	return NewOutbreakDetector(thresholds, visits, alerts, nil, nil, cfg), alertRepo, visits
}

func TestTrailingDaysStartsAtMidnightSixDaysAgo(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	from, to := trailingDays(now, 7)
	assert.Equal(t, time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), to)
}

func TestOutbreakDetectorSeverityAndDedupe(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	detector, alertRepo, _ := newOutbreakFixture(10, 10, now)
	ctx := context.Background()

	alert, err := detector.CheckThreshold(ctx, "influenza")
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.Equal(t, models.AlertOutbreakSuspected, alert.AlertType)

	alert, err = detector.CheckThreshold(ctx, "INFLUENZA")
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Len(t, alertRepo.snapshot(), 1)
}

func TestOutbreakDetectorCriticalAtDoubleThreshold(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	detector, _, _ := newOutbreakFixture(20, 10, now)
	alert, err := detector.CheckThreshold(context.Background(), "Influenza")
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
}

func TestOutbreakDetectorSilentBelowThresholdOrUnconfigured(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	detector, alertRepo, visits := newOutbreakFixture(9, 10, now)
	alert, err := detector.CheckThreshold(context.Background(), "Influenza")
	require.NoError(t, err)
	assert.Nil(t, alert)

	alert, err = detector.CheckThreshold(context.Background(), "Measles")
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Empty(t, alertRepo.snapshot())
	assert.Len(t, visits.ranges, 1)
}

func TestOutbreakDetectorEvaluatesDespiteBusyLock(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	detector, alertRepo, _ := newOutbreakFixture(12, 10, now)
	lock := &lockStub{held: true}
	detector.lock = lock

	alert, err := detector.CheckThreshold(context.Background(), "Influenza")
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Len(t, alertRepo.snapshot(), 1)
	assert.Equal(t, detectorLockAttempts, lock.calls)
	assert.Equal(t, 0, lock.acquired)

	alert, err = detector.CheckThreshold(context.Background(), "Influenza")
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Len(t, alertRepo.snapshot(), 1)
}

func TestOutbreakDetectorRetriesLock(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	detector, alertRepo, _ := newOutbreakFixture(10, 10, now)
	lock := &lockStub{busy: 1}
	detector.lock = lock

	alert, err := detector.CheckThreshold(context.Background(), "Influenza")
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Len(t, alertRepo.snapshot(), 1)
	assert.Equal(t, 2, lock.calls)
	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)

	lock.err = errors.New("redis down")
	detector2, _, _ := newOutbreakFixture(10, 10, now)
	detector2.lock = lock
	alert, err = detector2.CheckThreshold(context.Background(), "Influenza")
	require.NoError(t, err)
	assert.NotNil(t, alert)
	assert.Equal(t, 1, lock.acquired)
}

func TestOutbreakDetectorBusyLockRespectsContext(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	detector, alertRepo, _ := newOutbreakFixture(10, 10, now)
	detector.lock = &lockStub{held: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := detector.CheckThreshold(ctx, "Influenza")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, alertRepo.snapshot())
}
