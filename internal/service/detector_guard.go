package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/repository"
)

const (
	detectorDuplicate = "duplicate"
	detectorOutbreak  = "outbreak"
	detectorTrend     = "trend"
)

const detectorLockAttempts = 3

var detectorLockBackoff = 25 * time.Millisecond

type detectorLock interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

type detectorMetrics interface {
	RecordDetectorFailure(detector string)
}

// withDetectorLock runs fn while holding the detector key. A busy key is retried with
// a short backoff; when it stays busy, or the lock backend fails, fn runs unguarded
// and the store check de-duplicates. fn always runs unless ctx is done.
func withDetectorLock(ctx context.Context, lock detectorLock, logger *zap.Logger, detector, disease string, fn func() error) error {
	if lock == nil {
		return fn()
	}
	key := repository.DetectorLockKey(detector, disease)
	delay := detectorLockBackoff
	for attempt := 1; ; attempt++ {
		release, ok, err := lock.Acquire(ctx, key)
		if err != nil {
			logger.Warn("detector lock unavailable", zap.String("detector", detector), zap.String("key", key), zap.Error(err))
			return fn()
		}
		if ok {
			defer release()
			return fn()
		}
		if attempt == detectorLockAttempts {
			logger.Debug("detector busy, evaluating unguarded", zap.String("detector", detector), zap.String("key", key))
			return fn()
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

// swallowDetector logs and counts a detector failure. Detector errors never fail the
// write that triggered them.
func swallowDetector(logger *zap.Logger, metrics detectorMetrics, detector string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if metrics != nil {
		metrics.RecordDetectorFailure(detector)
	}
	logger.Warn("detector failed", append([]zap.Field{zap.String("detector", detector), zap.Error(err)}, fields...)...)
}
