package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// DetectorLockRepository provides short-lived Redis locks that keep two writers from
// evaluating the same detector key at once.
type DetectorLockRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDetectorLockRepository constructs the lock repository. A nil client makes every
// acquire succeed.
func NewDetectorLockRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DetectorLockRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DetectorLockRepository{client: client, ttl: ttl, logger: logger}
}

// DetectorLockKey builds the lock key for a detector and disease.
func DetectorLockKey(detector, disease string) string {
	return fmt.Sprintf("detector:%s:%s", detector, strings.ToLower(strings.TrimSpace(disease)))
}

// Acquire tries to take key. It returns a release func when the lock is held by the
// caller and ok=false when someone else holds it.
func (r *DetectorLockRepository) Acquire(ctx context.Context, key string) (release func(), ok bool, err error) {
	if r.client == nil {
		return func() {}, true, nil
	}
	token, err := randomToken()
	if err != nil {
		return nil, false, err
	}
	acquired, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !acquired {
		return nil, false, nil
	}
	release = func() {
		if err := releaseScript.Run(context.Background(), r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			r.logger.Warn("release detector lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, true, nil
}

// Close releases the underlying Redis connection if present.
func (r *DetectorLockRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
