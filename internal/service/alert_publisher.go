package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/models"
	"github.com/noah-isme/clinic-records-api/pkg/jobs"
)

const alertJobType = "alert.created"

type messagePublisher interface {
	Publish(ctx context.Context, messageType string, body []byte) error
}

type jobQueue interface {
	TryEnqueue(job jobs.Job) error
}

// AlertPublisher queues stored alerts for delivery to the message broker. Delivery
// is best effort and never reaches back into the alert store.
type AlertPublisher struct {
	queue  jobQueue
	logger *zap.Logger
}

// NewAlertPublisher constructs a publisher feeding queue.
func NewAlertPublisher(queue jobQueue, logger *zap.Logger) *AlertPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertPublisher{queue: queue, logger: logger}
}

// Publish enqueues alert without blocking. A full queue drops the message.
func (p *AlertPublisher) Publish(alert *models.Alert) {
	if p == nil || p.queue == nil || alert == nil {
		return
	}
	snapshot := *alert
	if err := p.queue.TryEnqueue(jobs.Job{ID: alert.ID, Type: alertJobType, Payload: snapshot}); err != nil {
		p.logger.Warn("drop alert publication", zap.String("alert_id", alert.ID), zap.Error(err))
	}
}

// AlertDeliveryHandler returns the queue handler that serialises alerts and hands them
// to the broker.
func AlertDeliveryHandler(publisher messagePublisher) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		alert, ok := job.Payload.(models.Alert)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		body, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("marshal alert %s: %w", alert.ID, err)
		}
		return publisher.Publish(ctx, job.Type, body)
	}
}
