package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/models"
	"github.com/noah-isme/clinic-records-api/pkg/middleware/requestid"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// emitAudit stores an audit entry. Audit failures are logged and never surface.
func emitAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, agent string, log *models.AuditLog) {
	if audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = agent
	if err := audit.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to persist audit log",
			zap.String("action", log.Action),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Error(err))
	}
}
