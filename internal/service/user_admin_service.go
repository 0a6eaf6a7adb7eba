package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Deactivate(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// UserAdminService applies account-level mutations shared by the direct admin path
// and the pending-action executor.
type UserAdminService struct {
	users  userStore
	audit  auditLogger
	logger *zap.Logger
}

// NewUserAdminService constructs the service.
func NewUserAdminService(users userStore, audit auditLogger, logger *zap.Logger) *UserAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserAdminService{users: users, audit: audit, logger: logger}
}

// Deactivate disables targetID. Deactivating an inactive user succeeds.
func (s *UserAdminService) Deactivate(ctx context.Context, targetID, actorID string) error {
	if targetID == actorID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own account")
	}
	found, err := s.users.Deactivate(ctx, targetID, time.Now().UTC())
	if err != nil {
		return appErrors.Internal(err, "failed to deactivate user")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	emitAudit(ctx, s.audit, s.logger, "user-admin-service", &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserDeactivate,
		Resource:   "user",
		ResourceID: &targetID,
		NewValues:  []byte(`{"active":false}`),
	})
	return nil
}

// Delete permanently removes targetID. Dependent patient data is removed by the
// schema's cascading foreign keys.
func (s *UserAdminService) Delete(ctx context.Context, targetID, actorID string) error {
	if targetID == actorID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	}
	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to load user")
	}
	found, err := s.users.Delete(ctx, targetID)
	if err != nil {
		return appErrors.Internal(err, "failed to delete user")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	old, _ := json.Marshal(map[string]string{"username": user.Username, "fullName": user.FullName, "role": string(user.Role)})
	emitAudit(ctx, s.audit, s.logger, "user-admin-service", &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserDelete,
		Resource:   "user",
		ResourceID: &targetID,
		OldValues:  old,
	})
	return nil
}
