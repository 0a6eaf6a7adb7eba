package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	"github.com/noah-isme/clinic-records-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

const executionFailurePrefix = "EXECUTION FAILED: "

type pendingActionStore interface {
	Create(ctx context.Context, action *models.PendingAction) error
	GetByID(ctx context.Context, id string) (*models.PendingAction, error)
	List(ctx context.Context, filter models.PendingActionFilter) ([]models.PendingAction, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
	DeletePending(ctx context.Context, id, requesterID string) (bool, error)
}

type actionExecutor interface {
	Execute(ctx context.Context, action *models.PendingAction, payload dto.ActionPayload, reviewerID string) (*Execution, error)
}

type transitionMetrics interface {
	RecordPendingTransition(actionType models.PendingActionType, status string)
}

// PendingActionService is the requester/reviewer state machine. It is the only writer
// that moves an action out of PENDING.
type PendingActionService struct {
	repo      pendingActionStore
	tx        transactor
	executor  actionExecutor
	registrar studentRegistrar
	alerts    AlertCreator
	audit     auditLogger
	validator *validator.Validate
	metrics   transitionMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// PendingActionServiceOption configures the service.
type PendingActionServiceOption func(*PendingActionService)

// WithTransitionMetrics counts state transitions.
func WithTransitionMetrics(metrics transitionMetrics) PendingActionServiceOption {
	return func(s *PendingActionService) {
		s.metrics = metrics
	}
}

// WithPendingActionClock overrides the time source.
func WithPendingActionClock(now func() time.Time) PendingActionServiceOption {
	return func(s *PendingActionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPendingActionService constructs the service. registrar runs the post-commit
// duplicate check for approved registrations.
func NewPendingActionService(repo pendingActionStore, tx transactor, executor actionExecutor, registrar studentRegistrar, alerts AlertCreator, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...PendingActionServiceOption) *PendingActionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &PendingActionService{
		repo:      repo,
		tx:        tx,
		executor:  executor,
		registrar: registrar,
		alerts:    alerts,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit validates and stores a new PENDING action, then tells reviewers about it.
// It never performs the mutation itself.
func (s *PendingActionService) Submit(ctx context.Context, req dto.SubmitPendingActionRequest, requester *models.JWTClaims) (*models.PendingAction, error) {
	if requester == nil {
		return nil, appErrors.ErrUnauthorized
	}
	payload, target, err := s.validateSubmission(req, requester.UserID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to encode action data")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	action := &models.PendingAction{
		ActionType:    req.ActionType,
		RequestedByID: requester.UserID,
		RequestedAt:   s.now(),
		TargetUserID:  target,
		ActionData:    data,
		Status:        models.PendingActionPending,
		Priority:      priority,
	}
	if err := s.repo.Create(ctx, action); err != nil {
		return nil, appErrors.Internal(err, "failed to create pending action")
	}

	requesterName := requester.FullName
	if requesterName == "" {
		requesterName = requester.Username
	}
	if _, err := s.alerts.Create(ctx, models.NewAlert{
		Type:            models.AlertSystem,
		Title:           fmt.Sprintf("Approval needed: %s", humanAction(action.ActionType)),
		Message:         fmt.Sprintf("%s submitted a request to %s. %s", requesterName, humanAction(action.ActionType), describePayload(payload)),
		Severity:        priority.Severity(),
		RelatedRecordID: action.ID,
		Recipient:       models.Broadcast(),
	}); err != nil {
		s.logger.Warn("failed to alert reviewers", zap.String("pending_action_id", action.ID), zap.Error(err))
	}
	s.recordTransition(action.ActionType, "SUBMITTED")
	emitAudit(ctx, s.audit, s.logger, "pending-action-service", &models.AuditLog{
		UserID:     &requester.UserID,
		Action:     models.AuditActionPendingSubmit,
		Resource:   "pending_action",
		ResourceID: &action.ID,
		NewValues:  auditPayload(action),
	})
	return redactForRead(action), nil
}

// List returns actions ordered by priority then recency. Non-elevated callers only see
// their own requests.
func (s *PendingActionService) List(ctx context.Context, query dto.PendingActionQuery, actor *models.JWTClaims) ([]models.PendingAction, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	for _, status := range query.Status {
		if status != models.PendingActionPending && !status.Terminal() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported status %q", status))
		}
	}
	if query.ActionType != "" && !query.ActionType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported action type %q", query.ActionType))
	}
	filter := models.PendingActionFilter{
		Status:     query.Status,
		ActionType: query.ActionType,
		Limit:      query.Limit,
		Offset:     query.Offset,
	}
	if !actor.Role.Elevated() {
		filter.RequestedBy = actor.UserID
	}
	actions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list pending actions")
	}
	for i := range actions {
		redactForRead(&actions[i])
	}
	return actions, nil
}

// Get returns a single action, scoped like List.
func (s *PendingActionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.PendingAction, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	action, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Elevated() && action.RequestedByID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pending action not found")
	}
	return redactForRead(action), nil
}

// Approve marks the action APPROVED and executes its side effect in the same
// transaction. When the side effect fails the action is still APPROVED, the failure
// is written to reviewNotes, and the result carries a warning instead of an error.
func (s *PendingActionService) Approve(ctx context.Context, id, reviewerID string, req dto.ApprovePendingActionRequest) (*dto.ExecutionResult, error) {
	action, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if action.Status.Terminal() {
		return nil, alreadyReviewed(action.Status)
	}

	now := s.now()
	notes := optionalString(req.Notes)
	redacted := redactActionData(action.ActionType, action.ActionData)

	payload, decodeErr := dto.DecodeActionPayload(action.ActionType, action.ActionData)
	if decodeErr != nil {
		return s.approveFailed(ctx, action, reviewerID, now, redacted,
			appErrors.Wrap(decodeErr, appErrors.ErrExecutionFailed.Code, appErrors.ErrExecutionFailed.Status, "stored action data is invalid"))
	}

	var execution *Execution
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Transition(txCtx, repository.TransitionParams{
			ID:         action.ID,
			Status:     models.PendingActionApproved,
			ReviewedBy: reviewerID,
			ReviewedAt: now,
			Notes:      notes,
			ActionData: redacted,
		}); err != nil {
			return err
		}
		var execErr error
		execution, execErr = s.executor.Execute(txCtx, action, payload, reviewerID)
		if execErr != nil {
			return &executionError{err: execErr}
		}
		return nil
	})
	if err != nil {
		var execErr *executionError
		if errors.As(err, &execErr) {
			return s.approveFailed(ctx, action, reviewerID, now, redacted, execErr.err)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reviewConflict(ctx, action.ID)
		}
		return nil, appErrors.Internal(err, "failed to approve pending action")
	}

	action.Status = models.PendingActionApproved
	action.ReviewedByID = &reviewerID
	action.ReviewedAt = &now
	action.ReviewNotes = notes
	if len(redacted) > 0 {
		action.ActionData = redacted
	}
	result := &dto.ExecutionResult{Action: action, Executed: true}

	if execution != nil && execution.Registration != nil {
		if s.registrar != nil {
			s.registrar.DetectDuplicates(ctx, execution.Student)
		}
		reg := execution.Registration
		result.CreatedUserID = reg.UserID
		result.CreatedStudentID = reg.StudentID
		result.Username = reg.Username
		s.notifyRequester(ctx, action, true, models.SeverityMedium,
			"Student account created",
			fmt.Sprintf("Your request to register %s (%s) was approved. Username: %s Password: %s. Share these credentials with the student; the password is not stored anywhere else.",
				reg.FullName, reg.StudentNumber, reg.Username, reg.Password))
	} else {
		s.notifyRequester(ctx, action, false, models.SeverityLow,
			fmt.Sprintf("Request approved: %s", humanAction(action.ActionType)),
			fmt.Sprintf("Your request to %s was approved and applied.%s", humanAction(action.ActionType), notesSuffix(notes)))
	}

	s.recordTransition(action.ActionType, string(models.PendingActionApproved))
	emitAudit(ctx, s.audit, s.logger, "pending-action-service", &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionPendingApprove,
		Resource:   "pending_action",
		ResourceID: &action.ID,
		NewValues:  []byte(`{"status":"APPROVED","executed":true}`),
	})
	return result, nil
}

// Reject marks the action REJECTED. Notes are mandatory.
func (s *PendingActionService) Reject(ctx context.Context, id, reviewerID string, req dto.RejectPendingActionRequest) (*models.PendingAction, error) {
	notes := optionalString(req.Notes)
	if notes == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection notes are required")
	}
	action, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if action.Status.Terminal() {
		return nil, alreadyReviewed(action.Status)
	}
	now := s.now()
	if err := s.repo.Transition(ctx, repository.TransitionParams{
		ID:         action.ID,
		Status:     models.PendingActionRejected,
		ReviewedBy: reviewerID,
		ReviewedAt: now,
		Notes:      notes,
		ActionData: redactActionData(action.ActionType, action.ActionData),
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reviewConflict(ctx, action.ID)
		}
		return nil, appErrors.Internal(err, "failed to reject pending action")
	}
	action.Status = models.PendingActionRejected
	action.ReviewedByID = &reviewerID
	action.ReviewedAt = &now
	action.ReviewNotes = notes

	s.notifyRequester(ctx, action, false, models.SeverityMedium,
		fmt.Sprintf("Request rejected: %s", humanAction(action.ActionType)),
		fmt.Sprintf("Your request to %s was rejected. Reason: %s", humanAction(action.ActionType), *notes))
	s.recordTransition(action.ActionType, string(models.PendingActionRejected))
	emitAudit(ctx, s.audit, s.logger, "pending-action-service", &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionPendingReject,
		Resource:   "pending_action",
		ResourceID: &action.ID,
		NewValues:  []byte(`{"status":"REJECTED"}`),
	})
	return action, nil
}

// Cancel hard-deletes an action still PENDING. Only its requester may cancel.
func (s *PendingActionService) Cancel(ctx context.Context, id, requesterID string) error {
	action, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if action.RequestedByID != requesterID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requester can cancel this action")
	}
	if action.Status.Terminal() {
		return alreadyReviewed(action.Status)
	}
	deleted, err := s.repo.DeletePending(ctx, id, requesterID)
	if err != nil {
		return appErrors.Internal(err, "failed to cancel pending action")
	}
	if !deleted {
		return s.reviewConflict(ctx, id)
	}
	s.recordTransition(action.ActionType, "CANCELLED")
	emitAudit(ctx, s.audit, s.logger, "pending-action-service", &models.AuditLog{
		UserID:     &requesterID,
		Action:     models.AuditActionPendingCancel,
		Resource:   "pending_action",
		ResourceID: &id,
	})
	return nil
}

// approveFailed records an approval whose side effect failed. The action stays
// terminal and the requester is told why.
func (s *PendingActionService) approveFailed(ctx context.Context, action *models.PendingAction, reviewerID string, now time.Time, redacted []byte, cause error) (*dto.ExecutionResult, error) {
	reason := failureReason(cause)
	s.logger.Error("pending action execution failed",
		zap.String("pending_action_id", action.ID),
		zap.String("action_type", string(action.ActionType)),
		zap.Error(cause),
	)
	note := executionFailurePrefix + reason
	if err := s.repo.Transition(ctx, repository.TransitionParams{
		ID:         action.ID,
		Status:     models.PendingActionApproved,
		ReviewedBy: reviewerID,
		ReviewedAt: now,
		Notes:      &note,
		ActionData: redacted,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reviewConflict(ctx, action.ID)
		}
		return nil, appErrors.Internal(err, "failed to record approval failure")
	}
	action.Status = models.PendingActionApproved
	action.ReviewedByID = &reviewerID
	action.ReviewedAt = &now
	action.ReviewNotes = &note
	if len(redacted) > 0 {
		action.ActionData = redacted
	}

	s.notifyRequester(ctx, action, false, models.SeverityHigh,
		fmt.Sprintf("Request not applied: %s", humanAction(action.ActionType)),
		fmt.Sprintf("Your request to %s was approved but could not be carried out and needs manual follow-up. Reason: %s", humanAction(action.ActionType), reason))
	s.recordTransition(action.ActionType, "APPROVED_FAILED")
	emitAudit(ctx, s.audit, s.logger, "pending-action-service", &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionPendingApprove,
		Resource:   "pending_action",
		ResourceID: &action.ID,
		NewValues:  []byte(`{"status":"APPROVED","executed":false}`),
	})
	return &dto.ExecutionResult{
		Action:   action,
		Executed: false,
		Warning:  appErrors.Clone(appErrors.ErrExecutionFailed, "approved but not executed: "+reason).Message,
	}, nil
}

func (s *PendingActionService) load(ctx context.Context, id string) (*models.PendingAction, error) {
	action, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pending action not found")
		}
		return nil, appErrors.Internal(err, "failed to load pending action")
	}
	return action, nil
}

// reviewConflict re-reads an action after a lost compare-and-swap.
func (s *PendingActionService) reviewConflict(ctx context.Context, id string) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return alreadyReviewed(current.Status)
	}
	return appErrors.Clone(appErrors.ErrConflict, "pending action changed concurrently, retry")
}

// notifyRequester sends a direct alert to the requester. Confidential alerts carry
// credentials and stay in the alert store only.
func (s *PendingActionService) notifyRequester(ctx context.Context, action *models.PendingAction, confidential bool, severity models.AlertSeverity, title, message string) {
	if _, err := s.alerts.Create(ctx, models.NewAlert{
		Type:            models.AlertSystem,
		Title:           title,
		Message:         message,
		Severity:        severity,
		RelatedRecordID: action.ID,
		Recipient:       models.Direct(action.RequestedByID),
		Confidential:    confidential,
	}); err != nil {
		s.logger.Warn("failed to notify requester",
			zap.String("pending_action_id", action.ID),
			zap.String("requester_id", action.RequestedByID),
			zap.Error(err),
		)
	}
}

func (s *PendingActionService) recordTransition(actionType models.PendingActionType, status string) {
	if s.metrics != nil {
		s.metrics.RecordPendingTransition(actionType, status)
	}
}

func (s *PendingActionService) validateSubmission(req dto.SubmitPendingActionRequest, requesterID string) (dto.ActionPayload, *string, error) {
	if !req.ActionType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported action type %q", req.ActionType))
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "priority must be LOW, MEDIUM or HIGH")
	}
	target := optionalString(derefString(req.TargetUserID))
	if req.ActionType.RequiresTarget() && target == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "targetUserId is required for "+string(req.ActionType))
	}
	if !req.ActionType.RequiresTarget() && target != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "targetUserId is not allowed for "+string(req.ActionType))
	}

	payload, err := dto.DecodeActionPayload(req.ActionType, req.ActionData)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "actionData does not match actionType")
	}
	switch p := payload.(type) {
	case dto.RegisterStudentPayload:
		p = normaliseRegistration(p)
		if err := s.validator.Struct(p); err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
		}
		payload = p
	case dto.DeactivateUserPayload:
		if err := s.validateUserAction(p.UserActionDetails, *target, requesterID); err != nil {
			return nil, nil, err
		}
	case dto.DeleteUserPayload:
		if err := s.validateUserAction(p.UserActionDetails, *target, requesterID); err != nil {
			return nil, nil, err
		}
	}
	return payload, target, nil
}

func (s *PendingActionService) validateUserAction(details dto.UserActionDetails, targetID, requesterID string) error {
	if err := s.validator.Struct(details); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user action payload")
	}
	if details.TargetUser.ID != targetID {
		return appErrors.Clone(appErrors.ErrValidation, "actionData.targetUser.id must match targetUserId")
	}
	if targetID == requesterID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot request an action against your own account")
	}
	return nil
}

// executionError marks a side-effect failure inside the approval transaction.
type executionError struct {
	err error
}

func (e *executionError) Error() string { return e.err.Error() }

func (e *executionError) Unwrap() error { return e.err }

func alreadyReviewed(status models.PendingActionStatus) error {
	return appErrors.Clone(appErrors.ErrAlreadyReviewed, fmt.Sprintf("pending action already %s", strings.ToLower(string(status))))
}

// redactActionData drops the plaintext password from a registration payload. It
// returns nil when nothing needs rewriting.
func redactActionData(actionType models.PendingActionType, raw []byte) []byte {
	if actionType != models.ActionRegisterStudent || len(raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	if _, ok := fields["password"]; !ok {
		return nil
	}
	delete(fields, "password")
	out, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return out
}

func auditPayload(action *models.PendingAction) []byte {
	if redacted := redactActionData(action.ActionType, action.ActionData); redacted != nil {
		return redacted
	}
	return action.ActionData
}

// redactForRead strips credentials from action data before it leaves the service.
// The stored copy keeps them for the executor.
func redactForRead(action *models.PendingAction) *models.PendingAction {
	if redacted := redactActionData(action.ActionType, action.ActionData); redacted != nil {
		action.ActionData = redacted
	}
	return action
}

func failureReason(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func humanAction(actionType models.PendingActionType) string {
	switch actionType {
	case models.ActionRegisterStudent:
		return "register a student"
	case models.ActionDeactivateUser:
		return "deactivate a user"
	case models.ActionDeleteUser:
		return "delete a user"
	default:
		return strings.ToLower(string(actionType))
	}
}

func describePayload(payload dto.ActionPayload) string {
	switch p := payload.(type) {
	case dto.RegisterStudentPayload:
		return fmt.Sprintf("Student: %s (%s).", joinName(p.FirstName, p.MiddleName, p.LastName), p.StudentNumber)
	case dto.DeactivateUserPayload:
		return fmt.Sprintf("Target: %s. Reason: %s", targetLabel(p.TargetUser), p.Reason)
	case dto.DeleteUserPayload:
		return fmt.Sprintf("Target: %s. Reason: %s", targetLabel(p.TargetUser), p.Reason)
	default:
		return ""
	}
}

func targetLabel(target dto.TargetUserSummary) string {
	switch {
	case target.FullName != "" && target.Username != "":
		return fmt.Sprintf("%s (%s)", target.FullName, target.Username)
	case target.FullName != "":
		return target.FullName
	case target.Username != "":
		return target.Username
	default:
		return target.ID
	}
}

func notesSuffix(notes *string) string {
	if notes == nil {
		return ""
	}
	return " Reviewer notes: " + *notes
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
