package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// SubmitPendingActionRequest is the requester's submission.
type SubmitPendingActionRequest struct {
	ActionType   models.PendingActionType `json:"actionType"`
	TargetUserID *string                  `json:"targetUserId,omitempty"`
	ActionData   json.RawMessage          `json:"actionData"`
	Priority     models.Priority          `json:"priority,omitempty"`
}

// ApprovePendingActionRequest carries optional reviewer notes.
type ApprovePendingActionRequest struct {
	Notes string `json:"notes"`
}

// RejectPendingActionRequest carries the mandatory rejection reason.
type RejectPendingActionRequest struct {
	Notes string `json:"notes"`
}

// PendingActionQuery mirrors supported listing filters.
type PendingActionQuery struct {
	Status     []models.PendingActionStatus
	ActionType models.PendingActionType
	Limit      int
	Offset     int
}

// ExecutionResult reports the outcome of an approval. Warning is set when the
// action was approved but its side effect failed.
type ExecutionResult struct {
	Action           *models.PendingAction `json:"action"`
	Executed         bool                  `json:"executed"`
	Warning          string                `json:"warning,omitempty"`
	CreatedUserID    string                `json:"createdUserId,omitempty"`
	CreatedStudentID string                `json:"createdStudentId,omitempty"`
	Username         string                `json:"username,omitempty"`
}

// ActionPayload is the type-tagged body of a pending action. Each action type
// has exactly one implementation.
type ActionPayload interface {
	ActionType() models.PendingActionType
	isActionPayload()
}

// RegisterStudentPayload is the full registration form.
type RegisterStudentPayload struct {
	FirstName       string `json:"firstName" validate:"required,max=100"`
	MiddleName      string `json:"middleName,omitempty" validate:"max=100"`
	LastName        string `json:"lastName" validate:"required,max=100"`
	DateOfBirth     string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Gender          string `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	NationalID      string `json:"nationalId,omitempty" validate:"max=32"`
	StudentNumber   string `json:"studentNumber" validate:"required,max=32"`
	GradeLevel      string `json:"gradeLevel,omitempty" validate:"max=32"`
	Section         string `json:"section,omitempty" validate:"max=64"`
	ContactNumber   string `json:"contactNumber,omitempty" validate:"max=32"`
	GuardianName    string `json:"guardianName,omitempty" validate:"max=200"`
	GuardianContact string `json:"guardianContact,omitempty" validate:"max=32"`
	Address         string `json:"address,omitempty" validate:"max=500"`
	BloodType       string `json:"bloodType,omitempty" validate:"max=8"`
	Allergies       string `json:"allergies,omitempty" validate:"max=1000"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	Username        string `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Password        string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

// ActionType implements ActionPayload.
func (RegisterStudentPayload) ActionType() models.PendingActionType {
	return models.ActionRegisterStudent
}

func (RegisterStudentPayload) isActionPayload() {}

// BirthDate parses DateOfBirth as a calendar day in UTC.
func (p RegisterStudentPayload) BirthDate() (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(p.DateOfBirth))
}

// TargetUserSummary snapshots the user an action operates on.
type TargetUserSummary struct {
	ID       string          `json:"id" validate:"required"`
	Username string          `json:"username,omitempty"`
	FullName string          `json:"fullName,omitempty"`
	Role     models.UserRole `json:"role,omitempty"`
}

// UserActionDetails is shared by the account-level actions.
type UserActionDetails struct {
	TargetUser TargetUserSummary `json:"targetUser" validate:"required"`
	Reason     string            `json:"reason" validate:"required,max=1000"`
}

// DeactivateUserPayload asks to disable a user's account.
type DeactivateUserPayload struct {
	UserActionDetails
}

// ActionType implements ActionPayload.
func (DeactivateUserPayload) ActionType() models.PendingActionType {
	return models.ActionDeactivateUser
}

func (DeactivateUserPayload) isActionPayload() {}

// DeleteUserPayload asks to permanently remove a user.
type DeleteUserPayload struct {
	UserActionDetails
}

// ActionType implements ActionPayload.
func (DeleteUserPayload) ActionType() models.PendingActionType {
	return models.ActionDeleteUser
}

func (DeleteUserPayload) isActionPayload() {}

// DecodeActionPayload decodes raw into the payload type tagged by actionType.
func DecodeActionPayload(actionType models.PendingActionType, raw []byte) (ActionPayload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("actionData is required")
	}
	switch actionType {
	case models.ActionRegisterStudent:
		var p RegisterStudentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", actionType, err)
		}
		return p, nil
	case models.ActionDeactivateUser:
		var p DeactivateUserPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", actionType, err)
		}
		return p, nil
	case models.ActionDeleteUser:
		var p DeleteUserPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", actionType, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported action type %q", actionType)
	}
}
