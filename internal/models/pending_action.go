package models

import (
	"encoding/json"
	"time"
)

// PendingActionType enumerates the closed set of actions that need approval.
type PendingActionType string

const (
	ActionRegisterStudent PendingActionType = "REGISTER_STUDENT"
	ActionDeactivateUser  PendingActionType = "DEACTIVATE_USER"
	ActionDeleteUser      PendingActionType = "DELETE_USER"
)

// Valid reports whether t is a known action type.
func (t PendingActionType) Valid() bool {
	switch t {
	case ActionRegisterStudent, ActionDeactivateUser, ActionDeleteUser:
		return true
	}
	return false
}

// RequiresTarget reports whether the action operates on an existing user.
func (t PendingActionType) RequiresTarget() bool {
	return t == ActionDeactivateUser || t == ActionDeleteUser
}

// PendingActionStatus captures workflow states. Any non-PENDING status is terminal.
type PendingActionStatus string

const (
	PendingActionPending  PendingActionStatus = "PENDING"
	PendingActionApproved PendingActionStatus = "APPROVED"
	PendingActionRejected PendingActionStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s PendingActionStatus) Terminal() bool {
	return s == PendingActionApproved || s == PendingActionRejected
}

// Priority is advisory; it drives alert severity and default ordering.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Severity maps the request priority onto an alert severity.
func (p Priority) Severity() AlertSeverity {
	switch p {
	case PriorityHigh:
		return SeverityHigh
	case PriorityLow:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// PendingAction stores an administrative request awaiting review.
type PendingAction struct {
	ID            string              `db:"id" json:"id"`
	ActionType    PendingActionType   `db:"action_type" json:"actionType"`
	RequestedByID string              `db:"requested_by_id" json:"requestedById"`
	RequestedAt   time.Time           `db:"requested_at" json:"requestedAt"`
	TargetUserID  *string             `db:"target_user_id" json:"targetUserId,omitempty"`
	ActionData    json.RawMessage     `db:"action_data" json:"actionData"`
	Status        PendingActionStatus `db:"status" json:"status"`
	Priority      Priority            `db:"priority" json:"priority"`
	ReviewedByID  *string             `db:"reviewed_by_id" json:"reviewedById,omitempty"`
	ReviewedAt    *time.Time          `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNotes   *string             `db:"review_notes" json:"reviewNotes,omitempty"`
}

// PendingActionFilter constrains listing queries.
type PendingActionFilter struct {
	Status      []PendingActionStatus
	ActionType  PendingActionType
	RequestedBy string
	Limit       int
	Offset      int
}
