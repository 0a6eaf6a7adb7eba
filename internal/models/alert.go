package models

import "time"

// AlertType enumerates alert streams.
type AlertType string

const (
	AlertOutbreakSuspected AlertType = "OUTBREAK_SUSPECTED"
	AlertDuplicateDetected AlertType = "DUPLICATE_DETECTED"
	AlertDiseaseTrend      AlertType = "DISEASE_TREND"
	AlertSystem            AlertType = "SYSTEM"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertOutbreakSuspected, AlertDuplicateDetected, AlertDiseaseTrend, AlertSystem:
		return true
	}
	return false
}

// AlertSeverity orders alerts in listings.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// Recipient selects between broadcast delivery and a private notification.
// The zero value is a broadcast.
type Recipient struct {
	userID string
}

// Broadcast addresses every staff member allowed to read alerts.
func Broadcast() Recipient {
	return Recipient{}
}

// Direct addresses a single user.
func Direct(userID string) Recipient {
	return Recipient{userID: userID}
}

// IsBroadcast reports whether the recipient is everyone.
func (r Recipient) IsBroadcast() bool {
	return r.userID == ""
}

// UserID returns the direct recipient, or nil for broadcasts.
func (r Recipient) UserID() *string {
	if r.userID == "" {
		return nil
	}
	id := r.userID
	return &id
}

// Alert is a notification surfaced to staff.
type Alert struct {
	ID               string        `db:"id" json:"id"`
	AlertType        AlertType     `db:"alert_type" json:"alertType"`
	Title            string        `db:"title" json:"title"`
	Message          string        `db:"message" json:"message"`
	Severity         AlertSeverity `db:"severity" json:"severity"`
	RelatedDisease   *string       `db:"related_disease" json:"relatedDisease,omitempty"`
	RelatedStudentID *string       `db:"related_student_id" json:"relatedStudentId,omitempty"`
	RelatedRecordID  *string       `db:"related_record_id" json:"relatedRecordId,omitempty"`
	RecipientUserID  *string       `db:"recipient_user_id" json:"recipientUserId,omitempty"`
	IsRead           bool          `db:"is_read" json:"isRead"`
	ReadAt           *time.Time    `db:"read_at" json:"readAt,omitempty"`
	IsResolved       bool          `db:"is_resolved" json:"isResolved"`
	ResolvedByID     *string       `db:"resolved_by_id" json:"resolvedById,omitempty"`
	ResolutionNotes  *string       `db:"resolution_notes" json:"resolutionNotes,omitempty"`
	ResolvedAt       *time.Time    `db:"resolved_at" json:"resolvedAt,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"createdAt"`
}

// Recipient returns the delivery mode of a stored alert.
func (a Alert) Recipient() Recipient {
	if a.RecipientUserID == nil {
		return Broadcast()
	}
	return Direct(*a.RecipientUserID)
}

// NewAlert is the input for creating an alert.
type NewAlert struct {
	Type             AlertType
	Title            string
	Message          string
	Severity         AlertSeverity
	RelatedDisease   string
	RelatedStudentID string
	RelatedRecordID  string
	Recipient        Recipient

	// Confidential alerts are stored but never fanned out to external sinks.
	Confidential bool
}

// AlertCorrelation is the de-duplication key detectors check before firing.
type AlertCorrelation struct {
	Disease   string
	StudentID string
	RecordID  string
}

// AlertFilter constrains listing queries. ViewerID scopes direct alerts.
type AlertFilter struct {
	ViewerID   string
	UnreadOnly bool
	Type       AlertType
	Limit      int
}
