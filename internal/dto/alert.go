package dto

import "github.com/noah-isme/clinic-records-api/internal/models"

// AlertQuery mirrors supported listing filters.
type AlertQuery struct {
	UnreadOnly bool
	Type       models.AlertType
	Limit      int
}

// ResolveAlertRequest carries optional resolution notes.
type ResolveAlertRequest struct {
	Notes string `json:"notes"`
}
