package dto

// UpsertThresholdRequest configures a disease threshold keyed by name.
type UpsertThresholdRequest struct {
	DiseaseName  string `json:"diseaseName" validate:"required,max=100"`
	CasesPerWeek int    `json:"casesPerWeek" validate:"required,min=1,max=10000"`
	IsActive     *bool  `json:"isActive,omitempty"`
}

// SetThresholdActiveRequest toggles a threshold.
type SetThresholdActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}
