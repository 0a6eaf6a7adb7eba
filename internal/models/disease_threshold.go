package models

import "time"

// DiseaseThreshold configures the weekly case count that suggests an outbreak.
type DiseaseThreshold struct {
	ID           string    `db:"id" json:"id"`
	DiseaseName  string    `db:"disease_name" json:"diseaseName"`
	CasesPerWeek int       `db:"cases_per_week" json:"casesPerWeek"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	AutoCreated  bool      `db:"auto_created" json:"autoCreated"`
	CreatedByID  *string   `db:"created_by_id" json:"createdById,omitempty"`
	UpdatedByID  *string   `db:"updated_by_id" json:"updatedById,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
