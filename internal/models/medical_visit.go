package models

import "time"

// MedicalVisit is a clinic visit, optionally tagged with a disease category.
type MedicalVisit struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"studentId"`
	VisitDate       time.Time `db:"visit_date" json:"visitDate"`
	Complaint       string    `db:"complaint" json:"complaint"`
	Diagnosis       *string   `db:"diagnosis" json:"diagnosis,omitempty"`
	DiseaseCategory *string   `db:"disease_category" json:"diseaseCategory,omitempty"`
	Treatment       *string   `db:"treatment" json:"treatment,omitempty"`
	Temperature     *float64  `db:"temperature" json:"temperature,omitempty"`
	RecordedByID    string    `db:"recorded_by_id" json:"recordedById"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}
