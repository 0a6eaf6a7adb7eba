package dto

// RecordVisitRequest captures a clinic visit.
type RecordVisitRequest struct {
	StudentID       string   `json:"studentId" validate:"required"`
	VisitDate       string   `json:"visitDate,omitempty"`
	Complaint       string   `json:"complaint" validate:"required,max=1000"`
	Diagnosis       string   `json:"diagnosis,omitempty" validate:"max=1000"`
	DiseaseCategory string   `json:"diseaseCategory,omitempty" validate:"max=100"`
	Treatment       string   `json:"treatment,omitempty" validate:"max=1000"`
	Temperature     *float64 `json:"temperature,omitempty" validate:"omitempty,gte=30,lte=45"`
}
