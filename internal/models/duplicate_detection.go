package models

import "time"

// Identity fields compared by the duplicate detector.
const (
	MatchFirstName   = "firstName"
	MatchLastName    = "lastName"
	MatchDateOfBirth = "dateOfBirth"
	MatchNationalID  = "nationalId"
)

// DuplicateDetection records a probable duplicate patient pair.
type DuplicateDetection struct {
	ID                string    `db:"id" json:"id"`
	StudentID         string    `db:"student_id" json:"studentId"`
	MatchedStudentID  string    `db:"matched_student_id" json:"matchedStudentId"`
	SimilarityScore   int       `db:"similarity_score" json:"similarityScore"`
	MatchingFields    []string  `db:"-" json:"matchingFields"`
	MatchingFieldsRaw []byte    `db:"matching_fields" json:"-"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}

// PatientIdentity is the subset of a patient record used for matching.
type PatientIdentity struct {
	ID          string    `db:"id"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	DateOfBirth time.Time `db:"date_of_birth"`
	NationalID  *string   `db:"national_id"`
}
