package models

import "time"

// Student is the patient record of a registered learner.
type Student struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"userId"`
	StudentNumber   string    `db:"student_number" json:"studentNumber"`
	FirstName       string    `db:"first_name" json:"firstName"`
	MiddleName      *string   `db:"middle_name" json:"middleName,omitempty"`
	LastName        string    `db:"last_name" json:"lastName"`
	DateOfBirth     time.Time `db:"date_of_birth" json:"dateOfBirth"`
	Gender          string    `db:"gender" json:"gender"`
	NationalID      *string   `db:"national_id" json:"nationalId,omitempty"`
	GradeLevel      *string   `db:"grade_level" json:"gradeLevel,omitempty"`
	Section         *string   `db:"section" json:"section,omitempty"`
	ContactNumber   *string   `db:"contact_number" json:"contactNumber,omitempty"`
	GuardianName    *string   `db:"guardian_name" json:"guardianName,omitempty"`
	GuardianContact *string   `db:"guardian_contact" json:"guardianContact,omitempty"`
	Address         *string   `db:"address" json:"address,omitempty"`
	BloodType       *string   `db:"blood_type" json:"bloodType,omitempty"`
	Allergies       *string   `db:"allergies" json:"allergies,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
