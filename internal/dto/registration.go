package dto

// RegistrationResult is produced once per successful registration. Password is
// the only plaintext copy and is delivered once to whoever asked for the account.
type RegistrationResult struct {
	UserID        string `json:"userId"`
	StudentID     string `json:"studentId"`
	StudentNumber string `json:"studentNumber"`
	FullName      string `json:"fullName"`
	Username      string `json:"username"`
	Password      string `json:"password,omitempty"`
}
