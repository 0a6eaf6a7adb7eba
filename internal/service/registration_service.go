package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	"github.com/noah-isme/clinic-records-api/pkg/database"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

const (
	generatedPasswordLength = 12
	passwordAlphabet        = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

var usernameSanitizer = regexp.MustCompile(`[^a-z0-9._-]+`)

type accountStore interface {
	Create(ctx context.Context, user *models.User) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

type patientStore interface {
	Create(ctx context.Context, student *models.Student) error
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type duplicateChecker interface {
	Detect(ctx context.Context, subject models.PatientIdentity) ([]models.DuplicateDetection, error)
}

// RegistrationService creates student accounts together with their patient record.
type RegistrationService struct {
	users      accountStore
	students   patientStore
	tx         transactor
	duplicates duplicateChecker
	audit      auditLogger
	validator  *validator.Validate
	metrics    detectorMetrics
	logger     *zap.Logger
	hashCost   int
}

// RegistrationServiceOption configures the service.
type RegistrationServiceOption func(*RegistrationService)

// WithRegistrationMetrics counts swallowed detector failures.
func WithRegistrationMetrics(metrics detectorMetrics) RegistrationServiceOption {
	return func(s *RegistrationService) {
		s.metrics = metrics
	}
}

// WithPasswordHashCost overrides the bcrypt cost.
func WithPasswordHashCost(cost int) RegistrationServiceOption {
	return func(s *RegistrationService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.hashCost = cost
		}
	}
}

// NewRegistrationService constructs the service.
func NewRegistrationService(users accountStore, students patientStore, tx transactor, duplicates duplicateChecker, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...RegistrationServiceOption) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &RegistrationService{
		users:      users,
		students:   students,
		tx:         tx,
		duplicates: duplicates,
		audit:      audit,
		validator:  validate,
		logger:     logger,
		hashCost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Register is the privileged direct registration path.
func (s *RegistrationService) Register(ctx context.Context, payload dto.RegisterStudentPayload, actorID string) (*dto.RegistrationResult, error) {
	result, student, err := s.CreateAccount(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.DetectDuplicates(ctx, student)
	emitAudit(ctx, s.audit, s.logger, "registration-service", &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionStudentCreate,
		Resource:   "student",
		ResourceID: &student.ID,
		NewValues:  studentAuditValues(student),
	})
	return result, nil
}

// CreateAccount hashes the password and inserts the user and the student record as
// one unit. It joins a transaction already carried by ctx.
func (s *RegistrationService) CreateAccount(ctx context.Context, payload dto.RegisterStudentPayload) (*dto.RegistrationResult, *models.Student, error) {
	payload = normaliseRegistration(payload)
	if err := s.validator.Struct(payload); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	birthDate, err := payload.BirthDate()
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "dateOfBirth must be YYYY-MM-DD")
	}

	username := payload.Username
	if username == "" {
		username = deriveUsername(payload.StudentNumber)
	}
	if username == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "username could not be derived from studentNumber")
	}
	password := payload.Password
	if password == "" {
		if password, err = generatePassword(generatedPasswordLength); err != nil {
			return nil, nil, appErrors.Internal(err, "failed to generate password")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		Email:        optionalString(payload.Email),
		PasswordHash: string(hash),
		FullName:     joinName(payload.FirstName, payload.MiddleName, payload.LastName),
		Role:         models.RoleStudent,
		Active:       true,
	}
	student := &models.Student{
		StudentNumber:   payload.StudentNumber,
		FirstName:       payload.FirstName,
		MiddleName:      optionalString(payload.MiddleName),
		LastName:        payload.LastName,
		DateOfBirth:     birthDate,
		Gender:          payload.Gender,
		NationalID:      optionalString(payload.NationalID),
		GradeLevel:      optionalString(payload.GradeLevel),
		Section:         optionalString(payload.Section),
		ContactNumber:   optionalString(payload.ContactNumber),
		GuardianName:    optionalString(payload.GuardianName),
		GuardianContact: optionalString(payload.GuardianContact),
		Address:         optionalString(payload.Address),
		BloodType:       optionalString(payload.BloodType),
		Allergies:       optionalString(payload.Allergies),
	}

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		taken, err := s.users.ExistsByUsername(txCtx, username)
		if err != nil {
			return appErrors.Internal(err, "failed to check username")
		}
		if taken {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("username %q already exists", username))
		}
		if err := s.users.Create(txCtx, user); err != nil {
			return translateRegistrationError(err, "failed to create user account")
		}
		student.UserID = user.ID
		if err := s.students.Create(txCtx, student); err != nil {
			return translateRegistrationError(err, "failed to create student record")
		}
		return nil
	})
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}

	return &dto.RegistrationResult{
		UserID:        user.ID,
		StudentID:     student.ID,
		StudentNumber: student.StudentNumber,
		FullName:      user.FullName,
		Username:      username,
		Password:      password,
	}, student, nil
}

// DetectDuplicates runs the duplicate detector for a committed student. Failures are
// logged and swallowed.
func (s *RegistrationService) DetectDuplicates(ctx context.Context, student *models.Student) {
	if s.duplicates == nil || student == nil {
		return
	}
	_, err := s.duplicates.Detect(ctx, models.PatientIdentity{
		ID:          student.ID,
		FirstName:   student.FirstName,
		LastName:    student.LastName,
		DateOfBirth: student.DateOfBirth,
		NationalID:  student.NationalID,
	})
	swallowDetector(s.logger, s.metrics, detectorDuplicate, err, zap.String("student_id", student.ID))
}

func translateRegistrationError(err error, message string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status,
			"username, student number or national id already registered")
	}
	return appErrors.Internal(err, message)
}

func normaliseRegistration(p dto.RegisterStudentPayload) dto.RegisterStudentPayload {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.MiddleName = strings.TrimSpace(p.MiddleName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.DateOfBirth = strings.TrimSpace(p.DateOfBirth)
	p.Gender = strings.ToUpper(strings.TrimSpace(p.Gender))
	p.StudentNumber = strings.TrimSpace(p.StudentNumber)
	p.NationalID = strings.TrimSpace(p.NationalID)
	p.Email = strings.TrimSpace(p.Email)
	p.Username = strings.ToLower(strings.TrimSpace(p.Username))
	return p
}

func deriveUsername(studentNumber string) string {
	return strings.Trim(usernameSanitizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(studentNumber)), ""), ".-_")
}

func joinName(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func generatePassword(length int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func studentAuditValues(student *models.Student) []byte {
	raw, err := json.Marshal(map[string]string{
		"studentNumber": student.StudentNumber,
		"fullName":      student.FullName(),
		"userId":        student.UserID,
	})
	if err != nil {
		return nil
	}
	return raw
}
