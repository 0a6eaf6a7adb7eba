package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

type thresholdServiceMock struct {
	upsert   dto.UpsertThresholdRequest
	activeID string
	active   bool
}

func (m *thresholdServiceMock) List(ctx context.Context) ([]models.DiseaseThreshold, error) {
	return []models.DiseaseThreshold{{ID: "t-1", DiseaseName: "Flu"}}, nil
}

func (m *thresholdServiceMock) Upsert(ctx context.Context, req dto.UpsertThresholdRequest, actorID string) (*models.DiseaseThreshold, error) {
	m.upsert = req
	return &models.DiseaseThreshold{ID: "t-1", DiseaseName: req.DiseaseName, CasesPerWeek: req.CasesPerWeek}, nil
}

func (m *thresholdServiceMock) SetActive(ctx context.Context, id string, active bool, actorID string) error {
	m.activeID, m.active = id, active
	return nil
}

func (m *thresholdServiceMock) Delete(ctx context.Context, id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, "disease threshold not found")
}

type registrationServiceMock struct {
	payload dto.RegisterStudentPayload
	err     error
}

func (m *registrationServiceMock) Register(ctx context.Context, payload dto.RegisterStudentPayload, actorID string) (*dto.RegistrationResult, error) {
	m.payload = payload
	if m.err != nil {
		return nil, m.err
	}
	return &dto.RegistrationResult{UserID: "u-1", Username: "2024-0001", Password: "generated"}, nil
}

type userAdminServiceMock struct {
	calls []string
	err   error
}

func (m *userAdminServiceMock) Deactivate(ctx context.Context, targetID, actorID string) error {
	m.calls = append(m.calls, "deactivate:"+targetID+":"+actorID)
	return m.err
}

func (m *userAdminServiceMock) Delete(ctx context.Context, targetID, actorID string) error {
	m.calls = append(m.calls, "delete:"+targetID+":"+actorID)
	return m.err
}

type visitServiceMock struct {
	req dto.RecordVisitRequest
}

func (m *visitServiceMock) Record(ctx context.Context, req dto.RecordVisitRequest, actorID string) (*models.MedicalVisit, error) {
	m.req = req
	return &models.MedicalVisit{ID: "v-1", StudentID: req.StudentID, RecordedByID: actorID}, nil
}

func (m *visitServiceMock) ListByStudent(ctx context.Context, studentID string) ([]models.MedicalVisit, error) {
	if studentID == "broken" {
		return nil, errors.New("db down")
	}
	return []models.MedicalVisit{{ID: "v-1", StudentID: studentID}}, nil
}

func TestDiseaseThresholdHandler(t *testing.T) {
	svc := &thresholdServiceMock{}
	h := NewDiseaseThresholdHandler(svc)

	c, w := newContext(t, http.MethodGet, "/disease-thresholds", "", adminClaims)
	h.List(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(t, http.MethodPut, "/disease-thresholds", `{"diseaseName":"Flu","casesPerWeek":4}`, adminClaims)
	h.Upsert(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, svc.upsert.CasesPerWeek)

	c, w = newContext(t, http.MethodPatch, "/disease-thresholds/t-1/active", `{}`, adminClaims, idParam("t-1"))
	h.SetActive(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext(t, http.MethodPatch, "/disease-thresholds/t-1/active", `{"isActive":false}`, adminClaims, idParam("t-1"))
	h.SetActive(c)
	assert.Equal(t, http.StatusNoContent, flushed(c, w))
	assert.Equal(t, "t-1", svc.activeID)
	assert.False(t, svc.active)

	c, w = newContext(t, http.MethodDelete, "/disease-thresholds/t-1", "", adminClaims, idParam("t-1"))
	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegistrationHandler(t *testing.T) {
	svc := &registrationServiceMock{}
	h := NewRegistrationHandler(svc)

	c, w := newContext(t, http.MethodPost, "/students/register",
		`{"firstName":"Ana","lastName":"Cruz","dateOfBirth":"2010-04-02","gender":"FEMALE","studentNumber":"2024-0001"}`, adminClaims)
	h.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Ana", svc.payload.FirstName)
	assert.Contains(t, string(decode(t, w).Data), `"password":"generated"`)

	svc.err = appErrors.Clone(appErrors.ErrConflict, "username already exists")
	c, w = newContext(t, http.MethodPost, "/students/register", `{"firstName":"Ana"}`, adminClaims)
	h.Register(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUserHandler(t *testing.T) {
	svc := &userAdminServiceMock{}
	h := NewUserHandler(svc)

	c, w := newContext(t, http.MethodPost, "/users/u-9/deactivate", "", adminClaims, idParam("u-9"))
	h.Deactivate(c)
	assert.Equal(t, http.StatusNoContent, flushed(c, w))

	c, w = newContext(t, http.MethodDelete, "/users/u-9", "", adminClaims, idParam("u-9"))
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, flushed(c, w))
	assert.Equal(t, []string{"deactivate:u-9:admin-1", "delete:u-9:admin-1"}, svc.calls)

	svc.err = appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	c, w = newContext(t, http.MethodDelete, "/users/admin-1", "", adminClaims, idParam("admin-1"))
	h.Delete(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMedicalVisitHandler(t *testing.T) {
	svc := &visitServiceMock{}
	h := NewMedicalVisitHandler(svc)

	c, w := newContext(t, http.MethodPost, "/medical-visits", `{"studentId":"s-1","complaint":"fever","diseaseCategory":"Flu"}`, nurseClaims)
	h.Record(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Flu", svc.req.DiseaseCategory)

	c, w = newContext(t, http.MethodGet, "/students/s-1/medical-visits", "", nurseClaims, idParam("s-1"))
	h.ListByStudent(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(t, http.MethodGet, "/students/broken/medical-visits", "", nurseClaims, idParam("broken"))
	h.ListByStudent(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	c, w := newContext(t, http.MethodGet, "/ready", "", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, map[string]ReadinessCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})
	c, w = newContext(t, http.MethodGet, "/ready", "", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	c, w = newContext(t, http.MethodGet, "/metrics", "", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, flushed(c, w))
}

type duplicateServiceMock struct{}

func (duplicateServiceMock) ListForStudent(ctx context.Context, studentID string) ([]models.DuplicateDetection, error) {
	return []models.DuplicateDetection{{ID: "d-1", StudentID: studentID, MatchedStudentID: "s-2", SimilarityScore: 75}}, nil
}

func TestDuplicateHandlerListByStudent(t *testing.T) {
	h := NewDuplicateHandler(duplicateServiceMock{})
	c, w := newContext(t, http.MethodGet, "/students/s-1/duplicates", "", adminClaims, idParam("s-1"))
	h.ListByStudent(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"s-2"`)
}
