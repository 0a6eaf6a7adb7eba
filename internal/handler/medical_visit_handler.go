package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
	"github.com/noah-isme/clinic-records-api/pkg/response"
)

type medicalVisitService interface {
	Record(ctx context.Context, req dto.RecordVisitRequest, actorID string) (*models.MedicalVisit, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.MedicalVisit, error)
}

// MedicalVisitHandler records clinic visits.
type MedicalVisitHandler struct {
	service medicalVisitService
}

// NewMedicalVisitHandler constructs the handler.
func NewMedicalVisitHandler(service medicalVisitService) *MedicalVisitHandler {
	return &MedicalVisitHandler{service: service}
}

// Record godoc
// @Summary Record a clinic visit
// @Description Tagged visits run the outbreak and trend detectors after the visit is stored.
// @Tags MedicalVisits
// @Accept json
// @Produce json
// @Param payload body dto.RecordVisitRequest true "Visit"
// @Success 201 {object} response.Envelope
// @Router /medical-visits [post]
func (h *MedicalVisitHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RecordVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid medical visit payload"))
		return
	}
	visit, err := h.service.Record(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, visit)
}

// ListByStudent godoc
// @Summary List a student's visits
// @Tags MedicalVisits
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/medical-visits [get]
func (h *MedicalVisitHandler) ListByStudent(c *gin.Context) {
	visits, err := h.service.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visits, nil)
}
