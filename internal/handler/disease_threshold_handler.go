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

type diseaseThresholdService interface {
	List(ctx context.Context) ([]models.DiseaseThreshold, error)
	Upsert(ctx context.Context, req dto.UpsertThresholdRequest, actorID string) (*models.DiseaseThreshold, error)
	SetActive(ctx context.Context, id string, active bool, actorID string) error
	Delete(ctx context.Context, id string) error
}

// DiseaseThresholdHandler manages outbreak thresholds.
type DiseaseThresholdHandler struct {
	service diseaseThresholdService
}

// NewDiseaseThresholdHandler constructs the handler.
func NewDiseaseThresholdHandler(service diseaseThresholdService) *DiseaseThresholdHandler {
	return &DiseaseThresholdHandler{service: service}
}

// List godoc
// @Summary List disease thresholds
// @Tags DiseaseThresholds
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /disease-thresholds [get]
func (h *DiseaseThresholdHandler) List(c *gin.Context) {
	thresholds, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thresholds, nil)
}

// Upsert godoc
// @Summary Create or update the threshold for a disease
// @Tags DiseaseThresholds
// @Accept json
// @Produce json
// @Param payload body dto.UpsertThresholdRequest true "Threshold"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /disease-thresholds [put]
func (h *DiseaseThresholdHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpsertThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid disease threshold payload"))
		return
	}
	threshold, err := h.service.Upsert(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, threshold, nil)
}

// SetActive godoc
// @Summary Enable or disable a threshold
// @Tags DiseaseThresholds
// @Accept json
// @Param id path string true "Threshold ID"
// @Param payload body dto.SetThresholdActiveRequest true "Active flag"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /disease-thresholds/{id}/active [patch]
func (h *DiseaseThresholdHandler) SetActive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SetThresholdActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "isActive is required"))
		return
	}
	if err := h.service.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a threshold
// @Tags DiseaseThresholds
// @Param id path string true "Threshold ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /disease-thresholds/{id} [delete]
func (h *DiseaseThresholdHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
