package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-records-api/internal/models"
	"github.com/noah-isme/clinic-records-api/pkg/response"
)

type duplicateService interface {
	ListForStudent(ctx context.Context, studentID string) ([]models.DuplicateDetection, error)
}

// DuplicateHandler lists probable duplicate records for review.
type DuplicateHandler struct {
	service duplicateService
}

// NewDuplicateHandler constructs the handler.
func NewDuplicateHandler(service duplicateService) *DuplicateHandler {
	return &DuplicateHandler{service: service}
}

// ListByStudent godoc
// @Summary List duplicate detections for a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/duplicates [get]
func (h *DuplicateHandler) ListByStudent(c *gin.Context) {
	detections, err := h.service.ListForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detections, nil)
}
