package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
	"github.com/noah-isme/clinic-records-api/pkg/response"
)

type registrationService interface {
	Register(ctx context.Context, payload dto.RegisterStudentPayload, actorID string) (*dto.RegistrationResult, error)
}

// RegistrationHandler serves the privileged direct registration path.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(service registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Register godoc
// @Summary Register a student account directly
// @Description The response is the only place the generated password is returned.
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.RegisterStudentPayload true "Registration form"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.RegisterStudentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid registration payload"))
		return
	}
	result, err := h.service.Register(c.Request.Context(), payload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
