package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/middleware"
	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
	"github.com/noah-isme/clinic-records-api/pkg/response"
)

type pendingActionService interface {
	Submit(ctx context.Context, req dto.SubmitPendingActionRequest, requester *models.JWTClaims) (*models.PendingAction, error)
	List(ctx context.Context, query dto.PendingActionQuery, actor *models.JWTClaims) ([]models.PendingAction, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.PendingAction, error)
	Approve(ctx context.Context, id, reviewerID string, req dto.ApprovePendingActionRequest) (*dto.ExecutionResult, error)
	Reject(ctx context.Context, id, reviewerID string, req dto.RejectPendingActionRequest) (*models.PendingAction, error)
	Cancel(ctx context.Context, id, requesterID string) error
}

// PendingActionHandler exposes the approval workflow.
type PendingActionHandler struct {
	service pendingActionService
}

// NewPendingActionHandler constructs the handler.
func NewPendingActionHandler(service pendingActionService) *PendingActionHandler {
	return &PendingActionHandler{service: service}
}

// Submit godoc
// @Summary Submit an action for approval
// @Tags PendingActions
// @Accept json
// @Produce json
// @Param payload body dto.SubmitPendingActionRequest true "Pending action"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /pending-actions [post]
func (h *PendingActionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitPendingActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid pending action payload"))
		return
	}
	req.ActionType = models.PendingActionType(strings.ToUpper(strings.TrimSpace(string(req.ActionType))))
	req.Priority = models.Priority(strings.ToUpper(strings.TrimSpace(string(req.Priority))))
	action, err := h.service.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, action)
}

// List godoc
// @Summary List pending actions
// @Tags PendingActions
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param type query string false "Action type"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /pending-actions [get]
func (h *PendingActionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.PendingActionQuery{
		ActionType: models.PendingActionType(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
		Limit:      limit,
		Offset:     offset,
	}
	for _, status := range splitUpper(c.Query("status")) {
		query.Status = append(query.Status, models.PendingActionStatus(status))
	}
	actions, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, actions, &response.Pagination{Limit: limit, Offset: offset, Count: len(actions)})
}

// Get godoc
// @Summary Get a pending action
// @Tags PendingActions
// @Produce json
// @Param id path string true "Pending action ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pending-actions/{id} [get]
func (h *PendingActionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	action, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, action, nil)
}

// Approve godoc
// @Summary Approve and execute a pending action
// @Description A failed side effect still approves the action; the response carries a warning.
// @Tags PendingActions
// @Accept json
// @Produce json
// @Param id path string true "Pending action ID"
// @Param payload body dto.ApprovePendingActionRequest false "Reviewer notes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pending-actions/{id}/approve [post]
func (h *PendingActionHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApprovePendingActionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
			return
		}
	}
	result, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Executed {
		middleware.SetMeta(c, "warning", result.Warning)
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Reject godoc
// @Summary Reject a pending action
// @Tags PendingActions
// @Accept json
// @Produce json
// @Param id path string true "Pending action ID"
// @Param payload body dto.RejectPendingActionRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pending-actions/{id}/reject [post]
func (h *PendingActionHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectPendingActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	action, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, action, nil)
}

// Cancel godoc
// @Summary Cancel your own pending action
// @Tags PendingActions
// @Param id path string true "Pending action ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /pending-actions/{id} [delete]
func (h *PendingActionHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
