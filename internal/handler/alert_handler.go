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

type alertService interface {
	List(ctx context.Context, viewerID string, query dto.AlertQuery) ([]models.Alert, error)
	UnreadCount(ctx context.Context, viewerID string) (int, error)
	MarkRead(ctx context.Context, id, viewerID string) error
	MarkAllRead(ctx context.Context, viewerID string) (int64, error)
	Resolve(ctx context.Context, id, resolverID string, notes string) error
	Delete(ctx context.Context, id string) error
}

// AlertHandler exposes the alert inbox.
type AlertHandler struct {
	service alertService
}

// NewAlertHandler constructs the handler.
func NewAlertHandler(service alertService) *AlertHandler {
	return &AlertHandler{service: service}
}

// List godoc
// @Summary List alerts visible to the caller
// @Tags Alerts
// @Produce json
// @Param unread query bool false "Only unread alerts"
// @Param type query string false "Alert type"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
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
	query := dto.AlertQuery{
		UnreadOnly: queryBool(c, "unread"),
		Type:       models.AlertType(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
		Limit:      limit,
	}
	alerts, err := h.service.List(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, nil, middleware.ExtractMeta(c))
}

// UnreadCount godoc
// @Summary Count unread alerts
// @Tags Alerts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /alerts/unread-count [get]
func (h *AlertHandler) UnreadCount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"unread": count}, nil)
}

// MarkRead godoc
// @Summary Mark an alert as read
// @Tags Alerts
// @Param id path string true "Alert ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /alerts/{id}/read [post]
func (h *AlertHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark every visible alert as read
// @Tags Alerts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /alerts/read-all [post]
func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.service.MarkAllRead(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": updated}, nil)
}

// Resolve godoc
// @Summary Resolve an alert
// @Tags Alerts
// @Accept json
// @Param id path string true "Alert ID"
// @Param payload body dto.ResolveAlertRequest false "Resolution notes"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ResolveAlertRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resolution payload"))
			return
		}
	}
	if err := h.service.Resolve(c.Request.Context(), c.Param("id"), claims.UserID, req.Notes); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete an alert
// @Tags Alerts
// @Param id path string true "Alert ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /alerts/{id} [delete]
func (h *AlertHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
