package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

type alertServiceMock struct {
	viewer      string
	query       dto.AlertQuery
	resolveNote string
	markErr     error
	deleted     string
}

func (m *alertServiceMock) List(ctx context.Context, viewerID string, query dto.AlertQuery) ([]models.Alert, error) {
	m.viewer, m.query = viewerID, query
	return []models.Alert{{ID: "a-1"}}, nil
}

func (m *alertServiceMock) UnreadCount(ctx context.Context, viewerID string) (int, error) {
	return 4, nil
}

func (m *alertServiceMock) MarkRead(ctx context.Context, id, viewerID string) error {
	return m.markErr
}

func (m *alertServiceMock) MarkAllRead(ctx context.Context, viewerID string) (int64, error) {
	return 2, nil
}

func (m *alertServiceMock) Resolve(ctx context.Context, id, resolverID string, notes string) error {
	m.resolveNote = notes
	return nil
}

func (m *alertServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return nil
}

func TestAlertHandlerList(t *testing.T) {
	svc := &alertServiceMock{}
	h := NewAlertHandler(svc)

	c, w := newContext(t, http.MethodGet, "/alerts?unread=true&type=outbreak_suspected&limit=20", "", nurseClaims)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nurse-1", svc.viewer)
	assert.True(t, svc.query.UnreadOnly)
	assert.Equal(t, models.AlertOutbreakSuspected, svc.query.Type)
	assert.Equal(t, 20, svc.query.Limit)

	c, w = newContext(t, http.MethodGet, "/alerts", "", nil)
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAlertHandlerCounters(t *testing.T) {
	h := NewAlertHandler(&alertServiceMock{})

	c, w := newContext(t, http.MethodGet, "/alerts/unread-count", "", nurseClaims)
	h.UnreadCount(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread":4}`, string(decode(t, w).Data))

	c, w = newContext(t, http.MethodPost, "/alerts/read-all", "", nurseClaims)
	h.MarkAllRead(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":2}`, string(decode(t, w).Data))
}

func TestAlertHandlerMutations(t *testing.T) {
	svc := &alertServiceMock{markErr: appErrors.Clone(appErrors.ErrNotFound, "alert not found")}
	h := NewAlertHandler(svc)

	c, w := newContext(t, http.MethodPost, "/alerts/a-1/read", "", nurseClaims, idParam("a-1"))
	h.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newContext(t, http.MethodPost, "/alerts/a-1/resolve", `{"notes":"handled"}`, nurseClaims, idParam("a-1"))
	h.Resolve(c)
	assert.Equal(t, http.StatusNoContent, flushed(c, w))
	assert.Equal(t, "handled", svc.resolveNote)

	c, w = newContext(t, http.MethodPost, "/alerts/a-1/resolve", "", nurseClaims, idParam("a-1"))
	h.Resolve(c)
	assert.Equal(t, http.StatusNoContent, flushed(c, w))

	c, w = newContext(t, http.MethodDelete, "/alerts/a-1", "", adminClaims, idParam("a-1"))
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, flushed(c, w))
	assert.Equal(t, "a-1", svc.deleted)
}
