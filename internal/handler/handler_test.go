package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-records-api/internal/middleware"
	"github.com/noah-isme/clinic-records-api/internal/models"
)

var (
	nurseClaims = &models.JWTClaims{UserID: "nurse-1", Role: models.RoleNurse}
	adminClaims = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
)

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *struct{ Code string } `json:"error"`
	Pagination *struct{ Count int }   `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

// newContext builds a test context carrying claims, route params and an optional JSON body.
func newContext(t *testing.T, method, target, body string, claims *models.JWTClaims, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = params
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func idParam(id string) gin.Param {
	return gin.Param{Key: "id", Value: id}
}

// flushed writes any pending status the way gin's engine does after the handler returns.
func flushed(c *gin.Context, w *httptest.ResponseRecorder) int {
	c.Writer.WriteHeaderNow()
	return w.Code
}
