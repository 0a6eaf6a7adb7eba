package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

type tokenStub struct {
	claims *models.JWTClaims
}

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, method+" "+path)
	o.statuses = append(o.statuses, status)
}

type auditWriterStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditWriterStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTAndRoles(t *testing.T) {
	claims := &models.JWTClaims{UserID: "nurse-1", Role: models.RoleNurse}
	router := gin.New()
	router.Use(JWT(tokenStub{claims: claims}))
	router.GET("/staff", RequireRoles(StaffRoles...), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		c.String(http.StatusOK, user.UserID)
	})
	router.GET("/review", RequireRoles(ReviewerRoles...), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, http.MethodGet, "/staff", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodGet, "/staff", "Token good")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodGet, "/staff", "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodGet, "/staff", "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nurse-1", rec.Body.String())

	rec = serve(router, http.MethodGet, "/review", "bearer good")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	router := gin.New()
	router.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/", "").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/alerts/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	serve(router, http.MethodGet, "/alerts/123", "")
	serve(router, http.MethodGet, "/nowhere", "")
	assert.Equal(t, []string{"GET /alerts/:id", "GET unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusAccepted, http.StatusNotFound}, observer.statuses)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	writer := &auditWriterStub{}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})
	router.DELETE("/alerts/:id", Audit(writer, nil, "ALERT_DELETE", "alert"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})

	serve(router, http.MethodDelete, "/alerts/a-1", "")
	serve(router, http.MethodDelete, "/alerts/missing", "")
	require.Len(t, writer.logs, 1)
	assert.Equal(t, "ALERT_DELETE", writer.logs[0].Action)
	assert.Equal(t, "a-1", *writer.logs[0].ResourceID)
	assert.Equal(t, "admin-1", *writer.logs[0].UserID)

	writer.err = errors.New("db down")
	rec := serve(router, http.MethodDelete, "/alerts/a-2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestFeatureGate(t *testing.T) {
	router := gin.New()
	router.GET("/on", FeatureGate("workflow", true), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/off", FeatureGate("workflow", false), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, http.MethodGet, "/on", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "workflow", rec.Header().Get(FeatureHeader))

	rec = serve(router, http.MethodGet, "/off", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestResponseMeta(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))

	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		SetMeta(c, "unread", 3)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	serve(router, http.MethodGet, "/", "")
	require.NotNil(t, meta)
	assert.Equal(t, 3, meta["unread"])
	assert.Contains(t, meta, processingTimeMS)
}
