package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/internal/service"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
	"github.com/noah-isme/curso-asistencia-api/pkg/middleware/requestid"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{Role: models.RoleAdmin}
}

func perform(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRequireRoles(t *testing.T) {
	r := gin.New()
	r.GET("/admin", JWT(stubValidator{claims: adminClaims()}), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/other", JWT(stubValidator{claims: &models.JWTClaims{Role: "GUEST"}}), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/admin", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/admin", "Basic good").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/admin", "Bearer bad").Code)
	assert.Equal(t, http.StatusNoContent, perform(r, http.MethodGet, "/admin", "Bearer good").Code)
	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/other", "bearer good").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/x", "").Code)
}

func TestOptionalJWT(t *testing.T) {
	r := gin.New()
	r.GET("/mark", OptionalJWT(stubValidator{claims: adminClaims()}), func(c *gin.Context) {
		if _, ok := Claims(c); ok {
			c.String(http.StatusOK, "admin")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "anonymous", perform(r, http.MethodGet, "/mark", "").Body.String())
	assert.Equal(t, "anonymous", perform(r, http.MethodGet, "/mark", "Bearer bad").Body.String())
	assert.Equal(t, "admin", perform(r, http.MethodGet, "/mark", "Bearer good").Body.String())
}

func TestAuditLogsSuccessfulActions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.PUT("/courses/:id/activate", Audit(zap.New(core), "activate_course"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.DELETE("/attendance/:id", Audit(zap.New(core), "delete_attendance"), func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	perform(r, http.MethodPut, "/courses/C1/activate", "")
	perform(r, http.MethodDelete, "/attendance/a1", "")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "activate_course", fields["action"])
	assert.Equal(t, "C1", fields["param_id"])
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, http.MethodGet, "/health", "")
	perform(r, http.MethodGet, "/participants/12345678-5/missing", "")
	perform(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.Bytes()
	assert.True(t, bytes.Contains(body, []byte(`http_requests_total{method="GET",path="/health",status="200"} 1`)))
	assert.True(t, bytes.Contains(body, []byte(`path="unmatched"`)))
	assert.False(t, bytes.Contains(body, []byte("12345678-5")))
}

func TestResponseMeta(t *testing.T) {
	r := gin.New()
	r.Use(requestid.Middleware(), WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/r", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	perform(r, http.MethodGet, "/r", "")
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotEmpty(t, meta["request_id"])
}
