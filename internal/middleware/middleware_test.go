package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
)

func newGuardedRouter(tokens *service.TokenService, metrics *service.MetricsService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(metrics))
	r.POST("/enrollments", JWT(tokens), RequireRoles(models.RoleRegistrar), func(c *gin.Context) {
		claims, _ := Claims(c)
		c.String(http.StatusCreated, claims.Subject)
	})
	return r
}

func TestJWTAndRoleGuard(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "s3cret", Issuer: "course-registry", Expiration: time.Hour})
	metrics := service.NewMetricsService()
	router := newGuardedRouter(tokens, metrics)

	registrar, _, err := tokens.Issue("office", models.RoleRegistrar)
	require.NoError(t, err)
	viewer, _, err := tokens.Issue("someone", "viewer")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + viewer, http.StatusForbidden},
		{"registrar", "Bearer " + registrar, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/enrollments", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), `http_requests_total{method="POST",path="/enrollments",status="201"} 1`))
}
