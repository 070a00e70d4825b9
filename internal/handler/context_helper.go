package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registry-api/internal/middleware"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

func requesterName(c *gin.Context) string {
	claims, ok := middleware.Claims(c)
	if !ok {
		return ""
	}
	return claims.Subject
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

var clockQueryLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

// clockQuery parses an optional time-of-day query value into 24-hour "15:04".
func clockQuery(c *gin.Context, name string) (string, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return "", nil
	}
	upper := strings.ToUpper(raw)
	for _, layout := range clockQueryLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
}
