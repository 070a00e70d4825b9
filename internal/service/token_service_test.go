package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "course-registry", Expiration: time.Hour})

	token, expires, err := svc.Issue("registrar-office", models.RoleRegistrar)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRegistrar, claims.Role)
	assert.Equal(t, "registrar-office", claims.Subject)
}

func TestTokenServiceRejectsForeignSecretAndIssuer(t *testing.T) {
	ours := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "course-registry"})
	other := NewTokenService(TokenConfig{Secret: "other", Issuer: "course-registry"})
	wrongIssuer := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "elsewhere"})

	token, _, err := other.Issue("x", models.RoleRegistrar)
	require.NoError(t, err)
	_, err = ours.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	token, _, err = wrongIssuer.Issue("x", models.RoleRegistrar)
	require.NoError(t, err)
	_, err = ours.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceExpired(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Expiration: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.Issue("x", models.RoleRegistrar)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestTokenServiceRequiresSubject(t *testing.T) {
	_, _, err := NewTokenService(TokenConfig{Secret: "s"}).Issue("  ", models.RoleRegistrar)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
