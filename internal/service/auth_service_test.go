package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
)

func TestAuthServiceLoginWithDerivedHash(t *testing.T) {
	svc, err := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "s3cret", AccessTokenExpiry: time.Minute, Issuer: "cursos", Password: "admin123"})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.AdminLoginRequest{Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, int64(60), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "cursos", claims.Issuer)

	_, err = svc.Login(context.Background(), models.AdminLoginRequest{Password: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.AdminLoginRequest{})
	assert.Equal(t, "password", appErrors.FromError(err).Field)
}

func TestAuthServiceLoginWithConfiguredHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("from-hash"), bcrypt.MinCost)
	require.NoError(t, err)
	svc, err := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "s", PasswordHash: string(hash), Password: "ignored"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.AdminLoginRequest{Password: "from-hash"})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), models.AdminLoginRequest{Password: "ignored"})
	assert.Error(t, err)
}

func TestAuthServiceLoginDisabledWithoutPassword(t *testing.T) {
	svc, err := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "s"})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), models.AdminLoginRequest{Password: "anything"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc, err := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "s3cret", AccessTokenExpiry: time.Minute, Password: "pw"})
	require.NoError(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	other, err := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "different", Password: "pw"})
	require.NoError(t, err)
	resp, err := other.Login(context.Background(), models.AdminLoginRequest{Password: "pw"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	resp, err = svc.Login(context.Background(), models.AdminLoginRequest{Password: "pw"})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	participant := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		Role:             "PARTICIPANT",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := participant.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ValidateToken(signed)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
