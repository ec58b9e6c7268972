package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Enabled: true,
		Secret:  "test-secret-key-at-least-32-chars",
		Issuer:  "test-issuer",
	})
}

func TestValidateAccessToken_TenantOperator(t *testing.T) {
	svc := newTestJWTService()
	tenantID := uuid.New()

	token, err := svc.IssueToken(&tenantID, "operator-1", 15*time.Minute, "operator")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, "operator-1", claims.Subject)
	assert.False(t, claims.IsAdmin())

	parsed, err := claims.GetTenantUUID()
	require.NoError(t, err)
	assert.Equal(t, tenantID, parsed)
}

func TestValidateAccessToken_AdminWithoutTenant(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.IssueToken(nil, "root", time.Minute, RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
	_, err = claims.GetTenantUUID()
	assert.ErrorIs(t, err, ErrMissingTenantID)
}

func TestValidateAccessToken_OperatorWithoutTenant(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.IssueToken(nil, "operator-1", time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrMissingTenantID)
}

func TestValidateAccessToken_ExpiredToken(t *testing.T) {
	svc := newTestJWTService()
	tenantID := uuid.New()

	token, err := svc.IssueToken(&tenantID, "operator-1", -time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_InvalidToken(t *testing.T) {
	svc := newTestJWTService()

	_, err := svc.ValidateAccessToken("invalid-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_DifferentSecret(t *testing.T) {
	tenantID := uuid.New()
	other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-ch", Issuer: "test-issuer"})
	token, err := other.IssueToken(&tenantID, "operator-1", time.Minute)
	require.NoError(t, err)

	_, err = newTestJWTService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	tenantID := uuid.New()
	other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "someone-else"})
	token, err := other.IssueToken(&tenantID, "operator-1", time.Minute)
	require.NoError(t, err)

	_, err = newTestJWTService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Roles: []string{RoleAdmin},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestJWTService().ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_MalformedTenantID(t *testing.T) {
	svc := newTestJWTService()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		TenantID: "not-a-uuid",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestClaims_GetExpiresAtTime(t *testing.T) {
	assert.True(t, (&Claims{}).GetExpiresAtTime().IsZero())

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}}
	assert.True(t, exp.Equal(c.GetExpiresAtTime()))
}
