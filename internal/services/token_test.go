package services_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routelynk/internal/config"
	"routelynk/internal/logger"
	"routelynk/internal/models"
	"routelynk/internal/services"
	"routelynk/internal/storage"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SigningSecret: "access-secret",
		TokenTTL:      time.Hour,
		IdPSecret:     "idp-secret",
		IdPIssuer:     "routelynk-idp",
	}
}

func signAssertion(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":     "routelynk-idp",
		"aud":     "routelynk",
		"exp":     time.Now().Add(5 * time.Minute).Unix(),
		"email":   "user@example.com",
		"name":    "Test User",
		"picture": "https://example.com/avatar.png",
	}
}

func TestExchangeIssuesTokenAndCreatesUser(t *testing.T) {
	store := storage.NewInMemoryStore()
	svc := services.NewTokenService(store, testAuthConfig(), logger.NewLogger())

	assertion := signAssertion(t, "idp-secret", validClaims())
	accessToken, user, err := svc.Exchange(assertion)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)

	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, "Test User", user.Name)

	// The issued token verifies back to the same email.
	email, err := svc.Verify(accessToken)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)
}

func TestExchangeKeepsPromotedRole(t *testing.T) {
	store := storage.NewInMemoryStore()
	svc := services.NewTokenService(store, testAuthConfig(), logger.NewLogger())

	_, _, err := svc.Exchange(signAssertion(t, "idp-secret", validClaims()))
	require.NoError(t, err)
	require.NoError(t, store.SetUserRole("user@example.com", models.RoleVendor))

	// A later login does not reset the role back to user.
	_, user, err := svc.Exchange(signAssertion(t, "idp-secret", validClaims()))
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, user.Role)
}

func TestExchangeRejectsBadAssertions(t *testing.T) {
	store := storage.NewInMemoryStore()
	svc := services.NewTokenService(store, testAuthConfig(), logger.NewLogger())

	t.Run("wrong secret", func(t *testing.T) {
		_, _, err := svc.Exchange(signAssertion(t, "not-the-idp-secret", validClaims()))
		assert.ErrorIs(t, err, services.ErrInvalidAssertion)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := validClaims()
		claims["iss"] = "somebody-else"
		_, _, err := svc.Exchange(signAssertion(t, "idp-secret", claims))
		assert.ErrorIs(t, err, services.ErrInvalidAssertion)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := validClaims()
		claims["aud"] = "another-service"
		_, _, err := svc.Exchange(signAssertion(t, "idp-secret", claims))
		assert.ErrorIs(t, err, services.ErrInvalidAssertion)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		_, _, err := svc.Exchange(signAssertion(t, "idp-secret", claims))
		assert.ErrorIs(t, err, services.ErrInvalidAssertion)
	})

	t.Run("missing email", func(t *testing.T) {
		claims := validClaims()
		delete(claims, "email")
		_, _, err := svc.Exchange(signAssertion(t, "idp-secret", claims))
		assert.ErrorIs(t, err, services.ErrInvalidAssertion)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := svc.Exchange("not.a.jwt")
		assert.ErrorIs(t, err, services.ErrInvalidAssertion)
	})
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	store := storage.NewInMemoryStore()
	svc := services.NewTokenService(store, testAuthConfig(), logger.NewLogger())

	// Signed with the wrong secret.
	forged := signAssertion(t, "wrong-secret", jwt.MapClaims{
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	_, err := svc.Verify(forged)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// Correct secret but already expired.
	expired := signAssertion(t, "access-secret", jwt.MapClaims{
		"email": "user@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	})
	_, err = svc.Verify(expired)
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	// An assertion must not double as an access token unless the secrets
	// happen to match; here they do not.
	assertion := signAssertion(t, "idp-secret", validClaims())
	_, err = svc.Verify(assertion)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}
