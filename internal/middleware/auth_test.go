package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routelynk/internal/logger"
	"routelynk/internal/middleware"
	"routelynk/internal/models"
	"routelynk/internal/storage"
)

// stubVerifier accepts exactly one token and maps it to an email.
type stubVerifier struct {
	token string
	email string
}

func (v *stubVerifier) Verify(token string) (string, error) {
	if token == v.token {
		return v.email, nil
	}
	return "", errors.New("invalid access token")
}

func seedUser(t *testing.T, store *storage.InMemoryStore, email string, role models.Role) {
	t.Helper()
	_, err := store.UpsertUser(&models.User{
		Email:     email,
		Name:      "Test",
		Role:      role,
		Status:    models.AccountActive,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, store.SetUserRole(email, role))
}

func authRouter(store *storage.InMemoryStore, verifier *stubVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger()

	router := gin.New()
	auth := middleware.RequireAuth(verifier, log)

	router.GET("/mine", auth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": c.GetString(middleware.ContextEmailKey)})
	})
	router.GET("/admin", auth, middleware.RequireRole(store, log, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/vendor", auth, middleware.RequireRole(store, log, models.RoleVendor, models.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": c.GetString(middleware.ContextRoleKey)})
	})
	router.GET("/profile/:email", auth, middleware.RequireSelfOrRole(store, log, "email", models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doGet(router *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	store := storage.NewInMemoryStore()
	verifier := &stubVerifier{token: "good-token", email: "user@example.com"}
	router := authRouter(store, verifier)

	t.Run("missing header", func(t *testing.T) {
		w := doGet(router, "/mine", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"message":"Unauthorized access"}`, w.Body.String())
	})

	t.Run("malformed header", func(t *testing.T) {
		w := doGet(router, "/mine", "good-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"message":"Unauthorized access"}`, w.Body.String())
	})

	t.Run("rejected token", func(t *testing.T) {
		w := doGet(router, "/mine", "Bearer forged")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"message":"Unauthorized access"}`, w.Body.String())
	})

	t.Run("valid token", func(t *testing.T) {
		w := doGet(router, "/mine", "Bearer good-token")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"email":"user@example.com"}`, w.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	store := storage.NewInMemoryStore()
	verifier := &stubVerifier{token: "good-token", email: "user@example.com"}
	router := authRouter(store, verifier)

	t.Run("plain user denied admin route", func(t *testing.T) {
		seedUser(t, store, "user@example.com", models.RoleUser)
		w := doGet(router, "/admin", "Bearer good-token")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"message":"forbidden access"}`, w.Body.String())
	})

	t.Run("unknown account denied", func(t *testing.T) {
		empty := storage.NewInMemoryStore()
		w := doGet(authRouter(empty, verifier), "/admin", "Bearer good-token")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("vendor passes vendor route", func(t *testing.T) {
		seedUser(t, store, "user@example.com", models.RoleVendor)
		w := doGet(router, "/vendor", "Bearer good-token")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"role":"vendor"}`, w.Body.String())
	})

	t.Run("admin passes admin route", func(t *testing.T) {
		seedUser(t, store, "user@example.com", models.RoleAdmin)
		w := doGet(router, "/admin", "Bearer good-token")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("fraud never passes any role check", func(t *testing.T) {
		seedUser(t, store, "user@example.com", models.RoleFraud)
		w := doGet(router, "/vendor", "Bearer good-token")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"message":"forbidden access"}`, w.Body.String())
	})
}

func TestRequireSelfOrRole(t *testing.T) {
	store := storage.NewInMemoryStore()
	verifier := &stubVerifier{token: "good-token", email: "user@example.com"}
	router := authRouter(store, verifier)

	seedUser(t, store, "user@example.com", models.RoleUser)

	t.Run("own resource allowed", func(t *testing.T) {
		w := doGet(router, "/profile/user@example.com", "Bearer good-token")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("someone else's resource denied for plain user", func(t *testing.T) {
		w := doGet(router, "/profile/other@example.com", "Bearer good-token")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin reaches anyone's resource", func(t *testing.T) {
		seedUser(t, store, "user@example.com", models.RoleAdmin)
		defer seedUser(t, store, "user@example.com", models.RoleUser)

		w := doGet(router, "/profile/other@example.com", "Bearer good-token")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
