package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/relink-dev/relink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

func signTestToken(t *testing.T, secret, tokenType, userID string, expiry time.Duration) string {
	t.Helper()

	claims := &models.TokenClaims{
		Type:   tokenType,
		UserID: userID,
		Email:  "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenManager_ValidateToken(t *testing.T) {
	tm := NewTokenManager(testSecret)

	token := signTestToken(t, testSecret, "access", "user-123", time.Hour)

	claims, err := tm.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "access", claims.Type)
}

func TestTokenManager_ValidateToken_WrongSecret(t *testing.T) {
	tm := NewTokenManager(testSecret)

	token := signTestToken(t, "a-completely-different-secret!!!", "access", "user-123", time.Hour)

	_, err := tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_ValidateToken_Expired(t *testing.T) {
	tm := NewTokenManager(testSecret)

	token := signTestToken(t, testSecret, "access", "user-123", -time.Hour)

	_, err := tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tm := NewTokenManager(testSecret)
	handler := AuthMiddleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r)
		require.NotNil(t, claims)
		assert.Equal(t, "user-123", claims.UserID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, testSecret, "access", "user-123", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	tm := NewTokenManager(testSecret)
	handler := AuthMiddleware(tm)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	tm := NewTokenManager(testSecret)
	handler := AuthMiddleware(tm)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RejectsRefreshToken(t *testing.T) {
	tm := NewTokenManager(testSecret)
	handler := AuthMiddleware(tm)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, testSecret, "refresh", "user-123", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubRoleFetcher struct {
	user *models.User
	err  error
}

func (s *stubRoleFetcher) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.user, s.err
}

func TestRequireRole_AdminAllowed(t *testing.T) {
	tm := NewTokenManager(testSecret)
	users := &stubRoleFetcher{user: &models.User{ID: "user-123", Role: "admin"}}

	handler := AuthMiddleware(tm)(RequireRole(users, "admin")(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, testSecret, "access", "user-123", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_NonAdminForbidden(t *testing.T) {
	tm := NewTokenManager(testSecret)
	users := &stubRoleFetcher{user: &models.User{ID: "user-123", Role: "user"}}

	handler := AuthMiddleware(tm)(RequireRole(users, "admin")(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, testSecret, "access", "user-123", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_UnknownUserUnauthorized(t *testing.T) {
	tm := NewTokenManager(testSecret)
	users := &stubRoleFetcher{err: models.ErrNotFound}

	handler := AuthMiddleware(tm)(RequireRole(users, "admin")(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, testSecret, "access", "user-123", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
