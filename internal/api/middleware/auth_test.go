package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workcrew/workcrew/internal/api/middleware"
	"github.com/workcrew/workcrew/internal/auth"
	"github.com/workcrew/workcrew/internal/user"
)

func newAuthFixture(t *testing.T) (*auth.Service, *auth.JWTService) {
	t.Helper()

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.workcrew.test",
		Audience:   "workcrew-api",
	})
	authService := auth.NewService(auth.ServiceConfig{
		JWTService:  jwtService,
		UserRepo:    user.NewInMemoryRepository(),
		RefreshRepo: auth.NewInMemoryRefreshTokenRepository(),
	})
	return authService, jwtService
}

func accessTokenFor(t *testing.T, jwtService *auth.JWTService, id string, role user.Role) string {
	t.Helper()

	token, _, err := jwtService.GenerateAccessToken(&user.User{ID: id, Role: role})
	require.NoError(t, err)
	return token
}

func TestAuth_ValidToken(t *testing.T) {
	authService, jwtService := newAuthFixture(t)
	token := accessTokenFor(t, jwtService, "usr_middleware_tester00", user.RoleWorker)

	var gotUserID, gotRole string
	handler := middleware.Auth(authService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = middleware.GetUserID(r.Context())
		gotRole = middleware.GetUserRole(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "usr_middleware_tester00", gotUserID)
	assert.Equal(t, string(user.RoleWorker), gotRole)
}

func TestAuth_MissingHeader(t *testing.T) {
	authService, _ := newAuthFixture(t)

	handler := middleware.Auth(authService)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
}

func TestAuth_MalformedHeader(t *testing.T) {
	authService, _ := newAuthFixture(t)

	handler := middleware.Auth(authService)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer", "token-without-scheme"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/me", http.NoBody)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestAuth_GarbageToken(t *testing.T) {
	authService, _ := newAuthFixture(t)

	handler := middleware.Auth(authService)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_TokenSignedWithDifferentKey(t *testing.T) {
	authService, _ := newAuthFixture(t)

	otherJWT := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "a-completely-different-signing-key",
		Issuer:     "https://api.workcrew.test",
		Audience:   "workcrew-api",
	})
	token := accessTokenFor(t, otherJWT, "usr_forged000000000000000", user.RoleSiteManager)

	handler := middleware.Auth(authService)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireManager(t *testing.T) {
	authService, jwtService := newAuthFixture(t)

	handler := middleware.Auth(authService)(middleware.RequireManager(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	))

	tests := []struct {
		name     string
		role     user.Role
		wantCode int
	}{
		{name: "site manager allowed", role: user.RoleSiteManager, wantCode: http.StatusOK},
		{name: "worker forbidden", role: user.RoleWorker, wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := accessTokenFor(t, jwtService, "usr_rolecheck0000000000", tt.role)

			req := httptest.NewRequest(http.MethodGet, "/v1/invitations", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
