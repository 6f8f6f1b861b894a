package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workcrew/workcrew/internal/api"
	"github.com/workcrew/workcrew/internal/auth"
	"github.com/workcrew/workcrew/internal/device"
	"github.com/workcrew/workcrew/internal/featureflags"
	"github.com/workcrew/workcrew/internal/invitation"
	"github.com/workcrew/workcrew/internal/mail"
	"github.com/workcrew/workcrew/internal/notify"
	"github.com/workcrew/workcrew/internal/push"
	"github.com/workcrew/workcrew/internal/task"
	"github.com/workcrew/workcrew/internal/user"
)

const testSigningKey = "test-secret-key-for-testing-only"

// okGateway accepts every delivery.
type okGateway struct{}

func (okGateway) Ready(_ context.Context) error { return nil }

func (okGateway) Send(_ context.Context, _, _, _ string, _ map[string]string) error {
	return nil
}

type testEnv struct {
	router  http.Handler
	jwt     *auth.JWTService
	users   *user.InMemoryRepository
	mailer  *mail.InMemoryMailer
	flags   *featureflags.Service
	manager *user.User
	worker  *user.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()

	users := user.NewInMemoryRepository()
	manager := seedUser(t, users, "manager@example.com", user.RoleSiteManager)
	worker := seedUser(t, users, "worker@example.com", user.RoleWorker)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: testSigningKey,
		Issuer:     "https://api.workcrew.test",
		Audience:   "workcrew-api",
	})
	authService := auth.NewService(auth.ServiceConfig{
		JWTService:  jwtService,
		UserRepo:    users,
		RefreshRepo: auth.NewInMemoryRefreshTokenRepository(),
	})

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     logger,
	})
	devices := device.NewService(device.NewInMemoryRepository())
	dispatcher := push.NewDispatcher(push.DispatcherConfig{
		Gateway: okGateway{},
		Devices: devices,
		Logger:  logger,
	})
	notifier := notify.NewNotifier(notify.NotifierConfig{
		Dispatcher: dispatcher,
		Flags:      flags,
		Logger:     logger,
	})
	tasks := task.NewService(task.ServiceConfig{
		Repo:     task.NewInMemoryRepository(),
		Users:    users,
		Notifier: notifier,
		Logger:   logger,
	})
	mailer := mail.NewInMemoryMailer()
	invitations := invitation.NewService(invitation.ServiceConfig{
		Repo:   invitation.NewInMemoryRepository(users),
		Users:  users,
		Mailer: mailer,
		Flags:  flags,
		Logger: logger,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:            "test",
		BuildTime:          "2026-01-01T00:00:00Z",
		Logger:             logger,
		AuthService:        authService,
		UserService:        user.NewService(users),
		DeviceService:      devices,
		TaskService:        tasks,
		InvitationService:  invitations,
		Dispatcher:         dispatcher,
		FeatureFlagService: flags,
	})

	return &testEnv{
		router:  router,
		jwt:     jwtService,
		users:   users,
		mailer:  mailer,
		flags:   flags,
		manager: manager,
		worker:  worker,
	}
}

func seedUser(t *testing.T, users *user.InMemoryRepository, email string, role user.Role) *user.User {
	t.Helper()

	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)

	u := &user.User{
		ID:           "usr_" + email[:3] + "seed0000000000000000",
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func (e *testEnv) token(t *testing.T, u *user.User) string {
	t.Helper()

	token, _, err := e.jwt.GenerateAccessToken(u)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/ops/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, "OK", body["status"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/ops/ready", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SystemStatus_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/ops/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/ops/status", env.token(t, env.manager), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Login(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "manager@example.com",
		"password": "correct-horse",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var body auth.TokenResponse
	decodeBody(t, rec, &body)
	assert.NotEmpty(t, body.AccessToken)
	assert.NotEmpty(t, body.RefreshToken)
	assert.Equal(t, "Bearer", body.TokenType)
	assert.Equal(t, env.manager.ID, body.UserID)
	assert.Equal(t, string(user.RoleSiteManager), body.Role)
}

func TestRouter_Login_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "manager@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RefreshRotation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "worker@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login auth.TokenResponse
	decodeBody(t, rec, &login)

	rec = env.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refreshToken": login.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed auth.TokenResponse
	decodeBody(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The rotated-out token must no longer work.
	rec = env.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refreshToken": login.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Me_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_GetMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/me", env.token(t, env.worker), nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, env.worker.ID, body["id"])
	assert.Equal(t, "worker@example.com", body["email"])
	assert.Equal(t, "worker", body["role"])
}

func TestRouter_DeviceRegisterAndList(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.worker)

	rec := env.do(t, http.MethodPost, "/v1/me/devices", token, map[string]string{
		"token":    "fcm-token-router-test-0001",
		"platform": "android",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/v1/me/devices/")

	var created map[string]interface{}
	decodeBody(t, rec, &created)
	deviceID, _ := created["id"].(string)
	require.NotEmpty(t, deviceID)

	// Re-registering the same token refreshes the row instead of
	// creating a second one.
	rec = env.do(t, http.MethodPost, "/v1/me/devices", token, map[string]string{
		"token":    "fcm-token-router-test-0001",
		"platform": "android",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/me/devices", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Items []map[string]interface{} `json:"items"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "0001", list.Items[0]["tokenLast4"])

	rec = env.do(t, http.MethodDelete, "/v1/me/devices/"+deviceID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Unregistering twice is a no-op; rows are kept for re-registration.
	rec = env.do(t, http.MethodDelete, "/v1/me/devices/"+deviceID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/me/devices/dev_doesnotexist000000000", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_DeviceRegister_InvalidPlatform(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/me/devices", env.token(t, env.worker), map[string]string{
		"token":    "fcm-token-router-test-0002",
		"platform": "blackberry",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Workers_ManagerOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/workers", env.token(t, env.worker), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/workers", env.token(t, env.manager), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Items []map[string]interface{} `json:"items"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, env.worker.ID, list.Items[0]["id"])
}

func TestRouter_TaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	managerToken := env.token(t, env.manager)
	workerToken := env.token(t, env.worker)

	// Workers cannot create tasks.
	rec := env.do(t, http.MethodPost, "/v1/tasks", workerToken, map[string]interface{}{
		"title":     "Install scaffolding",
		"startDate": "2026-09-01T08:00:00Z",
		"dueDate":   "2026-09-05T17:00:00Z",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/tasks", managerToken, map[string]interface{}{
		"title":       "Install scaffolding",
		"description": "North face, levels 2-4",
		"startDate":   "2026-09-01T08:00:00Z",
		"dueDate":     "2026-09-05T17:00:00Z",
		"workers":     []string{env.worker.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	decodeBody(t, rec, &created)
	taskID, _ := created["id"].(string)
	require.NotEmpty(t, taskID)
	assert.Equal(t, "waiting", created["status"])

	// The assigned worker sees the task.
	rec = env.do(t, http.MethodGet, "/v1/tasks/"+taskID, workerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Completion records the ending document and flips the status.
	rec = env.do(t, http.MethodPost, "/v1/tasks/"+taskID+"/complete", workerToken, map[string]interface{}{
		"documents": []map[string]string{
			{"fileName": "report.pdf", "fileUrl": "https://files.example.com/report.pdf"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var completed map[string]interface{}
	decodeBody(t, rec, &completed)
	assert.Equal(t, "completed", completed["status"])

	// A completed task cannot be completed again.
	rec = env.do(t, http.MethodPost, "/v1/tasks/"+taskID+"/complete", workerToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_TaskRemind(t *testing.T) {
	env := newTestEnv(t)
	managerToken := env.token(t, env.manager)

	rec := env.do(t, http.MethodPost, "/v1/tasks", managerToken, map[string]interface{}{
		"title":       "Pour foundation",
		"description": "Section B slab",
		"startDate":   "2026-09-01T08:00:00Z",
		"dueDate":     "2026-09-02T17:00:00Z",
		"workers":     []string{env.worker.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	decodeBody(t, rec, &created)
	taskID := created["id"].(string)

	// Give the worker a registered device so the reminder has a target.
	rec = env.do(t, http.MethodPost, "/v1/me/devices", env.token(t, env.worker), map[string]string{
		"token":    "fcm-token-remind-0003",
		"platform": "ios",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/tasks/"+taskID+"/remind", managerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary map[string]interface{}
	decodeBody(t, rec, &summary)
	assert.Equal(t, float64(1), summary["successCount"])
	assert.Equal(t, float64(0), summary["failureCount"])

	// Workers cannot trigger reminders.
	rec = env.do(t, http.MethodPost, "/v1/tasks/"+taskID+"/remind", env.token(t, env.worker), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_InvitationSignupFlow(t *testing.T) {
	env := newTestEnv(t)
	managerToken := env.token(t, env.manager)

	// Workers cannot mint invitations.
	rec := env.do(t, http.MethodPost, "/v1/invitations", env.token(t, env.worker), map[string]string{
		"email": "newhire@example.com",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/invitations", managerToken, map[string]string{
		"email": "newhire@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	messages := env.mailer.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "newhire@example.com", messages[0].To)

	code := extractCode(t, messages[0].HTMLBody)

	rec = env.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"invitationCode": code,
		"email":          "newhire@example.com",
		"password":       "a-long-enough-password",
		"firstName":      "New",
		"lastName":       "Hire",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var tokens auth.TokenResponse
	decodeBody(t, rec, &tokens)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.Equal(t, string(user.RoleWorker), tokens.Role)

	// A redeemed code cannot be used again.
	rec = env.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"invitationCode": code,
		"email":          "other@example.com",
		"password":       "a-long-enough-password",
		"firstName":      "Other",
		"lastName":       "Person",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Signup_WrongEmailIsMasked(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/invitations", env.token(t, env.manager), map[string]string{
		"email": "a@x.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	messages := env.mailer.Messages()
	require.Len(t, messages, 1)
	code := extractCode(t, messages[0].HTMLBody)

	rec = env.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"invitationCode": code,
		"email":          "someone-else@example.com",
		"password":       "a-long-enough-password",
		"firstName":      "Some",
		"lastName":       "One",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "a@x***@x.com")
	assert.NotContains(t, rec.Body.String(), `"a@x.com"`)
}

func TestRouter_Signup_UnknownCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"invitationCode": "ZZZZZZ",
		"email":          "nobody@example.com",
		"password":       "a-long-enough-password",
		"firstName":      "No",
		"lastName":       "Body",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_InvitationCancel(t *testing.T) {
	env := newTestEnv(t)
	managerToken := env.token(t, env.manager)

	rec := env.do(t, http.MethodPost, "/v1/invitations", managerToken, map[string]string{
		"email": "cancelme@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	decodeBody(t, rec, &created)
	invitationID := created["id"].(string)

	rec = env.do(t, http.MethodPost, "/v1/invitations/"+invitationID+"/cancel", managerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cancelled map[string]interface{}
	decodeBody(t, rec, &cancelled)
	assert.Equal(t, true, cancelled["cancelled"])

	rec = env.do(t, http.MethodGet, "/v1/invitations", managerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Items []map[string]interface{} `json:"items"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, true, list.Items[0]["cancelled"])
}

func TestRouter_TestNotification(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.worker)

	rec := env.do(t, http.MethodPost, "/v1/me/devices", token, map[string]string{
		"token":    "fcm-token-selftest-0004",
		"platform": "web",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/notifications/test", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary map[string]interface{}
	decodeBody(t, rec, &summary)
	assert.Equal(t, float64(1), summary["successCount"])
}

func TestRouter_FeatureFlags_ManagerOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/admin/feature-flags", env.token(t, env.worker), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	managerToken := env.token(t, env.manager)

	rec = env.do(t, http.MethodPut, "/v1/admin/feature-flags", managerToken, map[string]interface{}{
		"items": []map[string]interface{}{
			{"key": featureflags.FlagInvitationSignup, "value": false},
		},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/admin/feature-flags", managerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), featureflags.FlagInvitationSignup)
}

func TestRouter_Signup_DisabledByFlag(t *testing.T) {
	env := newTestEnv(t)
	managerToken := env.token(t, env.manager)

	rec := env.do(t, http.MethodPost, "/v1/invitations", managerToken, map[string]string{
		"email": "latecomer@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	code := extractCode(t, env.mailer.Messages()[0].HTMLBody)

	rec = env.do(t, http.MethodPut, "/v1/admin/feature-flags", managerToken, map[string]interface{}{
		"items": []map[string]interface{}{
			{"key": featureflags.FlagInvitationSignup, "value": false},
		},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"invitationCode": code,
		"email":          "latecomer@example.com",
		"password":       "a-long-enough-password",
		"firstName":      "Late",
		"lastName":       "Comer",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

var invitationCodePattern = regexp.MustCompile(`<strong>([A-HJ-NP-Z2-9]{6})</strong>`)

func extractCode(t *testing.T, htmlBody string) string {
	t.Helper()

	match := invitationCodePattern.FindStringSubmatch(htmlBody)
	require.NotNil(t, match, fmt.Sprintf("no invitation code in email body: %s", htmlBody))
	return match[1]
}
