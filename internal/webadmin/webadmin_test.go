package webadmin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alarmbot/alarmbot/internal/logger"
	"github.com/alarmbot/alarmbot/internal/userstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *userstore.Store) {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "info", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	store, err := userstore.Open(filepath.Join(t.TempDir(), "alarmbot.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init("hunter22"))

	srv, err := New(Config{Addr: "127.0.0.1:0", SessionTTL: time.Hour}, store, log)
	require.NoError(t, err)
	return srv, store
}

func login(t *testing.T, handler http.Handler, username, password string) *http.Cookie {
	t.Helper()

	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestLogin_ValidCredentialsIssueSession(t *testing.T) {
	srv, _ := newTestServer(t)

	cookie := login(t, srv.Handler(), "admin", "hunter22")
	assert.Equal(t, sessionCookie, cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestLogin_InvalidCredentialsRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed")
}

func TestUsers_RequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "not-a-token"})
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsers_ListsRegisteredUsers(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.InsertUser(100, "Ada"))

	cookie := login(t, srv.Handler(), "admin", "hunter22")

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0]["name"])
	assert.Equal(t, userstore.RoleGuest, users[0]["role"])
}

func TestUpdateRole(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.InsertUser(100, "Ada"))

	cookie := login(t, srv.Handler(), "admin", "hunter22")

	body := strings.NewReader(`{"user": 100, "role": "admin"}`)
	req := httptest.NewRequest(http.MethodPost, "/update_role", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success": true`)

	users, err := store.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, userstore.RoleAdmin, users[0].Role)
}

func TestUpdateRole_RejectsUnknownRole(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.InsertUser(100, "Ada"))

	cookie := login(t, srv.Handler(), "admin", "hunter22")

	req := httptest.NewRequest(http.MethodPost, "/update_role", strings.NewReader(`{"user": 100, "role": "owner"}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointServes(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
