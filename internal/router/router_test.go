package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpal/internal/db"
	"parkpal/internal/model"
	"parkpal/internal/notify"
	"parkpal/internal/repository"
	"parkpal/internal/sched"
	"parkpal/internal/service"
	"parkpal/internal/timer"
)

type silentNotifier struct{}

func (silentNotifier) Send(string, string) error          { return nil }
func (silentNotifier) SendWithSound(string, string) error { return nil }
func (silentNotifier) IsSupported() bool                  { return true }

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database, "../../migrations"))

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	backupRepo := repository.NewBackupRepository(database)

	gate := notify.NewGate(notify.PermissionGranted, nil)
	inbox := notify.NewInbox(10)
	adapter := notify.NewAdapter(silentNotifier{}, gate, inbox, nil, time.Second, nil)
	scheduler := sched.New(adapter, nil)
	timers := timer.NewManager(scheduler, backupRepo, sessionRepo, nil, nil)

	authService := service.NewAuthService(userRepo, "test-secret", time.Hour)
	sessionService := service.NewSessionService(sessionRepo, timers)

	return New(Deps{
		AuthService:    authService,
		SessionService: sessionService,
		Timers:         timers,
		Adapter:        adapter,
		Inbox:          inbox,
		Gate:           gate,
		CORSOrigins:    []string{"*"},
	})
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func registerUser(t *testing.T, engine *gin.Engine) string {
	t.Helper()

	recorder := doJSON(t, engine, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    fmt.Sprintf("driver-%d@example.com", time.Now().UnixNano()),
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

type sessionResponse struct {
	Session model.ParkingSession `json:"session"`
}

func createSession(t *testing.T, engine *gin.Engine, token string, body map[string]any) model.ParkingSession {
	t.Helper()

	recorder := doJSON(t, engine, http.MethodPost, "/api/sessions", token, body)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp.Session
}

func TestHealth(t *testing.T) {
	engine := newTestServer(t)

	recorder := doJSON(t, engine, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newTestServer(t)

	recorder := doJSON(t, engine, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "parkpal_timers_active")
}

func TestAuthRequired(t *testing.T) {
	engine := newTestServer(t)

	recorder := doJSON(t, engine, http.MethodGet, "/api/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	engine := newTestServer(t)

	email := fmt.Sprintf("driver-%d@example.com", time.Now().UnixNano())
	recorder := doJSON(t, engine, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestCreateSessionArmsTimer(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	expiry := time.Now().UTC().Add(90 * time.Minute)
	session := createSession(t, engine, token, map[string]any{
		"label":           "Main St",
		"expiryTime":      expiry.Format(time.RFC3339Nano),
		"reminderMinutes": 15,
	})
	require.NotNil(t, session.ExpiryTime)

	recorder := doJSON(t, engine, http.MethodGet, "/api/timers/"+session.ID, token, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var resp struct {
		Timer struct {
			LocationID  string `json:"locationId"`
			RemainingMs int64  `json:"remainingMs"`
		} `json:"timer"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, session.ID, resp.Timer.LocationID)
	assert.Greater(t, resp.Timer.RemainingMs, int64(85*60*1000))
}

func TestCreateSessionWithoutExpiryHasNoTimer(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	session := createSession(t, engine, token, map[string]any{"label": "free parking"})

	recorder := doJSON(t, engine, http.MethodGet, "/api/timers/"+session.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreateSessionRejectsPastExpiry(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	recorder := doJSON(t, engine, http.MethodPost, "/api/sessions", token, map[string]any{
		"label":      "too late",
		"expiryTime": time.Now().UTC().Add(-time.Minute).Format(time.RFC3339Nano),
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestExtendSession(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	session := createSession(t, engine, token, map[string]any{
		"label":      "Main St",
		"expiryTime": expiry.Format(time.RFC3339Nano),
	})

	recorder := doJSON(t, engine, http.MethodPost, "/api/sessions/"+session.ID+"/extend", token, map[string]any{
		"additionalMinutes": 30,
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Session.ExtensionCount)
	require.NotNil(t, resp.Session.ExpiryTime)
	assert.True(t, expiry.Add(30*time.Minute).Equal(*resp.Session.ExpiryTime))
}

func TestDeleteSessionCancelsTimer(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	expiry := time.Now().UTC().Add(time.Hour)
	session := createSession(t, engine, token, map[string]any{
		"label":      "Main St",
		"expiryTime": expiry.Format(time.RFC3339Nano),
	})

	recorder := doJSON(t, engine, http.MethodDelete, "/api/sessions/"+session.ID, token, nil)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = doJSON(t, engine, http.MethodGet, "/api/timers/"+session.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestStopTimerClearsSessionTiming(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	expiry := time.Now().UTC().Add(time.Hour)
	reminder := 10
	session := createSession(t, engine, token, map[string]any{
		"label":           "Main St",
		"expiryTime":      expiry.Format(time.RFC3339Nano),
		"reminderMinutes": reminder,
	})

	recorder := doJSON(t, engine, http.MethodPost, "/api/sessions/"+session.ID+"/stop", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Nil(t, resp.Session.ExpiryTime)
	assert.Nil(t, resp.Session.ReminderMinutes)

	recorder = doJSON(t, engine, http.MethodGet, "/api/timers/"+session.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestSyncRebuildsTimers(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	expiry := time.Now().UTC().Add(time.Hour)
	createSession(t, engine, token, map[string]any{
		"label":      "with expiry",
		"expiryTime": expiry.Format(time.RFC3339Nano),
	})
	createSession(t, engine, token, map[string]any{"label": "without expiry"})

	recorder := doJSON(t, engine, http.MethodPost, "/api/sessions/sync", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		ActiveTimers int `json:"activeTimers"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ActiveTimers)
}

func TestSessionsAreOwnerScoped(t *testing.T) {
	engine := newTestServer(t)
	owner := registerUser(t, engine)
	other := registerUser(t, engine)

	session := createSession(t, engine, owner, map[string]any{"label": "mine"})

	recorder := doJSON(t, engine, http.MethodGet, "/api/sessions/"+session.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = doJSON(t, engine, http.MethodDelete, "/api/sessions/"+session.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestVisibilityRoundTrip(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	recorder := doJSON(t, engine, http.MethodPost, "/api/app/visibility", token, map[string]any{"visible": false})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, engine, http.MethodGet, "/api/app/visibility", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Visible bool `json:"visible"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.False(t, resp.Visible)
}

func TestInboxEndpoint(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	recorder := doJSON(t, engine, http.MethodGet, "/api/alerts/inbox", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Messages []notify.InboxMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Empty(t, resp.Messages)
}

func TestPermissionEndpoint(t *testing.T) {
	engine := newTestServer(t)
	token := registerUser(t, engine)

	recorder := doJSON(t, engine, http.MethodGet, "/api/alerts/permission", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "granted", resp.Status)
}
