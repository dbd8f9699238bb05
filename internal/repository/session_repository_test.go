package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpal/internal/db"
	"parkpal/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database, "../../migrations"))
	return database
}

func createTestUser(t *testing.T, database *sql.DB) string {
	t.Helper()

	users := NewUserRepository(database)
	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, users.Create(context.Background(), &user))
	return user.ID
}

func newStoredSession(t *testing.T, repo *SessionRepository, userID string, expiry *time.Time, reminderMinutes *int) *model.ParkingSession {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	session := model.ParkingSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		Label:           "Main St garage",
		Note:            "level 2",
		Latitude:        52.52,
		Longitude:       13.405,
		CostPerHour:     2.5,
		ExpiryTime:      expiry,
		ReminderMinutes: reminderMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Create(context.Background(), &session))
	return &session
}

func TestSessionRoundTrip(t *testing.T) {
	database := newTestDB(t)
	repo := NewSessionRepository(database)
	userID := createTestUser(t, database)

	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	reminder := 15
	created := newStoredSession(t, repo, userID, &expiry, &reminder)

	loaded, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "Main St garage", loaded.Label)
	require.NotNil(t, loaded.ExpiryTime)
	assert.True(t, expiry.Equal(*loaded.ExpiryTime))
	require.NotNil(t, loaded.ReminderMinutes)
	assert.Equal(t, 15, *loaded.ReminderMinutes)
	assert.Equal(t, 0, loaded.ExtensionCount)
}

func TestSessionWithoutExpiry(t *testing.T) {
	database := newTestDB(t)
	repo := NewSessionRepository(database)
	userID := createTestUser(t, database)

	created := newStoredSession(t, repo, userID, nil, nil)

	loaded, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.ExpiryTime)
	assert.Nil(t, loaded.ReminderMinutes)
}

func TestUpdateTiming(t *testing.T) {
	database := newTestDB(t)
	repo := NewSessionRepository(database)
	userID := createTestUser(t, database)

	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	created := newStoredSession(t, repo, userID, &expiry, nil)

	newExpiry := expiry.Add(30 * time.Minute)
	require.NoError(t, repo.UpdateTiming(context.Background(), created.ID, newExpiry, 1))

	loaded, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ExpiryTime)
	assert.True(t, newExpiry.Equal(*loaded.ExpiryTime))
	assert.Equal(t, 1, loaded.ExtensionCount)
}

func TestClearTiming(t *testing.T) {
	database := newTestDB(t)
	repo := NewSessionRepository(database)
	userID := createTestUser(t, database)

	expiry := time.Now().UTC().Add(time.Hour)
	reminder := 10
	created := newStoredSession(t, repo, userID, &expiry, &reminder)

	require.NoError(t, repo.ClearTiming(context.Background(), created.ID))

	loaded, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.ExpiryTime)
	assert.Nil(t, loaded.ReminderMinutes)
}

func TestListWithExpiry(t *testing.T) {
	database := newTestDB(t)
	repo := NewSessionRepository(database)
	userID := createTestUser(t, database)

	expiry := time.Now().UTC().Add(time.Hour)
	newStoredSession(t, repo, userID, &expiry, nil)
	newStoredSession(t, repo, userID, nil, nil)

	sessions, err := repo.ListWithExpiry(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.NotNil(t, sessions[0].ExpiryTime)
}

func TestDeleteMissingSession(t *testing.T) {
	database := newTestDB(t)
	repo := NewSessionRepository(database)

	err := repo.Delete(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMissingSession(t *testing.T) {
	database := newTestDB(t)
	repo := NewSessionRepository(database)

	_, err := repo.GetByID(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
