package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"clinic-waitlist/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeEntry(id string, status models.Status, position int) *models.QueueEntry {
	return &models.QueueEntry{
		ID:          id,
		PatientRef:  "patient-" + id,
		Token:       "tok-" + id,
		Status:      status,
		Position:    position,
		CheckedInAt: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
	}
}

func TestRedisStore_SaveEntries(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	a := storeEntry("a", models.StatusWaiting, 1)
	b := storeEntry("b", models.StatusWaiting, 2)

	dataA, err := json.Marshal(a)
	require.NoError(t, err)
	dataB, err := json.Marshal(b)
	require.NoError(t, err)

	mock.ExpectHSet("waitlist:session:2026-08-31", "a", dataA, "b", dataB).SetVal(2)

	err = store.SaveEntries(context.Background(), "2026-08-31", a, b)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SaveEntries_Empty(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	// No entries, no command.
	err := store.SaveEntries(context.Background(), "2026-08-31")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SaveEntries_RedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	a := storeEntry("a", models.StatusWaiting, 1)
	dataA, err := json.Marshal(a)
	require.NoError(t, err)

	mock.ExpectHSet("waitlist:session:2026-08-31", "a", dataA).SetErr(errors.New("connection refused"))

	err = store.SaveEntries(context.Background(), "2026-08-31", a)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "save entries")
}

func TestRedisStore_LoadSession(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	active1 := storeEntry("a", models.StatusWaiting, 1)
	active2 := storeEntry("b", models.StatusOutside, 2)
	done := storeEntry("c", models.StatusCompleted, 0)

	raw := make(map[string]string)
	for _, entry := range []*models.QueueEntry{done, active2, active1} {
		data, err := json.Marshal(entry)
		require.NoError(t, err)
		raw[entry.ID] = string(data)
	}

	mock.ExpectHGetAll("waitlist:session:2026-08-31").SetVal(raw)

	entries, err := store.LoadSession(context.Background(), "2026-08-31")

	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Active entries come first, by position.
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
	assert.Equal(t, "c", entries[2].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_LoadSession_Empty(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectHGetAll("waitlist:session:2026-08-31").SetVal(map[string]string{})

	entries, err := store.LoadSession(context.Background(), "2026-08-31")

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRedisStore_LoadSession_CorruptEntry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	mock.ExpectHGetAll("waitlist:session:2026-08-31").SetVal(map[string]string{
		"a": "{not json",
	})

	_, err := store.LoadSession(context.Background(), "2026-08-31")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal entry")
}

func TestRedisStore_ArchiveSession(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	a := storeEntry("a", models.StatusCompleted, 0)
	b := storeEntry("b", models.StatusCancelled, 0)

	dataA, err := json.Marshal(a)
	require.NoError(t, err)
	dataB, err := json.Marshal(b)
	require.NoError(t, err)

	mock.ExpectRPush("waitlist:archive:2026-08-31", dataA).SetVal(1)
	mock.ExpectRPush("waitlist:archive:2026-08-31", dataB).SetVal(2)
	mock.ExpectDel("waitlist:session:2026-08-31").SetVal(1)

	err = store.ArchiveSession(context.Background(), "2026-08-31", []*models.QueueEntry{a, b})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_LoadArchive(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db)

	a := storeEntry("a", models.StatusCompleted, 0)
	data, err := json.Marshal(a)
	require.NoError(t, err)

	mock.ExpectLRange("waitlist:archive:2026-08-31", 0, -1).SetVal([]string{string(data)})

	entries, err := store.LoadArchive(context.Background(), "2026-08-31")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, models.StatusCompleted, entries[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
