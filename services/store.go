package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"clinic-waitlist/models"

	"github.com/redis/go-redis/v9"
)

// Store is the persistence collaborator of the queue engine. The engine
// treats a nil-error return as durable; it never retries or repairs
// partial writes itself.
type Store interface {
	LoadSession(ctx context.Context, date string) ([]*models.QueueEntry, error)
	SaveEntries(ctx context.Context, date string, entries ...*models.QueueEntry) error
	ArchiveSession(ctx context.Context, date string, entries []*models.QueueEntry) error
	LoadArchive(ctx context.Context, date string) ([]*models.QueueEntry, error)
}

// RedisStore keeps the live session in a hash keyed by entry ID and the
// archive in a per-day list.
type RedisStore struct {
	Redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{Redis: redisClient}
}

func sessionKey(date string) string {
	return fmt.Sprintf("waitlist:session:%s", date)
}

func archiveKey(date string) string {
	return fmt.Sprintf("waitlist:archive:%s", date)
}

func (s *RedisStore) SaveEntries(ctx context.Context, date string, entries ...*models.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	pairs := make([]any, 0, len(entries)*2)
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", entry.ID, err)
		}
		pairs = append(pairs, entry.ID, data)
	}

	if err := s.Redis.HSet(ctx, sessionKey(date), pairs...).Err(); err != nil {
		return fmt.Errorf("save entries: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadSession(ctx context.Context, date string) ([]*models.QueueEntry, error) {
	raw, err := s.Redis.HGetAll(ctx, sessionKey(date)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", date, err)
	}

	entries := make([]*models.QueueEntry, 0, len(raw))
	for id, data := range raw {
		var entry models.QueueEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry %s: %w", id, err)
		}
		entries = append(entries, &entry)
	}

	// Active entries by position first, everything else by check-in time.
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Status.IsActive() != b.Status.IsActive() {
			return a.Status.IsActive()
		}
		if a.Status.IsActive() {
			return a.Position < b.Position
		}
		return a.CheckedInAt.Before(b.CheckedInAt)
	})

	return entries, nil
}

func (s *RedisStore) ArchiveSession(ctx context.Context, date string, entries []*models.QueueEntry) error {
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", entry.ID, err)
		}
		if err := s.Redis.RPush(ctx, archiveKey(date), data).Err(); err != nil {
			return fmt.Errorf("archive entry %s: %w", entry.ID, err)
		}
	}

	if err := s.Redis.Del(ctx, sessionKey(date)).Err(); err != nil {
		return fmt.Errorf("clear session %s: %w", date, err)
	}
	return nil
}

func (s *RedisStore) LoadArchive(ctx context.Context, date string) ([]*models.QueueEntry, error) {
	raw, err := s.Redis.LRange(ctx, archiveKey(date), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load archive %s: %w", date, err)
	}

	entries := make([]*models.QueueEntry, 0, len(raw))
	for _, data := range raw {
		var entry models.QueueEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal archived entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
