package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rfberaldo/sqlz"
)

type SqliteStoreConfig struct {
	DB *sqlz.DB
}

/*
SqliteStore keeps counters in a sqlite database so multiple instances can
share rate-limit state. The schema lives in sql-migrations and is applied
at startup.
*/
type SqliteStore struct {
	db *sqlz.DB
}

type counterRow struct {
	CounterKey   string    `db:"counter_key"`
	AttemptCount int       `db:"attempt_count"`
	ResetAt      time.Time `db:"reset_at"`
}

func NewSqliteStore(config SqliteStoreConfig) *SqliteStore {
	return &SqliteStore{
		db: config.DB,
	}
}

func (s *SqliteStore) get(key string) (*counterRow, error) {
	var (
		err error
	)

	result := &counterRow{}

	sql := `
SELECT
   counter_key
   , attempt_count
   , reset_at
FROM rate_limit_counters
WHERE 1=1
   AND counter_key=?
   `

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.QueryRow(ctx, result, sql, key); err != nil {
		if sqlz.IsNotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("error querying for counter '%s': %w", key, err)
	}

	return result, nil
}

func (s *SqliteStore) put(key string, count int, resetAt time.Time) error {
	sql := `
INSERT INTO rate_limit_counters (
   counter_key
   , attempt_count
   , reset_at
) VALUES (?, ?, ?)
ON CONFLICT (counter_key) DO UPDATE SET
   attempt_count=excluded.attempt_count
   , reset_at=excluded.reset_at
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if _, err := s.db.Exec(ctx, sql, key, count, resetAt); err != nil {
		return fmt.Errorf("error upserting counter '%s': %w", key, err)
	}

	return nil
}

func (s *SqliteStore) Check(key string, max int, window time.Duration) (Result, error) {
	now := time.Now()
	row, err := s.get(key)

	if err != nil {
		return Result{}, err
	}

	if row == nil || row.ResetAt.Before(now) {
		resetAt := now.Add(window)

		if err = s.put(key, 1, resetAt); err != nil {
			return Result{}, err
		}

		return Result{Allowed: true, Remaining: max - 1, ResetAt: resetAt}, nil
	}

	if row.AttemptCount >= max {
		return Result{Allowed: false, Remaining: 0, ResetAt: row.ResetAt}, nil
	}

	if err = s.put(key, row.AttemptCount+1, row.ResetAt); err != nil {
		return Result{}, err
	}

	return Result{Allowed: true, Remaining: max - row.AttemptCount - 1, ResetAt: row.ResetAt}, nil
}

func (s *SqliteStore) Peek(key string) (int, time.Time, error) {
	row, err := s.get(key)

	if err != nil {
		return 0, time.Time{}, err
	}

	if row == nil || row.ResetAt.Before(time.Now()) {
		return 0, time.Time{}, nil
	}

	return row.AttemptCount, row.ResetAt, nil
}

func (s *SqliteStore) Increment(key string, window time.Duration) (int, time.Time, error) {
	now := time.Now()
	row, err := s.get(key)

	if err != nil {
		return 0, time.Time{}, err
	}

	if row == nil || row.ResetAt.Before(now) {
		resetAt := now.Add(window)

		if err = s.put(key, 1, resetAt); err != nil {
			return 0, time.Time{}, err
		}

		return 1, resetAt, nil
	}

	if err = s.put(key, row.AttemptCount+1, row.ResetAt); err != nil {
		return 0, time.Time{}, err
	}

	return row.AttemptCount + 1, row.ResetAt, nil
}

func (s *SqliteStore) Clear(key string) error {
	sql := `
DELETE FROM rate_limit_counters
WHERE 1=1
   AND counter_key=?
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if _, err := s.db.Exec(ctx, sql, key); err != nil {
		return fmt.Errorf("error clearing counter '%s': %w", key, err)
	}

	return nil
}
