package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/turf-wars/internal/platform/kvstore"
)

// Store is the production kvstore.Store backed by three Postgres tables:
// kv_scalars, kv_hashes and kv_zsets. Scalar expiry is lazy, an expired
// row is treated as absent and overwritten by the next SetNX.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var row struct {
		Value     string        `db:"value"`
		ExpiresAt sql.NullInt64 `db:"expires_at"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT value, expires_at FROM kv_scalars WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	if row.ExpiresAt.Valid && row.ExpiresAt.Int64 <= s.now().UnixMilli() {
		return "", false, nil
	}
	return row.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_scalars (key, value, expires_at) VALUES ($1, $2, NULL)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = NULL`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	now := s.now().UnixMilli()
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now + ttl.Milliseconds(), Valid: true}
	}

	// The conflict update only fires when the existing row has expired,
	// so a live key is left untouched and the insert reports no rows.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_scalars (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
		 WHERE kv_scalars.expires_at IS NOT NULL AND kv_scalars.expires_at <= $4`,
		key, value, expiresAt, now)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return affected > 0, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	for _, stmt := range []string{
		`DELETE FROM kv_scalars WHERE key = ANY($1)`,
		`DELETE FROM kv_hashes WHERE key = ANY($1)`,
		`DELETE FROM kv_zsets WHERE key = ANY($1)`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt, pq.Array(keys)); err != nil {
			return fmt.Errorf("del: %w", err)
		}
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM kv_scalars WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2))
		     OR EXISTS (SELECT 1 FROM kv_hashes WHERE key = $1)
		     OR EXISTS (SELECT 1 FROM kv_zsets WHERE key = $1)`,
		key, s.now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return exists, nil
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM kv_hashes WHERE key = $1 AND field = $2`, key, field)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %s %s: %w", key, field, err)
	}
	return value, true, nil
}

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for field, value := range fields {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv_hashes (key, field, value) VALUES ($1, $2, $3)
			 ON CONFLICT (key, field) DO UPDATE SET value = EXCLUDED.value`,
			key, field, value)
		if err != nil {
			return fmt.Errorf("hset %s %s: %w", key, field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var rows []struct {
		Field string `db:"field"`
		Value string `db:"value"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT field, value FROM kv_hashes WHERE key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Field] = row.Value
	}
	return out, nil
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_hashes WHERE key = $1 AND field = ANY($2)`,
		key, pq.Array(fields))
	if err != nil {
		return fmt.Errorf("hdel %s: %w", key, err)
	}
	return nil
}

func (s *Store) HLen(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM kv_hashes WHERE key = $1`, key)
	if err != nil {
		return 0, fmt.Errorf("hlen %s: %w", key, err)
	}
	return count, nil
}

func (s *Store) ZAdd(ctx context.Context, key string, members ...kvstore.ZMember) error {
	if len(members) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("zadd %s: %w", key, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, m := range members {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv_zsets (key, member, score) VALUES ($1, $2, $3)
			 ON CONFLICT (key, member) DO UPDATE SET score = EXCLUDED.score`,
			key, m.Member, m.Score)
		if err != nil {
			return fmt.Errorf("zadd %s %s: %w", key, m.Member, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("zadd %s: %w", key, err)
	}
	return nil
}

func (s *Store) ZIncrBy(ctx context.Context, key, member string, delta float64) (float64, error) {
	var score float64
	err := s.db.GetContext(ctx, &score,
		`INSERT INTO kv_zsets (key, member, score) VALUES ($1, $2, $3)
		 ON CONFLICT (key, member) DO UPDATE SET score = kv_zsets.score + EXCLUDED.score
		 RETURNING score`,
		key, member, delta)
	if err != nil {
		return 0, fmt.Errorf("zincrby %s %s: %w", key, member, err)
	}
	return score, nil
}

func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM kv_zsets WHERE key = $1`, key)
	if err != nil {
		return 0, fmt.Errorf("zcard %s: %w", key, err)
	}
	return count, nil
}

func (s *Store) ZRangeByRank(ctx context.Context, key string, start, stop int64, reverse bool) ([]kvstore.ZMember, error) {
	size, err := s.ZCard(ctx, key)
	if err != nil {
		return nil, err
	}
	offset, limit, ok := rankWindow(start, stop, size)
	if !ok {
		return nil, nil
	}

	order := `score ASC, member ASC`
	if reverse {
		order = `score DESC, member DESC`
	}

	var rows []struct {
		Member string  `db:"member"`
		Score  float64 `db:"score"`
	}
	query := fmt.Sprintf(
		`SELECT member, score FROM kv_zsets WHERE key = $1 ORDER BY %s LIMIT $2 OFFSET $3`, order)
	if err := s.db.SelectContext(ctx, &rows, query, key, limit, offset); err != nil {
		return nil, fmt.Errorf("zrange %s: %w", key, err)
	}

	out := make([]kvstore.ZMember, 0, len(rows))
	for _, row := range rows {
		out = append(out, kvstore.ZMember{Member: row.Member, Score: row.Score})
	}
	return out, nil
}

func (s *Store) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	size, err := s.ZCard(ctx, key)
	if err != nil {
		return err
	}
	offset, limit, ok := rankWindow(start, stop, size)
	if !ok {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM kv_zsets WHERE key = $1 AND member IN (
		     SELECT member FROM kv_zsets WHERE key = $1
		     ORDER BY score ASC, member ASC LIMIT $2 OFFSET $3)`,
		key, limit, offset)
	if err != nil {
		return fmt.Errorf("zremrangebyrank %s: %w", key, err)
	}
	return nil
}

func (s *Store) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	var err error
	switch {
	case math.IsInf(min, -1) && math.IsInf(max, 1):
		_, err = s.db.ExecContext(ctx, `DELETE FROM kv_zsets WHERE key = $1`, key)
	case math.IsInf(min, -1):
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM kv_zsets WHERE key = $1 AND score <= $2`, key, max)
	case math.IsInf(max, 1):
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM kv_zsets WHERE key = $1 AND score >= $2`, key, min)
	default:
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM kv_zsets WHERE key = $1 AND score BETWEEN $2 AND $3`, key, min, max)
	}
	if err != nil {
		return fmt.Errorf("zremrangebyscore %s: %w", key, err)
	}
	return nil
}

// rankWindow converts an inclusive, possibly negative rank range into a
// LIMIT/OFFSET pair.
func rankWindow(start, stop, size int64) (offset, limit int64, ok bool) {
	if size == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop >= size {
		stop = size - 1
	}
	if start > stop || start >= size {
		return 0, 0, false
	}
	return start, stop - start + 1, true
}
