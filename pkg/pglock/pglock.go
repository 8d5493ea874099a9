package pglock

import (
	"context"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Key derives a stable advisory lock key from name.
func Key(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// Session holds a dedicated connection for session-level advisory locks.
type Session struct {
	conn *pgxpool.Conn
	key  int64
}

func Acquire(ctx context.Context, pool *pgxpool.Pool, name string) (*Session, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn, key: Key(name)}, nil
}

func (s *Session) Conn() *pgxpool.Conn {
	return s.conn
}

// TryLock reports whether this session now holds the lock.
func (s *Session) TryLock(ctx context.Context) (bool, error) {
	var ok bool
	if err := s.conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, s.key).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Session) Unlock(ctx context.Context) error {
	var ok bool
	return s.conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1::bigint)`, s.key).Scan(&ok)
}

// Close returns the connection to the pool. Session locks die with Unlock or the connection.
func (s *Session) Close() {
	s.conn.Release()
}
