package repo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SchedulerLockKey — ключ pg_advisory_lock лидера планировщика.
const SchedulerLockKey int64 = 0x5354524e // "STRN"

// lockConn — соединение, на котором держится advisory lock (*pgxpool.Conn).
type lockConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Release()
}

// Leader — лидерство через pg_try_advisory_lock.
//
// Advisory lock принадлежит сессии PostgreSQL, поэтому Leader держит
// одно соединение из пула на всё время лидерства. Если сессия умерла,
// блокировка на сервере уже снята: TryLock замечает это и захватывает
// её заново.
type Leader struct {
	acquire func(ctx context.Context) (lockConn, error)
	key     int64
	logger  *slog.Logger

	mu   sync.Mutex
	conn lockConn
}

// NewLeader создаёт Leader для ключа key.
func NewLeader(pool *pgxpool.Pool, key int64) *Leader {
	return &Leader{
		acquire: func(ctx context.Context) (lockConn, error) {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		key:    key,
		logger: slog.Default(),
	}
}

// TryLock пытается стать (или подтвердить) лидером.
func (l *Leader) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		err := l.conn.Ping(ctx)
		if err == nil {
			return true, nil
		}
		// Сессия потеряна вместе с блокировкой
		l.logger.Warn("leader connection lost, re-acquiring lock", "key", l.key, "error", err)
		l.conn.Release()
		l.conn = nil
	}

	conn, err := l.acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire conn: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", l.key).Scan(&ok); err != nil {
		conn.Release()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// Unlock отпускает лидерство и возвращает соединение в пул.
func (l *Leader) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return ErrLockNotHeld
	}
	defer func() {
		l.conn.Release()
		l.conn = nil
	}()

	if _, err := l.conn.Exec(ctx, "select pg_advisory_unlock($1)", l.key); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}

// IsLeader возвращает true, если блокировка удерживается.
func (l *Leader) IsLeader() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}
