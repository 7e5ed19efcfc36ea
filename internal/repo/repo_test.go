package repo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/Strano/internal/domain"
)

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) == 0 || names[0] != "001_deployments.sql" {
		t.Fatalf("unexpected migrations: %v", names)
	}

	sql, err := migrations.ReadFile("migrations/" + names[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(sql), "CREATE TABLE IF NOT EXISTS deployments") {
		t.Error("migration should create deployments table idempotently")
	}
}

func TestDeploymentFilter_Limit(t *testing.T) {
	if got := (DeploymentFilter{}).limit(); got != DefaultListLimit {
		t.Errorf("expected default limit %d, got %d", DefaultListLimit, got)
	}
	if got := (DeploymentFilter{Limit: 5}).limit(); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("") != nil {
		t.Error("empty string should be NULL")
	}
	if s := nullString("x"); s == nil || *s != "x" {
		t.Error("non-empty string should be kept")
	}
	if derefString(nil) != "" {
		t.Error("NULL should become empty string")
	}
	if hostsOrEmpty(nil) == nil {
		t.Error("nil hosts should become empty array")
	}
}

func TestNewPool_NoDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), ""); !errors.Is(err, ErrNoDSN) {
		t.Errorf("expected ErrNoDSN, got %v", err)
	}
}

// --- Leader ---

type fakeRow struct {
	locked bool
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.locked
	return nil
}

// fakeLockConn — сессия PostgreSQL; dead имитирует убитый backend.
type fakeLockConn struct {
	locked   bool
	dead     bool
	released bool
}

func (c *fakeLockConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return fakeRow{locked: c.locked}
}

func (c *fakeLockConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (c *fakeLockConn) Ping(ctx context.Context) error {
	if c.dead {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (c *fakeLockConn) Release() { c.released = true }

func fakeLeader(conns ...*fakeLockConn) (*Leader, *int) {
	acquired := 0
	l := &Leader{
		key:    SchedulerLockKey,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		acquire: func(ctx context.Context) (lockConn, error) {
			if acquired >= len(conns) {
				return nil, errors.New("pool exhausted")
			}
			c := conns[acquired]
			acquired++
			return c, nil
		},
	}
	return l, &acquired
}

func TestLeader_KeepsHealthyConnection(t *testing.T) {
	first := &fakeLockConn{locked: true}
	l, acquired := fakeLeader(first)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil || !ok {
			t.Fatalf("try %d: ok=%v err=%v", i, ok, err)
		}
	}
	if *acquired != 1 {
		t.Errorf("expected one acquire, got %d", *acquired)
	}
	if first.released {
		t.Error("healthy connection must stay checked out")
	}
}

func TestLeader_ReacquiresAfterLostSession(t *testing.T) {
	first := &fakeLockConn{locked: true}
	second := &fakeLockConn{locked: false}
	l, acquired := fakeLeader(first, second)
	ctx := context.Background()

	if ok, err := l.TryLock(ctx); err != nil || !ok {
		t.Fatalf("initial lock: ok=%v err=%v", ok, err)
	}

	// Backend убит, а другой экземпляр уже забрал блокировку
	first.dead = true

	ok, err := l.TryLock(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("leadership must not be reported after the session died")
	}
	if !first.released || !second.released {
		t.Errorf("connections should be released: first=%v second=%v", first.released, second.released)
	}
	if *acquired != 2 {
		t.Errorf("expected re-acquire, got %d acquires", *acquired)
	}
	if l.IsLeader() {
		t.Error("IsLeader should be false")
	}
}

// --- Integration (нужен PostgreSQL: STRANO_TEST_DB_URL) ---

func testPool(t *testing.T) *DeploymentRepo {
	t.Helper()

	dsn := os.Getenv("STRANO_TEST_DB_URL")
	if dsn == "" {
		t.Skip("STRANO_TEST_DB_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewDeploymentRepo(pool)
}

func TestDeploymentRepo_Lifecycle(t *testing.T) {
	r := testPool(t)
	ctx := context.Background()

	d := domain.NewDeployment("deploy", []string{"web1", "web2"})
	if err := r.Create(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}

	d.MarkRunning()
	d.Release = "20230103000000"
	d.MarkFailed("exit status 1")
	if err := r.Update(ctx, d); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := r.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.DeploymentStatusFailed || got.Release != d.Release || got.Error != "exit status 1" {
		t.Errorf("unexpected deployment: %+v", got)
	}
	if len(got.Hosts) != 2 {
		t.Errorf("expected 2 hosts, got %v", got.Hosts)
	}

	list, err := r.List(ctx, DeploymentFilter{Task: "deploy", Status: domain.DeploymentStatusFailed, Limit: 100})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, item := range list {
		if item.ID == d.ID {
			found = true
		}
	}
	if !found {
		t.Error("created deployment should be listed")
	}
}

func TestDeploymentRepo_NotFound(t *testing.T) {
	r := testPool(t)
	ctx := context.Background()

	if _, err := r.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := r.Update(ctx, domain.NewDeployment("deploy", nil)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestLeader(t *testing.T) {
	r := testPool(t)
	ctx := context.Background()

	a := NewLeader(r.pool, SchedulerLockKey+1)
	b := NewLeader(r.pool, SchedulerLockKey+1)

	ok, err := a.TryLock(ctx)
	if err != nil || !ok {
		t.Fatalf("first leader should acquire lock: ok=%v err=%v", ok, err)
	}
	if ok, _ := b.TryLock(ctx); ok {
		t.Error("second leader must not acquire held lock")
	}

	if err := a.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := a.Unlock(ctx); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("expected ErrLockNotHeld, got %v", err)
	}

	if ok, _ := b.TryLock(ctx); !ok {
		t.Error("lock should be free after unlock")
	}
	_ = b.Unlock(ctx)
}

func TestLeader_TerminatedBackend(t *testing.T) {
	r := testPool(t)
	ctx := context.Background()

	a := NewLeader(r.pool, SchedulerLockKey+2)
	if ok, err := a.TryLock(ctx); err != nil || !ok {
		t.Fatalf("first leader should acquire lock: ok=%v err=%v", ok, err)
	}

	var pid int32
	a.mu.Lock()
	if err := a.conn.QueryRow(ctx, "select pg_backend_pid()").Scan(&pid); err != nil {
		a.mu.Unlock()
		t.Fatalf("backend pid: %v", err)
	}
	a.mu.Unlock()

	if _, err := r.pool.Exec(ctx, "select pg_terminate_backend($1)", pid); err != nil {
		t.Fatalf("terminate backend: %v", err)
	}

	b := NewLeader(r.pool, SchedulerLockKey+2)
	if ok, _ := b.TryLock(ctx); !ok {
		t.Fatal("lock should be free once the holder's session is gone")
	}
	defer b.Unlock(ctx)

	if ok, _ := a.TryLock(ctx); ok {
		t.Error("stale leader must not keep reporting leadership")
	}
}
