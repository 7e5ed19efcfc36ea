package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/gitrev"
	"github.com/shaiso/Strano/internal/mq"
	"github.com/shaiso/Strano/internal/orchestrator"
	"github.com/shaiso/Strano/internal/remote"
	"github.com/shaiso/Strano/internal/repo"
	"github.com/shaiso/Strano/internal/tasks"
)

// Ошибки CLI.
var (
	// ErrNoHistory — history.dsn не задан или БД недоступна.
	ErrNoHistory = errors.New("deployment history is not configured")

	// ErrNoEvents — notify.url не задан или RabbitMQ недоступен.
	ErrNoEvents = errors.New("deployment events are not configured")
)

// HistoryLister читает историю выкладок (repo.DeploymentRepo).
type HistoryLister interface {
	List(ctx context.Context, filter repo.DeploymentFilter) ([]domain.Deployment, error)
}

// App — окружение команд: конфигурация и открытые подключения.
type App struct {
	Config       config.Deploy
	Logger       *slog.Logger
	Session      remote.Session
	Orchestrator *orchestrator.Orchestrator
	Runner       *tasks.Runner

	// Опциональные подключения; nil — не настроено.
	Pool    *pgxpool.Pool
	History HistoryLister
	MQ      *mq.Connection

	closers []io.Closer
}

// Open подключается к хостам и к опциональной инфраструктуре.
//
// SSH обязателен. Недоступные БД истории и RabbitMQ только
// логируются: задачи выполняются и без них.
func Open(ctx context.Context, cfg config.Deploy, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	session, err := remote.Dial(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("ssh: %w", err)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Session: session,
		closers: []io.Closer{session},
	}

	orch, err := orchestrator.New(orchestrator.Config{Session: session, Logger: logger})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Orchestrator = orch

	runnerCfg := tasks.RunnerConfig{
		Orchestrator: orch,
		Logger:       logger,
	}

	if cfg.HasHistory() {
		pool, err := openHistory(ctx, cfg.History.DSN)
		if err != nil {
			logger.Warn("deployment history disabled", "error", err)
		} else {
			history := repo.NewDeploymentRepo(pool)
			app.Pool = pool
			app.History = history
			app.closers = append(app.closers, closerFunc(func() error {
				pool.Close()
				return nil
			}))
			runnerCfg.History = history
		}
	}

	if cfg.HasNotify() {
		conn, err := openEvents(ctx, cfg.Notify.URL, logger)
		if err != nil {
			logger.Warn("deployment events disabled", "error", err)
		} else {
			app.MQ = conn
			app.closers = append(app.closers, conn)
			runnerCfg.Events = mq.NewPublisher(conn, logger)
		}
	}

	if cfg.ResolveRevision {
		runnerCfg.Revisions = revisionResolver(cfg, logger)
	}

	app.Runner = tasks.NewRunner(runnerCfg)
	return app, nil
}

// Close закрывает подключения в обратном порядке.
func (a *App) Close() error {
	var merr *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	a.closers = nil
	return merr.ErrorOrNil()
}

// openHistory открывает пул и применяет миграции.
func openHistory(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := repo.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// openEvents подключается к RabbitMQ и объявляет топологию.
func openEvents(ctx context.Context, url string, logger *slog.Logger) (*mq.Connection, error) {
	conn, err := mq.NewConnection(url, logger)
	if err != nil {
		return nil, err
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// revisionResolver строит Resolver. Для ssh-адресов репозитория
// используется ключ из ssh.key_file.
func revisionResolver(cfg config.Deploy, logger *slog.Logger) *gitrev.Resolver {
	if isHTTPRemote(cfg.GitClone) || cfg.SSH.KeyFile == "" {
		return gitrev.NewResolver(nil)
	}

	signer, err := remote.LoadSigner(cfg.SSH.KeyFile, cfg.SSH.KeyringService)
	if err != nil {
		logger.Warn("git key not available, resolving without auth", "error", err)
		return gitrev.NewResolver(nil)
	}

	hostKeys, err := remote.HostKeyCallback(cfg.SSH)
	if err != nil {
		logger.Warn("git host keys not available, resolving without auth", "error", err)
		return gitrev.NewResolver(nil)
	}

	return gitrev.NewResolver(gitrev.SSHAuth("", signer, hostKeys))
}

func isHTTPRemote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
