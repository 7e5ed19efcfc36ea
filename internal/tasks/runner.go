package tasks

import (
	"context"
	"log/slog"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/orchestrator"
	"github.com/shaiso/Strano/internal/telemetry"
)

// HistoryStore сохраняет записи о выкладках (repo.DeploymentRepo).
type HistoryStore interface {
	Create(ctx context.Context, d *domain.Deployment) error
	Update(ctx context.Context, d *domain.Deployment) error
}

// EventPublisher публикует смену статуса выкладки (mq.Publisher).
type EventPublisher interface {
	PublishDeployment(ctx context.Context, d *domain.Deployment) error
}

// RevisionResolver определяет ревизию головы ветки (gitrev.Resolver).
type RevisionResolver interface {
	Resolve(ctx context.Context, url, branch string) (string, error)
}

// Runner выполняет задачи и ведёт их учёт.
type Runner struct {
	registry     *Registry
	orchestrator *orchestrator.Orchestrator
	history      HistoryStore
	events       EventPublisher
	revisions    RevisionResolver
	logger       *slog.Logger
}

// RunnerConfig — конфигурация Runner.
type RunnerConfig struct {
	// Registry — реестр задач (default: DefaultRegistry()).
	Registry *Registry

	Orchestrator *orchestrator.Orchestrator

	// Опциональные компоненты; nil — выключено.
	History   HistoryStore
	Events    EventPublisher
	Revisions RevisionResolver

	// Logger
	Logger *slog.Logger
}

// NewRunner создаёт новый Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		registry:     registry,
		orchestrator: cfg.Orchestrator,
		history:      cfg.History,
		events:       cfg.Events,
		revisions:    cfg.Revisions,
		logger:       logger,
	}
}

// Registry возвращает реестр задач Runner'а.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run выполняет задачу name.
//
// Ошибка задачи возвращается без изменений. Ошибки истории и
// событий только логируются. Возвращённый Deployment заполнен
// в любом случае, кроме неизвестной задачи.
func (r *Runner) Run(ctx context.Context, cfg config.Deploy, name string) (*domain.Deployment, error) {
	if name == "" {
		name = DefaultTask
	}

	task, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}

	d := domain.NewDeployment(task.Name, cfg.Hosts)
	logger := telemetry.WithTask(telemetry.WithDeploymentID(r.logger, d.ID.String()), task.Name)
	ctx = telemetry.WithLogger(ctx, logger)

	// 1. PENDING в историю
	r.saveCreate(ctx, logger, d)

	// 2. RUNNING, ревизия ветки
	d.MarkRunning()
	if task.ShipsCode && cfg.ResolveRevision && r.revisions != nil {
		rev, err := r.revisions.Resolve(ctx, cfg.GitClone, cfg.GitBranch)
		if err != nil {
			logger.Warn("failed to resolve revision", "branch", cfg.GitBranch, "error", err)
		} else {
			d.Revision = rev
		}
	}
	r.saveUpdate(ctx, logger, d)
	r.publish(ctx, logger, d)

	logger.Info("task started", "hosts", d.Hosts, "revision", d.Revision)

	// 3. Выполняем
	release, taskErr := task.Run(ctx, r.orchestrator, cfg)
	d.Release = release.Name

	// 4. Итог
	if taskErr != nil {
		d.MarkFailed(taskErr.Error())
		logger.Error("task failed",
			"release", d.Release,
			"duration", d.Duration(),
			"error", taskErr,
		)
	} else {
		d.MarkSucceeded()
		logger.Info("task succeeded",
			"release", d.Release,
			"duration", d.Duration(),
		)
	}

	r.saveUpdate(ctx, logger, d)
	r.publish(ctx, logger, d)
	telemetry.ObserveTask(d.Task, d.Status.String(), d.Duration())

	return d, taskErr
}

func (r *Runner) saveCreate(ctx context.Context, logger *slog.Logger, d *domain.Deployment) {
	if r.history == nil {
		return
	}
	if err := r.history.Create(ctx, d); err != nil {
		logger.Warn("failed to record deployment", "error", err)
	}
}

func (r *Runner) saveUpdate(ctx context.Context, logger *slog.Logger, d *domain.Deployment) {
	if r.history == nil {
		return
	}
	if err := r.history.Update(ctx, d); err != nil {
		logger.Warn("failed to update deployment", "status", d.Status, "error", err)
	}
}

// publish отправляет событие; ошибка не влияет на результат задачи.
func (r *Runner) publish(ctx context.Context, logger *slog.Logger, d *domain.Deployment) {
	if r.events == nil {
		return
	}
	if err := r.events.PublishDeployment(ctx, d); err != nil {
		logger.Warn("failed to publish deployment event", "status", d.Status, "error", err)
	}
}
