package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/telemetry"
)

// Runner выполняет задачу (tasks.Runner).
type Runner interface {
	Run(ctx context.Context, cfg config.Deploy, name string) (*domain.Deployment, error)
}

// Locker — лидерство между несколькими экземплярами (repo.Leader).
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
}

// TaskChecker проверяет, что задача существует (tasks.Registry).
type TaskChecker interface {
	Has(name string) bool
}

// Scheduler запускает задачи по расписаниям из конфигурации.
//
// Повторный запуск расписания, пока предыдущий ещё выполняется,
// пропускается. Задачи разных расписаний выполняются строго по
// очереди: все они работают с одними и теми же хостами. Если задан
// Locker, задачи выполняет только лидер.
type Scheduler struct {
	cfg    config.Deploy
	runner Runner
	locker Locker
	logger *slog.Logger
	cron   *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc

	// runMu — одна задача за раз на весь планировщик.
	runMu sync.Mutex

	mu        sync.RWMutex
	schedules []*domain.Schedule
}

// Config — конфигурация Scheduler.
type Config struct {
	// Deploy — конфигурация выкладки; расписания берутся из Deploy.Schedules.
	Deploy config.Deploy

	Runner Runner

	// Tasks — проверка имён задач при старте (опционально).
	Tasks TaskChecker

	// Locker — лидерство (опционально).
	Locker Locker

	Logger *slog.Logger
}

// New создаёт Scheduler и регистрирует расписания.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, ErrNoRunner
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schedules, err := FromConfig(cfg.Deploy.Schedules, time.Now())
	if err != nil {
		return nil, err
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cfg:    cfg.Deploy,
		runner: cfg.Runner,
		locker: cfg.Locker,
		logger: logger,
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for i := range schedules {
		sched := &schedules[i]

		if cfg.Tasks != nil && !cfg.Tasks.Has(sched.Task) {
			return nil, fmt.Errorf("schedule %s: %w: %s", sched.Name, ErrUnknownTask, sched.Task)
		}

		if _, err := s.cron.AddFunc(cronSpec(sched), func() { s.runSchedule(s.ctx, sched) }); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", sched.Name, err)
		}
		s.schedules = append(s.schedules, sched)
	}

	return s, nil
}

// Start запускает cron в фоне.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", "schedules", len(s.schedules))
	s.cron.Start()
}

// Stop останавливает cron и ждёт завершения выполняющихся задач
// (или отмены ctx).
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("stopping scheduler...")

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		// Прерываем выполняющиеся задачи
		s.cancel()
		<-done.Done()
	}
	s.cancel()

	s.logger.Info("scheduler stopped")
}

// Schedules возвращает снимок состояния расписаний.
func (s *Scheduler) Schedules() []domain.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Schedule, len(s.schedules))
	for i, sched := range s.schedules {
		out[i] = *sched
	}
	return out
}

// runSchedule выполняет одно срабатывание расписания.
func (s *Scheduler) runSchedule(ctx context.Context, sched *domain.Schedule) {
	logger := telemetry.WithTask(s.logger.With("schedule", sched.Name), sched.Task)

	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx)
		if err != nil {
			logger.Error("leader lock failed, skipping", "error", err)
			return
		}
		if !ok {
			logger.Debug("not a leader, skipping")
			return
		}
	}

	logger.Info("scheduled task triggered")

	s.runMu.Lock()
	d, err := s.runner.Run(ctx, s.cfg, sched.Task)
	s.runMu.Unlock()
	if err != nil {
		logger.Error("scheduled task failed", "error", err)
	}

	next, nextErr := NextRun(sched, time.Now())
	if nextErr != nil {
		// Выражение проверено в New, сюда не попадаем
		logger.Error("failed to calculate next run", "error", nextErr)
		return
	}

	s.mu.Lock()
	sched.RecordRun(d, next)
	s.mu.Unlock()
}

// cronLogger — адаптер slog для robfig/cron.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
