package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/repo"
)

// ScheduleSource отдаёт снимок расписаний (scheduler.Scheduler).
type ScheduleSource interface {
	Schedules() []domain.Schedule
}

// DeploymentStore читает историю выкладок (repo.DeploymentRepo).
type DeploymentStore interface {
	List(ctx context.Context, filter repo.DeploymentFilter) ([]domain.Deployment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	schedules   ScheduleSource
	deployments DeploymentStore
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Schedules ScheduleSource

	// Deployments — история; nil, если history.dsn не задан.
	Deployments DeploymentStore

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		schedules:   cfg.Schedules,
		deployments: cfg.Deployments,
		logger:      logger,
	}
}
