package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — запуск задачи выкладки по cron-выражению.
//
// Описание берётся из секции schedules: конфигурации,
// остальные поля заполняет планировщик во время работы.
type Schedule struct {
	// Name — имя расписания для логов и `strano schedule list`.
	Name string `json:"name"`

	// Task — имя задачи: "deploy", "cleanup", ...
	Task string `json:"task"`

	// CronExpr — cron-выражение из пяти полей.
	// Примеры:
	//   "0 9 * * *"     — каждый день в 9:00
	//   "*/5 * * * *"   — каждые 5 минут
	//   "0 3 * * 0"     — каждое воскресенье в 3:00
	CronExpr string `json:"cron_expr"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	Timezone string `json:"timezone"`

	// NextDueAt — время следующего запуска.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastDeploymentID — ID записи о последнем запуске.
	LastDeploymentID *uuid.UUID `json:"last_deployment_id,omitempty"`

	// LastStatus — итог последнего запуска.
	LastStatus DeploymentStatus `json:"last_status,omitempty"`
}

// Location возвращает часовой пояс расписания (UTC, если не задан или неизвестен).
func (s *Schedule) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDue проверяет, пора ли запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	if s.NextDueAt == nil {
		return false
	}
	return !now.Before(*s.NextDueAt)
}

// RecordRun записывает информацию о запуске.
func (s *Schedule) RecordRun(d *Deployment, nextDue time.Time) {
	now := time.Now()
	s.LastRunAt = &now
	if d != nil {
		id := d.ID
		s.LastDeploymentID = &id
		s.LastStatus = d.Status
	}
	s.NextDueAt = &nextDue
}
