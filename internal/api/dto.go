package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Strano/internal/domain"
)

// DeploymentResponse — ответ с записью о выкладке.
type DeploymentResponse struct {
	ID         uuid.UUID  `json:"id"`
	Task       string     `json:"task"`
	Hosts      []string   `json:"hosts"`
	Release    string     `json:"release,omitempty"`
	Revision   string     `json:"revision,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DeploymentFromDomain конвертирует domain.Deployment в DeploymentResponse.
func DeploymentFromDomain(d *domain.Deployment) DeploymentResponse {
	hosts := d.Hosts
	if hosts == nil {
		hosts = []string{}
	}

	return DeploymentResponse{
		ID:         d.ID,
		Task:       d.Task,
		Hosts:      hosts,
		Release:    d.Release,
		Revision:   d.Revision,
		Status:     d.Status.String(),
		Error:      d.Error,
		StartedAt:  d.StartedAt,
		FinishedAt: d.FinishedAt,
		DurationMs: d.Duration().Milliseconds(),
		CreatedAt:  d.CreatedAt,
	}
}

// ScheduleResponse — ответ с расписанием.
type ScheduleResponse struct {
	Name             string     `json:"name"`
	Task             string     `json:"task"`
	CronExpr         string     `json:"cron_expr"`
	Timezone         string     `json:"timezone"`
	NextDueAt        *time.Time `json:"next_due_at,omitempty"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	LastDeploymentID *uuid.UUID `json:"last_deployment_id,omitempty"`
	LastStatus       string     `json:"last_status,omitempty"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	tz := s.Timezone
	if tz == "" {
		tz = "UTC"
	}

	return ScheduleResponse{
		Name:             s.Name,
		Task:             s.Task,
		CronExpr:         s.CronExpr,
		Timezone:         tz,
		NextDueAt:        s.NextDueAt,
		LastRunAt:        s.LastRunAt,
		LastDeploymentID: s.LastDeploymentID,
		LastStatus:       s.LastStatus.String(),
	}
}
