package domain

import (
	"time"

	"github.com/google/uuid"
)

// Deployment — запись об одном вызове задачи (setup, deploy, rollback, ...).
//
// Deployment создаётся Runner'ом перед выполнением задачи и
// сохраняется в историю (если она настроена).
type Deployment struct {
	// ID — уникальный идентификатор вызова.
	ID uuid.UUID `json:"id"`

	// Task — имя задачи: "deploy", "rollback", ...
	Task string `json:"task"`

	// Hosts — целевые хосты.
	Hosts []string `json:"hosts"`

	// Release — имя релиза, созданного или активированного задачей.
	// Пустое для задач, не затрагивающих релизы (setup, restart).
	Release string `json:"release,omitempty"`

	// Revision — git-ревизия ветки на момент выкладки (если удалось определить).
	Revision string `json:"revision,omitempty"`

	// Status — текущий статус выполнения.
	Status DeploymentStatus `json:"status"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если задача завершилась с FAILED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// NewDeployment создаёт запись в статусе PENDING.
func NewDeployment(task string, hosts []string) *Deployment {
	h := make([]string, len(hosts))
	copy(h, hosts)

	return &Deployment{
		ID:        uuid.New(),
		Task:      task,
		Hosts:     h,
		Status:    DeploymentStatusPending,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если задача ещё не завершена.
func (d *Deployment) Duration() time.Duration {
	if d.StartedAt == nil || d.FinishedAt == nil {
		return 0
	}
	return d.FinishedAt.Sub(*d.StartedAt)
}

// IsFinished возвращает true, если задача завершена.
func (d *Deployment) IsFinished() bool {
	return d.Status.IsTerminal()
}

// MarkRunning переводит запись в статус RUNNING.
func (d *Deployment) MarkRunning() {
	now := time.Now()
	d.Status = DeploymentStatusRunning
	d.StartedAt = &now
}

// MarkSucceeded переводит запись в статус SUCCEEDED.
func (d *Deployment) MarkSucceeded() {
	now := time.Now()
	d.Status = DeploymentStatusSucceeded
	d.FinishedAt = &now
}

// MarkFailed переводит запись в статус FAILED с ошибкой.
func (d *Deployment) MarkFailed(err string) {
	now := time.Now()
	d.Status = DeploymentStatusFailed
	d.FinishedAt = &now
	d.Error = err
}
