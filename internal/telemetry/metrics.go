package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики задач выкладки и удалённых команд.
var (
	// TasksTotal — количество выполненных задач по имени и итоговому статусу.
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strano_tasks_total",
		Help: "Total deployment tasks executed, by task and status",
	}, []string{"task", "status"})

	// TaskDuration — длительность задач.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "strano_task_duration_seconds",
		Help:    "Deployment task duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"task"})

	// RemoteCommandsTotal — количество удалённых команд по режиму (run/sudo/upload) и результату.
	RemoteCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strano_remote_commands_total",
		Help: "Total remote commands executed per host, by mode and result",
	}, []string{"mode", "result"})

	// ReleasesRemoved — количество релизов, удалённых cleanup'ом.
	ReleasesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strano_releases_removed_total",
		Help: "Total release directories removed by cleanup",
	})

	// LastSuccess — unix-время последней успешной задачи.
	LastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "strano_task_last_success_timestamp_seconds",
		Help: "Unix time of the last successful task run",
	}, []string{"task"})
)

// ObserveTask записывает метрики завершённой задачи.
func ObserveTask(task, status string, duration time.Duration) {
	TasksTotal.WithLabelValues(task, status).Inc()
	TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
	if status == "SUCCEEDED" {
		LastSuccess.WithLabelValues(task).SetToCurrentTime()
	}
}

// ObserveRemoteCommand записывает результат удалённой команды на одном хосте.
func ObserveRemoteCommand(mode string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RemoteCommandsTotal.WithLabelValues(mode, result).Inc()
}
