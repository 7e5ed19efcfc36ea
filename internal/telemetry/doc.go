// Package telemetry обеспечивает наблюдаемость.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики задач и удалённых команд
//
// CLI и scheduler используют единый формат логирования,
// scheduler дополнительно экспортирует метрики на /metrics.
package telemetry
