// Package tasks описывает задачи, доступные из CLI и планировщика.
//
// Registry связывает имя задачи (setup, deploy, rollback, ...) с
// последовательностью операций Orchestrator. Runner выполняет задачу и
// ведёт запись domain.Deployment: история в PostgreSQL, события в
// RabbitMQ, метрики Prometheus. Всё, кроме самой задачи, опционально.
package tasks
