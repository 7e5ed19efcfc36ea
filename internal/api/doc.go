// Package api содержит HTTP API планировщика (только чтение).
//
// Структура:
//   - handler.go            — Handler с DI (расписания, история, logger)
//   - routes.go             — регистрация маршрутов
//   - middleware.go         — middleware (logging, recovery)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects
//   - deployment_handler.go — обработчики для /deployments
//   - schedule_handler.go   — обработчики для /schedules
//
// API показывает состояние strano-scheduler: расписания с временем
// следующего запуска и историю выкладок.
package api
