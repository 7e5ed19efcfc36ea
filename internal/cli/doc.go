// Package cli реализует инструмент командной строки Strano.
//
// # Обзор
//
// Команды выполняются прямо с машины оператора: CLI подключается к
// хостам по SSH и, если настроены, к PostgreSQL (история) и
// RabbitMQ (события).
//
// # Ключевые компоненты
//
// ## App
//
// Окружение команд, открытое по конфигурации: SSH-сессия,
// Orchestrator, tasks.Runner и опциональные подключения.
//
//	app, err := cli.Open(ctx, cfg, logger)
//	defer app.Close()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.Encoder) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr,
// с оформлением через lipgloss.
// Это позволяет использовать pipe: strano history --json | jq .
//
// ## Commands
//
//   - задачи: setup, deploy, update, update_code (update-code), restart, cleanup, rollback
//   - releases, upload, history, events
//   - schedule list, keyring set
//
// Каждая команда создаётся фабричной функцией (NewReleasesCmd и т.д.),
// принимающей appFn/configFn и outputFn — замыкания для ленивого
// создания окружения после парсинга PersistentFlags.
package cli
