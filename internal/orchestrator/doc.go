// Package orchestrator выполняет шаги выкладки релизов на целевых хостах.
//
// Orchestrator отвечает за:
//   - Подготовку структуры каталогов (releases/, shared/)
//   - Checkout кода в новый каталог релиза
//   - Симлинки на shared-каталоги и файлы
//   - Установку зависимостей и атомарное переключение current
//   - Перезапуск приложения, cleanup и rollback
//
// Каждая операция — последовательность shell-команд, отправляемых
// через remote.Session. Первая упавшая команда прерывает
// последовательность, её ошибка возвращается без изменений.
package orchestrator
