package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrNoDSN — строка подключения не задана (history.dsn или DB_URL).
	ErrNoDSN = errors.New("database dsn is not configured")

	// ErrLockNotHeld — попытка отпустить блокировку, которой нет.
	ErrLockNotHeld = errors.New("advisory lock not held")
)
