package scheduler

import "errors"

// Ошибки планировщика.
var (
	// ErrDuplicateSchedule — два расписания с одним именем.
	ErrDuplicateSchedule = errors.New("duplicate schedule name")

	// ErrInvalidTimezone — неизвестный часовой пояс.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrUnknownTask — расписание ссылается на незарегистрированную задачу.
	ErrUnknownTask = errors.New("unknown task")

	// ErrNoRunner — планировщик создан без Runner.
	ErrNoRunner = errors.New("task runner is required")
)
