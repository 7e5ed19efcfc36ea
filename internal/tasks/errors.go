package tasks

import "errors"

// Ошибки задач.
var (
	// ErrTaskNotFound — задача с таким именем не зарегистрирована.
	ErrTaskNotFound = errors.New("task not found")
)
