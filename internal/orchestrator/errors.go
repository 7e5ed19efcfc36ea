package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrNoSession — оркестратор создан без remote.Session.
	ErrNoSession = errors.New("remote session is required")
)
