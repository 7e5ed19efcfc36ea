package config

import "errors"

// Ошибки конфигурации.
var (
	// ErrNoHosts — не указан ни один целевой хост.
	ErrNoHosts = errors.New("no hosts configured")

	// ErrNoDomainPath — не указан domain_path.
	ErrNoDomainPath = errors.New("domain_path is required")

	// ErrRelativePath — путь на хосте должен быть абсолютным.
	ErrRelativePath = errors.New("remote path must be absolute")

	// ErrInvalidSharedPath — shared_dirs/shared_files должны быть относительными и без "..".
	ErrInvalidSharedPath = errors.New("invalid shared path")

	// ErrInvalidMaxReleases — max_releases должен быть положительным.
	ErrInvalidMaxReleases = errors.New("max_releases must be positive")

	// ErrInvalidSchedule — некорректная запись в schedules.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrNoSource — не указан git_clone (нужен для checkout).
	ErrNoSource = errors.New("git_clone is required")
)
