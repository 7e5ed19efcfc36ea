package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Значения по умолчанию.
const (
	DefaultGitBranch         = "master"
	DefaultPipInstallCommand = "pip install -r requirements.txt"
	DefaultOwner             = "www-data"
	DefaultMaxReleases       = 5
	DefaultTimeoutSec        = 6000
	DefaultKeyringService    = "strano"
	DefaultConfigFile        = "strano.yaml"
)

// SSH — параметры SSH-транспорта.
type SSH struct {
	KeyFile               string `yaml:"key_file"`
	KnownHosts            string `yaml:"known_hosts"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key"`
	KeyringService        string `yaml:"keyring_service"`
	UseAgent              *bool  `yaml:"use_agent"`
}

// AgentEnabled возвращает true, если для аутентификации используется ssh-agent.
func (s SSH) AgentEnabled() bool {
	return s.UseAgent == nil || *s.UseAgent
}

// History — подключение к БД истории выкладок.
type History struct {
	DSN string `yaml:"dsn"`
}

// Notify — подключение к RabbitMQ для событий выкладки.
type Notify struct {
	URL string `yaml:"url"`
}

// Schedule — запуск задачи по cron-выражению.
type Schedule struct {
	Name     string `yaml:"name"`
	Task     string `yaml:"task"`
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

// File — содержимое strano.yaml как есть, до подстановки значений по умолчанию.
//
// Поля-указатели позволяют отличить "не задано" от нулевого значения.
type File struct {
	Hosts       []string `yaml:"hosts"`
	User        string   `yaml:"user"`
	SSH         SSH      `yaml:"ssh"`
	Parallelism int      `yaml:"parallelism"`
	TimeoutSec  int      `yaml:"timeout_sec"`

	DomainPath   string `yaml:"domain_path"`
	ReleasesPath string `yaml:"releases_path"`
	SharedPath   string `yaml:"shared_path"`
	CurrentPath  string `yaml:"current_path"`

	GitClone        string `yaml:"git_clone"`
	GitBranch       string `yaml:"git_branch"`
	ResolveRevision bool   `yaml:"resolve_revision"`

	SharedDirs  []string `yaml:"shared_dirs"`
	SharedFiles []string `yaml:"shared_files"`

	PipInstallCommand *string `yaml:"pip_install_command"`
	WSGIPath          string  `yaml:"wsgi_path"`
	RestartCmd        string  `yaml:"restart_cmd"`

	RemoteOwner string `yaml:"remote_owner"`
	RemoteGroup string `yaml:"remote_group"`
	UseSudo     *bool  `yaml:"use_sudo"`
	MaxReleases *int   `yaml:"max_releases"`

	History   History    `yaml:"history"`
	Notify    Notify     `yaml:"notify"`
	Schedules []Schedule `yaml:"schedules"`
}

// Deploy — итоговая конфигурация одного вызова.
//
// Строится один раз через New или Load и далее передаётся по значению
// во все операции. Ни одна операция её не изменяет.
type Deploy struct {
	Hosts       []string
	User        string
	SSH         SSH
	Parallelism int
	Timeout     time.Duration

	DomainPath   string
	ReleasesPath string
	SharedPath   string
	CurrentPath  string

	GitClone        string
	GitBranch       string
	ResolveRevision bool

	SharedDirs  []string
	SharedFiles []string

	PipInstallCommand string
	WSGIPath          string
	RestartCmd        string

	RemoteOwner string
	RemoteGroup string
	UseSudo     bool
	MaxReleases int

	History   History
	Notify    Notify
	Schedules []Schedule
}

// Load читает YAML-файл и строит Deploy.
func Load(filename string) (Deploy, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Deploy{}, fmt.Errorf("read config: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return Deploy{}, err
	}
	return New(f)
}

// Parse разбирает YAML без подстановки значений по умолчанию.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse config: %w", err)
	}
	return f, nil
}

// New подставляет значения по умолчанию и валидирует результат.
func New(f File) (Deploy, error) {
	d := withDefaults(f)
	if err := d.Validate(); err != nil {
		return Deploy{}, err
	}
	return d, nil
}

// withDefaults заполняет незаданные поля.
func withDefaults(f File) Deploy {
	d := Deploy{
		Hosts:           clone(f.Hosts),
		User:            f.User,
		SSH:             f.SSH,
		Parallelism:     f.Parallelism,
		Timeout:         time.Duration(f.TimeoutSec) * time.Second,
		DomainPath:      cleanRemote(f.DomainPath),
		ReleasesPath:    cleanRemote(f.ReleasesPath),
		SharedPath:      cleanRemote(f.SharedPath),
		CurrentPath:     cleanRemote(f.CurrentPath),
		GitClone:        f.GitClone,
		GitBranch:       f.GitBranch,
		ResolveRevision: f.ResolveRevision,
		SharedDirs:      clone(f.SharedDirs),
		SharedFiles:     clone(f.SharedFiles),
		WSGIPath:        f.WSGIPath,
		RestartCmd:      f.RestartCmd,
		RemoteOwner:     f.RemoteOwner,
		RemoteGroup:     f.RemoteGroup,
		UseSudo:         true,
		MaxReleases:     DefaultMaxReleases,
		History:         f.History,
		Notify:          f.Notify,
		Schedules:       append([]Schedule(nil), f.Schedules...),
	}

	if d.User == "" {
		d.User = os.Getenv("USER")
	}
	if d.Parallelism <= 0 {
		d.Parallelism = 1
	}
	if f.TimeoutSec <= 0 {
		d.Timeout = DefaultTimeoutSec * time.Second
	}

	home, _ := os.UserHomeDir()
	if d.SSH.KeyFile == "" && home != "" {
		d.SSH.KeyFile = filepath.Join(home, ".ssh", "id_rsa")
	}
	if d.SSH.KnownHosts == "" && home != "" {
		d.SSH.KnownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}
	if d.SSH.KeyringService == "" {
		d.SSH.KeyringService = DefaultKeyringService
	}
	if d.SSH.UseAgent == nil {
		useAgent := true
		d.SSH.UseAgent = &useAgent
	}

	if d.DomainPath != "" {
		if d.ReleasesPath == "" {
			d.ReleasesPath = path.Join(d.DomainPath, "releases")
		}
		if d.SharedPath == "" {
			d.SharedPath = path.Join(d.DomainPath, "shared")
		}
		if d.CurrentPath == "" {
			d.CurrentPath = path.Join(d.DomainPath, "current")
		}
	}

	if d.GitBranch == "" {
		d.GitBranch = DefaultGitBranch
	}

	d.PipInstallCommand = DefaultPipInstallCommand
	if f.PipInstallCommand != nil {
		d.PipInstallCommand = *f.PipInstallCommand
	}

	if d.RemoteOwner == "" {
		d.RemoteOwner = DefaultOwner
	}
	if d.RemoteGroup == "" {
		d.RemoteGroup = d.RemoteOwner
	}
	if f.UseSudo != nil {
		d.UseSudo = *f.UseSudo
	}
	if f.MaxReleases != nil {
		d.MaxReleases = *f.MaxReleases
	}

	// Переменные окружения — как у остальных сервисов
	if d.History.DSN == "" {
		d.History.DSN = os.Getenv("DB_URL")
	}
	if d.Notify.URL == "" {
		d.Notify.URL = os.Getenv("RABBITMQ_URL")
	}

	return d
}

// Validate проверяет конфигурацию.
func (d Deploy) Validate() error {
	if len(d.Hosts) == 0 {
		return ErrNoHosts
	}
	for _, h := range d.Hosts {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("%w: empty host entry", ErrNoHosts)
		}
	}

	if d.DomainPath == "" {
		return ErrNoDomainPath
	}
	for name, p := range map[string]string{
		"domain_path":   d.DomainPath,
		"releases_path": d.ReleasesPath,
		"shared_path":   d.SharedPath,
		"current_path":  d.CurrentPath,
	} {
		if !path.IsAbs(p) {
			return fmt.Errorf("%w: %s=%q", ErrRelativePath, name, p)
		}
	}

	for _, p := range append(clone(d.SharedDirs), d.SharedFiles...) {
		if err := validateShared(p); err != nil {
			return err
		}
	}

	if d.MaxReleases <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxReleases, d.MaxReleases)
	}

	for i, s := range d.Schedules {
		if s.Task == "" || s.Cron == "" {
			return fmt.Errorf("%w: entry %d needs task and cron", ErrInvalidSchedule, i)
		}
	}

	return nil
}

// HasHistory возвращает true, если настроена БД истории.
func (d Deploy) HasHistory() bool {
	return d.History.DSN != ""
}

// HasNotify возвращает true, если настроена отправка событий.
func (d Deploy) HasNotify() bool {
	return d.Notify.URL != ""
}

// validateShared проверяет путь из shared_dirs/shared_files.
func validateShared(p string) error {
	if p == "" || path.IsAbs(p) {
		return fmt.Errorf("%w: %q", ErrInvalidSharedPath, p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidSharedPath, p)
		}
	}
	return nil
}

// cleanRemote нормализует путь на удалённом хосте (всегда POSIX).
func cleanRemote(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
