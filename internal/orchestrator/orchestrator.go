package orchestrator

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/remote"
	"github.com/shaiso/Strano/internal/shell"
	"github.com/shaiso/Strano/internal/telemetry"
)

// Orchestrator выполняет операции выкладки через remote.Session.
//
// Конфигурация передаётся в каждую операцию по значению и не
// изменяется. Единственное внутреннее состояние — последнее выданное
// имя релиза: оно нужно, чтобы имена строго возрастали даже при
// двух checkout'ах в одну секунду.
type Orchestrator struct {
	session remote.Session
	logger  *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	lastRelease time.Time
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Session — исполнитель удалённых команд.
	Session remote.Session

	// Now — источник времени для имён релизов (default: time.Now).
	Now func() time.Time

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Session == nil {
		return nil, ErrNoSession
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		session: cfg.Session,
		logger:  logger,
		now:     now,
	}, nil
}

// Setup создаёт структуру каталогов и выставляет права.
//
// Повторный запуск на готовой структуре только заново применяет права.
func (o *Orchestrator) Setup(ctx context.Context, cfg config.Deploy) error {
	c := shell.NewCommands(cfg)

	o.logger.Info("setting up layout", "domain_path", cfg.DomainPath)

	if err := o.runLayout(ctx, cfg, c.MkdirLayout()); err != nil {
		return err
	}
	if err := o.runLayout(ctx, cfg, c.MkdirStorage()); err != nil {
		return err
	}
	return o.Permissions(ctx, cfg)
}

// Permissions рекурсивно выставляет владельца domain_path и даёт группе права на запись.
func (o *Orchestrator) Permissions(ctx context.Context, cfg config.Deploy) error {
	c := shell.NewCommands(cfg)

	if err := o.runLayout(ctx, cfg, c.Chown()); err != nil {
		return err
	}
	return o.runLayout(ctx, cfg, c.Chmod())
}

// Checkout клонирует ветку в новый каталог релиза.
//
// При ошибке клонирования частично созданный каталог остаётся на хосте.
func (o *Orchestrator) Checkout(ctx context.Context, cfg config.Deploy) (domain.Release, error) {
	if cfg.GitClone == "" {
		return domain.Release{}, config.ErrNoSource
	}

	release := domain.NewRelease(cfg.ReleasesPath, o.nextReleaseName())
	c := shell.NewCommands(cfg)

	o.logger.Info("checking out release",
		"release", release.Name,
		"branch", cfg.GitBranch,
	)

	if err := o.run(ctx, c.Clone(release)); err != nil {
		return release, err
	}
	return release, nil
}

// UpdateCode — Checkout и Permissions.
func (o *Orchestrator) UpdateCode(ctx context.Context, cfg config.Deploy) (domain.Release, error) {
	release, err := o.Checkout(ctx, cfg)
	if err != nil {
		return release, err
	}
	if err := o.Permissions(ctx, cfg); err != nil {
		return release, err
	}
	return release, nil
}

// Symlink связывает shared-каталоги и файлы с релизом.
//
// Каталоги обрабатываются раньше файлов, чтобы ln -sf не создал
// файл на месте будущего каталога.
func (o *Orchestrator) Symlink(ctx context.Context, release domain.Release, cfg config.Deploy) error {
	c := shell.NewCommands(cfg)

	for _, dir := range cfg.SharedDirs {
		for _, cmd := range c.LinkDir(release, dir) {
			if err := o.run(ctx, cmd); err != nil {
				return err
			}
		}
	}

	for _, file := range cfg.SharedFiles {
		if err := o.run(ctx, c.LinkFile(release, file)); err != nil {
			return err
		}
	}

	return nil
}

// UpdateEnvironment устанавливает зависимости внутри релиза и выставляет права.
//
// pip_install_command выполняется как есть из каталога релиза.
// Пустая pip_install_command пропускает установку.
func (o *Orchestrator) UpdateEnvironment(ctx context.Context, release domain.Release, cfg config.Deploy) error {
	if cfg.PipInstallCommand != "" {
		c := shell.NewCommands(cfg)
		if err := o.run(ctx, c.Install(release, cfg.PipInstallCommand)); err != nil {
			return err
		}
	}

	return o.Permissions(ctx, cfg)
}

// ActivateRelease атомарно переключает current на релиз.
func (o *Orchestrator) ActivateRelease(ctx context.Context, release domain.Release, cfg config.Deploy) error {
	c := shell.NewCommands(cfg)

	telemetry.WithRelease(o.logger, release.Name).Info("activating release", "current_path", cfg.CurrentPath)

	return o.run(ctx, c.SwapCurrent(release))
}

// Restart перезапускает приложение.
//
// wsgi_path задан — touch файла внутри релиза; иначе restart_cmd
// (как есть, без подстановок); иначе ничего. Пустой release
// означает current_path.
func (o *Orchestrator) Restart(ctx context.Context, cfg config.Deploy, release domain.Release) error {
	c := shell.NewCommands(cfg)

	dir := release.Path
	if dir == "" {
		dir = cfg.CurrentPath
	}

	switch {
	case cfg.WSGIPath != "":
		o.logger.Info("restarting via touch", "dir", dir, "wsgi_path", cfg.WSGIPath)
		return o.run(ctx, c.Touch(dir, cfg.WSGIPath))

	case cfg.RestartCmd != "":
		o.logger.Info("restarting via restart_cmd", "dir", dir)
		return o.run(ctx, cfg.RestartCmd)

	default:
		o.logger.Debug("restart not configured, skipping")
		return nil
	}
}

// Cleanup удаляет самые старые релизы сверх max_releases одной командой.
//
// Возвращает имена удалённых релизов.
func (o *Orchestrator) Cleanup(ctx context.Context, cfg config.Deploy, releases []string) ([]string, error) {
	_, remove := domain.PlanCleanup(releases, cfg.MaxReleases)
	if len(remove) == 0 {
		o.logger.Debug("nothing to clean up", "releases", len(releases), "max_releases", cfg.MaxReleases)
		return nil, nil
	}

	paths := make([]string, len(remove))
	for i, name := range remove {
		paths[i] = domain.NewRelease(cfg.ReleasesPath, name).Path
	}

	o.logger.Info("removing old releases", "releases", remove)

	c := shell.NewCommands(cfg)
	if err := o.run(ctx, c.Remove(paths)); err != nil {
		return nil, err
	}

	telemetry.ReleasesRemoved.Add(float64(len(remove)))
	return remove, nil
}

// Rollback переключает current на предыдущий релиз и удаляет последний.
//
// Если релизов меньше двух, ничего не делает и возвращает ok=false
// без ошибки.
func (o *Orchestrator) Rollback(ctx context.Context, cfg config.Deploy, releases []string) (domain.Release, bool, error) {
	previousName, latestName, ok := domain.PlanRollback(releases)
	if !ok {
		o.logger.Info("not enough releases to roll back, skipping", "releases", len(releases))
		return domain.Release{}, false, nil
	}

	previous := domain.NewRelease(cfg.ReleasesPath, previousName)
	latest := domain.NewRelease(cfg.ReleasesPath, latestName)

	o.logger.Info("rolling back", "to", previous.Name, "remove", latest.Name)

	c := shell.NewCommands(cfg)
	if err := o.run(ctx, c.Rollback(previous, latest)); err != nil {
		return domain.Release{}, false, err
	}
	return previous, true, nil
}

// Update выкладывает новый релиз без перезапуска.
//
// UpdateCode → Symlink → UpdateEnvironment → ActivateRelease →
// Permissions → Cleanup.
func (o *Orchestrator) Update(ctx context.Context, cfg config.Deploy) (domain.Release, error) {
	release, err := o.UpdateCode(ctx, cfg)
	if err != nil {
		return release, err
	}
	if err := o.Symlink(ctx, release, cfg); err != nil {
		return release, err
	}
	if err := o.UpdateEnvironment(ctx, release, cfg); err != nil {
		return release, err
	}
	if err := o.ActivateRelease(ctx, release, cfg); err != nil {
		return release, err
	}
	if err := o.Permissions(ctx, cfg); err != nil {
		return release, err
	}

	releases, err := o.ListReleases(ctx, cfg)
	if err != nil {
		return release, err
	}
	if _, err := o.Cleanup(ctx, cfg, releases); err != nil {
		return release, err
	}

	return release, nil
}

// Deploy — Update и Restart нового релиза.
func (o *Orchestrator) Deploy(ctx context.Context, cfg config.Deploy) (domain.Release, error) {
	release, err := o.Update(ctx, cfg)
	if err != nil {
		return release, err
	}
	if err := o.Restart(ctx, cfg, release); err != nil {
		return release, err
	}
	return release, nil
}

// RollbackAndRestart откатывает релиз и перезапускает приложение.
//
// Restart выполняется всегда: для релиза, на который откатились,
// либо для current_path, если откатываться было некуда.
func (o *Orchestrator) RollbackAndRestart(ctx context.Context, cfg config.Deploy) (domain.Release, error) {
	releases, err := o.ListReleases(ctx, cfg)
	if err != nil {
		return domain.Release{}, err
	}

	release, _, err := o.Rollback(ctx, cfg, releases)
	if err != nil {
		return domain.Release{}, err
	}

	if err := o.Restart(ctx, cfg, release); err != nil {
		return release, err
	}
	return release, nil
}

// ListReleases возвращает отсортированные имена релизов со всех хостов.
//
// Посторонние записи в releases_path игнорируются.
func (o *Orchestrator) ListReleases(ctx context.Context, cfg config.Deploy) ([]string, error) {
	c := shell.NewCommands(cfg)

	results, err := o.session.Run(ctx, c.ListReleases())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, res := range results {
		for _, line := range res.Lines() {
			if domain.IsReleaseName(line) {
				seen[line] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// HostRelease — релиз, на который указывает current на конкретном хосте.
type HostRelease struct {
	Host    string         `json:"host"`
	Release domain.Release `json:"release"`
}

// CurrentRelease читает цель симлинка current на каждом хосте.
func (o *Orchestrator) CurrentRelease(ctx context.Context, cfg config.Deploy) ([]HostRelease, error) {
	c := shell.NewCommands(cfg)

	results, err := o.session.Run(ctx, c.ReadCurrent())
	if err != nil {
		return nil, err
	}

	current := make([]HostRelease, 0, len(results))
	for _, res := range results {
		lines := res.Lines()
		if len(lines) == 0 {
			continue
		}
		target := lines[len(lines)-1]
		current = append(current, HostRelease{
			Host:    res.Host,
			Release: domain.Release{Name: path.Base(target), Path: target},
		})
	}
	return current, nil
}

// nextReleaseName выдаёт имя релиза строго больше предыдущего.
func (o *Orchestrator) nextReleaseName() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := o.now().UTC().Truncate(time.Second)
	if !t.After(o.lastRelease) {
		t = o.lastRelease.Add(time.Second)
	}
	o.lastRelease = t

	return domain.ReleaseName(t)
}

// run выполняет команду от имени пользователя сессии.
func (o *Orchestrator) run(ctx context.Context, command string) error {
	_, err := o.session.Run(ctx, command)
	return err
}

// runLayout выполняет команду структуры/прав: через sudo, если use_sudo.
func (o *Orchestrator) runLayout(ctx context.Context, cfg config.Deploy, command string) error {
	if cfg.UseSudo {
		_, err := o.session.RunPrivileged(ctx, command)
		return err
	}
	return o.run(ctx, command)
}
