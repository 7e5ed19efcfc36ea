package shell

import (
	"bytes"
	"text/template"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/domain"
)

// Шаблоны команд выкладки.
const (
	tmplMkdirLayout   = `mkdir -p {{ q (path .DomainPath "releases") }} {{ q (path .DomainPath "shared") }}`
	tmplMkdirStorage  = `mkdir -p {{ q .ReleasesPath }} {{ q .SharedPath }}`
	tmplChown         = `chown -R {{ q (owner .Owner .Group) }} {{ q .DomainPath }}`
	tmplChmod         = `chmod -R g+w {{ q .DomainPath }}`
	tmplClone         = `cd {{ q .ReleasesPath }} && git clone -b {{ q .GitBranch }} -q {{ q .GitClone }} {{ q .Release }} && cd {{ q .Release }} && rm -rf .git*`
	tmplLinkDirMkdir  = `mkdir -p {{ q (path .Release .Link) }}`
	tmplLinkDirRemove = `rm -rf {{ q (path .Release .Link) }}`
	tmplLinkDir       = `ln -s {{ q (path .SharedPath .Link) }} {{ q (path .Release .Link) }}`
	tmplLinkFile      = `ln -sf {{ q (path .SharedPath .Link) }} {{ q (path .Release .Link) }}`
	tmplInstall       = `cd {{ q .Release }} && {{ .Command }}`
	tmplSwapCurrent   = `ln -sfn {{ q .Release }} {{ q .TmpLink }} && mv -Tf {{ q .TmpLink }} {{ q .CurrentPath }}`
	tmplRollback      = `ln -sfn {{ q .Release }} {{ q .TmpLink }} && mv -Tf {{ q .TmpLink }} {{ q .CurrentPath }} && rm -rf {{ qall .Paths }}`
	tmplTouch         = `touch {{ q (path .Release .Target) }}`
	tmplRemove        = `rm -rf {{ qall .Paths }}`
	tmplListReleases  = `ls -1 {{ q .ReleasesPath }}`
	tmplReadCurrent   = `readlink {{ q .CurrentPath }}`
	tmplSudo          = `sudo -n sh -c {{ q .Command }}`
)

// compiled — шаблоны, разобранные один раз при старте.
var compiled = template.Must(template.New("commands").Funcs(templateFuncs).Parse(""))

func init() {
	for name, body := range map[string]string{
		"mkdir_layout":    tmplMkdirLayout,
		"mkdir_storage":   tmplMkdirStorage,
		"chown":           tmplChown,
		"chmod":           tmplChmod,
		"clone":           tmplClone,
		"link_dir_mkdir":  tmplLinkDirMkdir,
		"link_dir_remove": tmplLinkDirRemove,
		"link_dir":        tmplLinkDir,
		"link_file":       tmplLinkFile,
		"install":         tmplInstall,
		"swap_current":    tmplSwapCurrent,
		"rollback":        tmplRollback,
		"touch":           tmplTouch,
		"remove":          tmplRemove,
		"list_releases":   tmplListReleases,
		"read_current":    tmplReadCurrent,
		"sudo":            tmplSudo,
	} {
		template.Must(compiled.New(name).Parse(body))
	}
}

// Commands строит shell-команды для конкретной конфигурации.
type Commands struct {
	base Vars
}

// NewCommands создаёт построитель команд.
func NewCommands(cfg config.Deploy) *Commands {
	return &Commands{
		base: Vars{
			DomainPath:   cfg.DomainPath,
			ReleasesPath: cfg.ReleasesPath,
			SharedPath:   cfg.SharedPath,
			CurrentPath:  cfg.CurrentPath,
			GitClone:     cfg.GitClone,
			GitBranch:    cfg.GitBranch,
			Owner:        cfg.RemoteOwner,
			Group:        cfg.RemoteGroup,
		},
	}
}

// varsFor возвращает переменные для релиза.
func (c *Commands) varsFor(release domain.Release) Vars {
	v := c.base
	v.Release = release.Path
	v.ReleaseName = release.Name
	return v
}

// MkdirLayout создаёт releases/ и shared/ внутри domain_path.
func (c *Commands) MkdirLayout() string {
	return execute("mkdir_layout", c.base)
}

// MkdirStorage создаёт настроенные releases_path и shared_path.
func (c *Commands) MkdirStorage() string {
	return execute("mkdir_storage", c.base)
}

// Chown рекурсивно выставляет владельца domain_path.
func (c *Commands) Chown() string {
	return execute("chown", c.base)
}

// Chmod даёт группе права на запись в domain_path.
func (c *Commands) Chmod() string {
	return execute("chmod", c.base)
}

// Clone клонирует ветку в каталог релиза и удаляет метаданные git.
func (c *Commands) Clone(release domain.Release) string {
	return execute("clone", c.varsFor(release))
}

// LinkDir возвращает три команды для shared-каталога:
// создать заглушку, удалить её, поставить симлинк.
func (c *Commands) LinkDir(release domain.Release, dir string) []string {
	v := c.varsFor(release)
	v.Link = dir
	return []string{
		execute("link_dir_mkdir", v),
		execute("link_dir_remove", v),
		execute("link_dir", v),
	}
}

// LinkFile ставит симлинк на shared-файл.
func (c *Commands) LinkFile(release domain.Release, file string) string {
	v := c.varsFor(release)
	v.Link = file
	return execute("link_file", v)
}

// Install выполняет команду установки зависимостей внутри релиза.
func (c *Commands) Install(release domain.Release, command string) string {
	v := c.varsFor(release)
	v.Command = command
	return execute("install", v)
}

// SwapCurrent атомарно переключает current на релиз.
//
// Симлинк создаётся рядом под временным именем и переименовывается
// поверх current: rename(2) атомарен, current не пропадает ни на миг.
func (c *Commands) SwapCurrent(release domain.Release) string {
	v := c.varsFor(release)
	v.TmpLink = tmpLink(c.base.CurrentPath, release.Name)
	return execute("swap_current", v)
}

// Rollback переключает current на previous и удаляет latest.
func (c *Commands) Rollback(previous, latest domain.Release) string {
	v := c.varsFor(previous)
	v.TmpLink = tmpLink(c.base.CurrentPath, previous.Name)
	v.Paths = []string{latest.Path}
	return execute("rollback", v)
}

// Touch обновляет mtime файла внутри каталога dir (релиз или current).
func (c *Commands) Touch(dir, target string) string {
	v := c.base
	v.Release = dir
	v.Target = target
	return execute("touch", v)
}

// Remove удаляет перечисленные пути.
func (c *Commands) Remove(paths []string) string {
	v := c.base
	v.Paths = paths
	return execute("remove", v)
}

// ListReleases выводит содержимое releases_path по одному имени в строке.
func (c *Commands) ListReleases() string {
	return execute("list_releases", c.base)
}

// ReadCurrent выводит цель симлинка current.
func (c *Commands) ReadCurrent() string {
	return execute("read_current", c.base)
}

// Sudo оборачивает команду для выполнения с повышенными правами.
func Sudo(command string) string {
	return execute("sudo", Vars{Command: command})
}

func tmpLink(current, name string) string {
	return current + "." + name + ".tmp"
}

// execute рендерит встроенный шаблон.
//
// Встроенные шаблоны статические и работают только со строковыми
// полями Vars, поэтому ошибка здесь — это ошибка программиста.
func execute(name string, v Vars) string {
	var buf bytes.Buffer
	if err := compiled.ExecuteTemplate(&buf, name, v); err != nil {
		panic(err)
	}
	return buf.String()
}
