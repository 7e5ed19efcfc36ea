package shell

import (
	"path"
	"text/template"

	"github.com/alessio/shellescape"
)

// Vars — данные для встроенных шаблонов команд.
//
// Пользовательские команды (pip_install_command, restart_cmd) не
// рендерятся: они подставляются через Command как есть.
type Vars struct {
	DomainPath   string
	ReleasesPath string
	SharedPath   string
	CurrentPath  string

	// Release — путь к каталогу релиза, ReleaseName — его имя.
	Release     string
	ReleaseName string

	GitClone  string
	GitBranch string

	Owner string
	Group string

	// Link — относительный путь из shared_dirs/shared_files.
	Link string

	// Target — относительный путь внутри релиза (wsgi_path).
	Target string

	// TmpLink — временный симлинк для атомарной замены current.
	TmpLink string

	// Paths — список путей (для rm -rf).
	Paths []string

	// Command — произвольная команда (install, sudo).
	Command string
}

// templateFuncs — функции, доступные в шаблонах команд.
var templateFuncs = template.FuncMap{
	// q — экранирует аргумент для POSIX shell
	"q": shellescape.Quote,

	// qall — экранирует и объединяет аргументы через пробел
	"qall": func(items []string) string {
		return shellescape.QuoteCommand(items)
	},

	// path — объединяет части пути на удалённом хосте
	"path": func(elem ...string) string {
		return path.Join(elem...)
	},

	// owner — "user:group" для chown
	"owner": func(user, group string) string {
		return user + ":" + group
	},
}

// Quote экранирует один аргумент.
func Quote(s string) string {
	return shellescape.Quote(s)
}
