package remote

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// Session — выполнение shell-команд на одном или нескольких хостах.
//
// Одна логическая команда выполняется на всех хостах сессии.
// Как именно (последовательно или параллельно) — решает реализация.
// Таймаут сессии применяется к каждому вызову.
type Session interface {
	// Run выполняет команду от имени пользователя сессии.
	Run(ctx context.Context, command string) ([]Result, error)

	// RunPrivileged выполняет команду с повышенными правами (sudo).
	RunPrivileged(ctx context.Context, command string) ([]Result, error)

	// Upload копирует локальный файл на все хосты.
	Upload(ctx context.Context, localPath, remotePath string) error

	// Hosts возвращает имена хостов сессии.
	Hosts() []string
}

// Result — результат команды на одном хосте.
type Result struct {
	// Host — хост в том виде, в каком он задан в конфигурации.
	Host string `json:"host"`

	// Output — объединённые stdout и stderr.
	Output string `json:"output"`

	// ExitStatus — код завершения; -1, если команда не завершилась.
	ExitStatus int `json:"exit_status"`
}

// Lines возвращает непустые строки вывода.
func (r Result) Lines() []string {
	var lines []string
	for _, line := range strings.Split(r.Output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// CommandError — команда завершилась с ненулевым кодом.
type CommandError struct {
	Host       string
	Command    string
	ExitStatus int
	Output     string
}

// Error реализует интерфейс error.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: command %q exited with status %d", e.Host, e.Command, e.ExitStatus)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + lastLine(out)
	}
	return msg
}

// Host — разобранный адрес хоста.
type Host struct {
	// Name — исходная строка из конфигурации.
	Name string

	// User — пользователь; пустой, если не задан в строке.
	User string

	// Addr — host:port для dial.
	Addr string
}

// ParseHost разбирает строку вида [user@]host[:port].
func ParseHost(s string) (Host, error) {
	h := Host{Name: s}

	rest := strings.TrimSpace(s)
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		h.User = rest[:i]
		rest = rest[i+1:]
	}
	if rest == "" {
		return Host{}, fmt.Errorf("%w: %q", ErrInvalidHost, s)
	}

	if _, _, err := net.SplitHostPort(rest); err == nil {
		h.Addr = rest
		return h, nil
	}

	h.Addr = net.JoinHostPort(strings.Trim(rest, "[]"), "22")
	return h, nil
}

// ParseHosts разбирает список хостов.
func ParseHosts(hosts []string) ([]Host, error) {
	parsed := make([]Host, 0, len(hosts))
	for _, s := range hosts {
		h, err := ParseHost(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, h)
	}
	return parsed, nil
}

func lastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
