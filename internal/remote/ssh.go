package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/shell"
	"github.com/shaiso/Strano/internal/telemetry"
)

// Default configuration values.
const (
	defaultDialTimeout = 30 * time.Second
	defaultTimeout     = 6000 * time.Second
)

// Режимы команд (для метрик и логов).
const (
	modeRun    = "run"
	modeSudo   = "sudo"
	modeUpload = "upload"
)

// SSHSession — Session поверх golang.org/x/crypto/ssh.
//
// Особенности:
//   - SSH-клиенты создаются лениво и переиспользуются до Close
//   - команды на хостах выполняются не более чем в Parallelism потоков
//   - при Parallelism=1 выполнение останавливается на первом упавшем хосте
//   - ошибки нескольких хостов объединяются через multierror
type SSHSession struct {
	hosts       []Host
	user        string
	auth        []ssh.AuthMethod
	hostKeys    ssh.HostKeyCallback
	timeout     time.Duration
	parallelism int
	logger      *slog.Logger
	closers     []io.Closer

	mu      sync.Mutex
	clients map[string]*ssh.Client
	closed  bool
}

// SSHConfig — конфигурация SSHSession.
type SSHConfig struct {
	Hosts           []string
	User            string
	Auth            []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback

	// Timeout — таймаут каждого вызова (default: 6000s).
	Timeout time.Duration

	// Parallelism — сколько хостов обрабатывать одновременно (default: 1).
	Parallelism int

	Logger *slog.Logger
}

// NewSSHSession создаёт сессию. Соединения открываются при первой команде.
func NewSSHSession(cfg SSHConfig) (*SSHSession, error) {
	hosts, err := ParseHosts(cfg.Hosts)
	if err != nil {
		return nil, err
	}
	if len(cfg.Auth) == 0 {
		return nil, ErrNoAuthMethods
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hostKeys := cfg.HostKeyCallback
	if hostKeys == nil {
		return nil, ErrNoHostKeyCallback
	}

	return &SSHSession{
		hosts:       hosts,
		user:        cfg.User,
		auth:        cfg.Auth,
		hostKeys:    hostKeys,
		timeout:     timeout,
		parallelism: parallelism,
		logger:      logger,
		clients:     make(map[string]*ssh.Client),
	}, nil
}

// Dial собирает SSHSession из конфигурации выкладки.
func Dial(cfg config.Deploy, logger *slog.Logger) (*SSHSession, error) {
	if logger == nil {
		logger = slog.Default()
	}

	auth, closer, err := AuthMethods(cfg.SSH, logger)
	if err != nil {
		return nil, err
	}

	hostKeys, err := HostKeyCallback(cfg.SSH)
	if err != nil {
		closer.Close()
		return nil, err
	}

	s, err := NewSSHSession(SSHConfig{
		Hosts:           cfg.Hosts,
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         cfg.Timeout,
		Parallelism:     cfg.Parallelism,
		Logger:          logger,
	})
	if err != nil {
		closer.Close()
		return nil, err
	}
	s.closers = append(s.closers, closer)
	return s, nil
}

// Hosts возвращает имена хостов.
func (s *SSHSession) Hosts() []string {
	names := make([]string, len(s.hosts))
	for i, h := range s.hosts {
		names[i] = h.Name
	}
	return names
}

// Run выполняет команду на всех хостах.
func (s *SSHSession) Run(ctx context.Context, command string) ([]Result, error) {
	return s.runAll(ctx, modeRun, command)
}

// RunPrivileged выполняет команду через sudo на всех хостах.
func (s *SSHSession) RunPrivileged(ctx context.Context, command string) ([]Result, error) {
	return s.runAll(ctx, modeSudo, shell.Sudo(command))
}

// Upload копирует локальный файл на все хосты через `cat > remotePath`.
func (s *SSHSession) Upload(ctx context.Context, localPath, remotePath string) error {
	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	command := "cat > " + shell.Quote(remotePath)
	_, err := fanOut(ctx, s.hosts, s.parallelism, func(ctx context.Context, h Host) (Result, error) {
		f, err := os.Open(localPath)
		if err != nil {
			return Result{Host: h.Name, ExitStatus: -1}, fmt.Errorf("open %s: %w", localPath, err)
		}
		defer f.Close()

		res, err := s.exec(ctx, h, command, f)
		telemetry.ObserveRemoteCommand(modeUpload, err)
		return res, err
	})
	return err
}

// Close закрывает все SSH-соединения.
func (s *SSHSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var merr *multierror.Error
	for addr, c := range s.clients {
		if err := c.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("close %s: %w", addr, err))
		}
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	s.clients = nil

	return merr.ErrorOrNil()
}

// runAll выполняет команду на всех хостах с таймаутом сессии.
func (s *SSHSession) runAll(ctx context.Context, mode, command string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return fanOut(ctx, s.hosts, s.parallelism, func(ctx context.Context, h Host) (Result, error) {
		logger := telemetry.WithHost(s.logger, h.Name)
		logger.Debug("remote command", "mode", mode, "command", command)

		res, err := s.exec(ctx, h, command, nil)
		telemetry.ObserveRemoteCommand(mode, err)
		if err != nil {
			logger.Debug("remote command failed", "exit_status", res.ExitStatus, "error", err)
		}
		return res, err
	})
}

// exec выполняет одну команду на одном хосте.
func (s *SSHSession) exec(ctx context.Context, h Host, command string, stdin io.Reader) (Result, error) {
	res := Result{Host: h.Name, ExitStatus: -1}

	client, sess, err := s.newSession(h)
	if err != nil {
		return res, err
	}
	defer sess.Close()

	var out syncBuffer
	sess.Stdout = &out
	sess.Stderr = &out
	if stdin != nil {
		sess.Stdin = stdin
	}

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(command)
	}()

	select {
	case <-ctx.Done():
		// Прерываем команду; горутина завершится после закрытия сессии
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()
		res.Output = out.String()
		return res, fmt.Errorf("%s: %w", h.Name, ctx.Err())

	case err := <-done:
		res.Output = out.String()
		if err == nil {
			res.ExitStatus = 0
			return res, nil
		}

		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitStatus()
			return res, &CommandError{
				Host:       h.Name,
				Command:    command,
				ExitStatus: res.ExitStatus,
				Output:     res.Output,
			}
		}

		// Транспорт оборвался посреди команды: повторять её нельзя,
		// но следующий вызов подключится заново
		s.evict(h.Addr, client)
		return res, fmt.Errorf("%s: run command: %w", h.Name, err)
	}
}

// newSession открывает SSH-сессию на хосте.
//
// Если кэшированное соединение умерло, оно закрывается и хост
// переподключается один раз.
func (s *SSHSession) newSession(h Host) (*ssh.Client, *ssh.Session, error) {
	client, err := s.client(h)
	if err != nil {
		return nil, nil, err
	}

	sess, err := client.NewSession()
	if err == nil {
		return client, sess, nil
	}

	s.logger.Debug("ssh connection lost, redialing", "host", h.Name, "error", err)
	s.evict(h.Addr, client)

	client, err = s.client(h)
	if err != nil {
		return nil, nil, err
	}
	sess, err = client.NewSession()
	if err != nil {
		s.evict(h.Addr, client)
		return nil, nil, fmt.Errorf("%s: new session: %w", h.Name, err)
	}
	return client, sess, nil
}

// client возвращает (или создаёт) SSH-клиент для хоста.
//
// Dial выполняется без блокировки, чтобы хосты подключались параллельно.
func (s *SSHSession) client(h Host) (*ssh.Client, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if c, ok := s.clients[h.Addr]; ok {
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	user := h.User
	if user == "" {
		user = s.user
	}

	c, err := ssh.Dial("tcp", h.Addr, &ssh.ClientConfig{
		User:            user,
		Auth:            s.auth,
		HostKeyCallback: s.hostKeys,
		Timeout:         defaultDialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", h.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		c.Close()
		return nil, ErrSessionClosed
	}
	if existing, ok := s.clients[h.Addr]; ok {
		// Хост успел подключиться в другой горутине
		c.Close()
		return existing, nil
	}

	s.logger.Debug("ssh connected", "host", h.Name, "user", user)
	s.clients[h.Addr] = c
	return c, nil
}

// evict закрывает клиент и убирает его из кэша, если он там ещё лежит.
func (s *SSHSession) evict(addr string, c *ssh.Client) {
	s.mu.Lock()
	if cur, ok := s.clients[addr]; ok && cur == c {
		delete(s.clients, addr)
	}
	s.mu.Unlock()

	_ = c.Close()
}

// fanOut выполняет fn на каждом хосте.
//
// limit=1 — последовательно, с остановкой на первой ошибке.
// limit>1 — параллельно; ошибки всех хостов объединяются.
// Результаты возвращаются в порядке хостов.
func fanOut(ctx context.Context, hosts []Host, limit int, fn func(ctx context.Context, h Host) (Result, error)) ([]Result, error) {
	if limit <= 1 {
		results := make([]Result, 0, len(hosts))
		for _, h := range hosts {
			res, err := fn(ctx, h)
			results = append(results, res)
			if err != nil {
				return results, err
			}
		}
		return results, nil
	}

	results := make([]Result, len(hosts))
	errs := make([]error, len(hosts))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, h := range hosts {
		g.Go(func() error {
			results[i], errs[i] = fn(ctx, h)
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr == nil {
		return results, nil
	}
	// Одна ошибка возвращается как есть, без обёртки
	if len(merr.Errors) == 1 {
		return results, merr.Errors[0]
	}
	return results, merr
}

// syncBuffer — bytes.Buffer с блокировкой: stdout и stderr
// копируются x/crypto/ssh из разных горутин.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
