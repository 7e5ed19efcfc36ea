package remote

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/shaiso/Strano/internal/config"
)

// AuthMethods собирает методы аутентификации: ssh-agent и ключ из файла.
//
// Возвращённый io.Closer закрывает соединение с агентом (если оно было).
func AuthMethods(cfg config.SSH, logger *slog.Logger) ([]ssh.AuthMethod, io.Closer, error) {
	var methods []ssh.AuthMethod
	var closer io.Closer = nopCloser{}

	if cfg.AgentEnabled() {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			conn, err := net.Dial("unix", sock)
			if err != nil {
				logger.Warn("ssh-agent not available", "socket", sock, "error", err)
			} else {
				closer = conn
				methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			}
		}
	}

	if cfg.KeyFile != "" {
		signer, err := LoadSigner(cfg.KeyFile, cfg.KeyringService)
		switch {
		case err == nil:
			methods = append(methods, ssh.PublicKeys(signer))
		case errors.Is(err, os.ErrNotExist) && len(methods) > 0:
			// Ключа нет, но есть агент — этого достаточно
			logger.Debug("ssh key file not found, using agent only", "key_file", cfg.KeyFile)
		default:
			closer.Close()
			return nil, nil, err
		}
	}

	if len(methods) == 0 {
		closer.Close()
		return nil, nil, ErrNoAuthMethods
	}

	return methods, closer, nil
}

// LoadSigner читает приватный ключ.
//
// Если ключ зашифрован, пароль берётся из системного keyring:
// service — имя сервиса, user — путь к ключу.
func LoadSigner(keyFile, service string) (ssh.Signer, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", keyFile, err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err == nil {
		return signer, nil
	}

	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, fmt.Errorf("parse key %s: %w", keyFile, err)
	}

	passphrase, err := keyring.Get(service, keyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPassphraseRequired, keyFile, err)
	}

	signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("parse key %s with passphrase: %w", keyFile, err)
	}
	return signer, nil
}

// StorePassphrase сохраняет пароль ключа в системный keyring.
func StorePassphrase(service, keyFile, passphrase string) error {
	if err := keyring.Set(service, keyFile, passphrase); err != nil {
		return fmt.Errorf("store passphrase: %w", err)
	}
	return nil
}

// HostKeyCallback проверяет ключи хостов по known_hosts.
func HostKeyCallback(cfg config.SSH) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	cb, err := knownhosts.New(cfg.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", cfg.KnownHosts, err)
	}
	return cb, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
