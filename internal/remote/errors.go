package remote

import "errors"

// Ошибки удалённого выполнения.
var (
	// ErrInvalidHost — строка хоста не разбирается.
	ErrInvalidHost = errors.New("invalid host")

	// ErrNoAuthMethods — не найден ни ключ, ни ssh-agent.
	ErrNoAuthMethods = errors.New("no ssh auth methods available")

	// ErrPassphraseRequired — ключ зашифрован, а пароль в keyring не найден.
	ErrPassphraseRequired = errors.New("private key is encrypted and no passphrase found in keyring")

	// ErrNoHostKeyCallback — не задана проверка ключей хостов.
	ErrNoHostKeyCallback = errors.New("host key callback is required")

	// ErrSessionClosed — сессия уже закрыта.
	ErrSessionClosed = errors.New("session closed")
)
