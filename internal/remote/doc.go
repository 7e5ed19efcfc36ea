// Package remote выполняет shell-команды на целевых хостах по SSH.
//
// Основные компоненты:
//   - Session — интерфейс, через который работает оркестратор релизов
//   - SSHSession — реализация поверх golang.org/x/crypto/ssh
//   - AuthMethods/LoadSigner — ssh-agent, ключ из файла, пароль из keyring
//
// Одна логическая команда выполняется на каждом хосте сессии.
// Ненулевой код возврата превращается в *CommandError.
package remote
