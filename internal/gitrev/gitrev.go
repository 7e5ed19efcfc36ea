// Package gitrev определяет ревизию головы ветки без клонирования.
//
// Используется Runner'ом, чтобы записать в историю, какой коммит
// был выложен: сам checkout на хостах удаляет .git.
package gitrev

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/config"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/transport"
	gitssh "gopkg.in/src-d/go-git.v4/plumbing/transport/ssh"
	"gopkg.in/src-d/go-git.v4/storage/memory"
)

// ErrBranchNotFound — ветки нет на удалённом репозитории.
var ErrBranchNotFound = errors.New("branch not found on remote")

// Resolver выполняет ls-remote через go-git.
type Resolver struct {
	auth transport.AuthMethod
}

// NewResolver создаёт Resolver. auth может быть nil для публичных репозиториев.
func NewResolver(auth transport.AuthMethod) *Resolver {
	return &Resolver{auth: auth}
}

// SSHAuth строит аутентификацию go-git из того же ключа, что и SSH-сессия.
func SSHAuth(user string, signer ssh.Signer, hostKeys ssh.HostKeyCallback) transport.AuthMethod {
	if user == "" {
		user = gitssh.DefaultUsername
	}
	return &gitssh.PublicKeys{
		User:   user,
		Signer: signer,
		HostKeyCallbackHelper: gitssh.HostKeyCallbackHelper{
			HostKeyCallback: hostKeys,
		},
	}
}

// Resolve возвращает хэш коммита, на который указывает ветка.
func (r *Resolver) Resolve(ctx context.Context, url, branch string) (string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	})

	type listResult struct {
		refs []*plumbing.Reference
		err  error
	}

	// go-git v4 не принимает context в List
	done := make(chan listResult, 1)
	go func() {
		refs, err := remote.List(&git.ListOptions{Auth: r.auth})
		done <- listResult{refs: refs, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("ls-remote %s: %w", url, res.err)
		}
		return FindBranch(res.refs, branch)
	}
}

// FindBranch ищет refs/heads/<branch> среди ссылок.
func FindBranch(refs []*plumbing.Reference, branch string) (string, error) {
	name := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == name && ref.Type() == plumbing.HashReference {
			return ref.Hash().String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
}
