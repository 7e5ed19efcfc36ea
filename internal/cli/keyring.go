package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Strano/internal/remote"
)

// NewKeyringCmd создаёт команды работы с паролем SSH-ключа в системном keyring.
func NewKeyringCmd(configFn ConfigFunc, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the SSH key passphrase in the system keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the passphrase for ssh.key_file (read from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFn()
			if err != nil {
				return err
			}
			out := outputFn()

			if cfg.SSH.KeyFile == "" {
				return errors.New("ssh.key_file is not set")
			}

			passphrase, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}

			if err := remote.StorePassphrase(cfg.SSH.KeyringService, cfg.SSH.KeyFile, passphrase); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("passphrase for %s stored in keyring service %q", cfg.SSH.KeyFile, cfg.SSH.KeyringService))
			return nil
		},
	})

	return cmd
}

// readSecret читает первую строку без перевода строки.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read passphrase: %w", err)
	}

	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("empty passphrase")
	}
	return secret, nil
}
