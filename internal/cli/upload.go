package cli

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"
)

// NewUploadCmd создаёт команду копирования файла на все хосты.
//
// Относительный REMOTE считается от shared_path: так обычно
// выкладываются файлы из shared_files (например, local_settings.py).
func NewUploadCmd(appFn AppFunc, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "upload LOCAL REMOTE",
		Short: "Upload a local file to every host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			out := outputFn()

			remotePath := args[1]
			if !path.IsAbs(remotePath) {
				remotePath = path.Join(app.Config.SharedPath, remotePath)
			}

			if err := app.Session.Upload(cmd.Context(), args[0], remotePath); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("uploaded %s to %s on %d host(s)", args[0], remotePath, len(app.Session.Hosts())))
			return nil
		},
	}
}
