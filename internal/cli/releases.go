package cli

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"
)

// ReleaseInfo — строка вывода `strano releases`.
type ReleaseInfo struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	CurrentOn []string `json:"current_on,omitempty"`
}

// NewReleasesCmd создаёт команду просмотра релизов на хостах.
func NewReleasesCmd(appFn AppFunc, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "releases",
		Short: "List releases and show which one is current on each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			out := outputFn()

			names, err := app.Orchestrator.ListReleases(cmd.Context(), app.Config)
			if err != nil {
				return err
			}

			current, err := app.Orchestrator.CurrentRelease(cmd.Context(), app.Config)
			if err != nil {
				return err
			}

			currentOn := make(map[string][]string)
			for _, hr := range current {
				currentOn[hr.Release.Name] = append(currentOn[hr.Release.Name], hr.Host)
			}

			infos := make([]ReleaseInfo, len(names))
			rows := make([][]string, len(names))
			for i, name := range names {
				infos[i] = ReleaseInfo{
					Name:      name,
					Path:      path.Join(app.Config.ReleasesPath, name),
					CurrentOn: currentOn[name],
				}

				marker := ""
				if len(infos[i].CurrentOn) > 0 {
					marker = "* " + strings.Join(infos[i].CurrentOn, ",")
				}
				rows[i] = []string{name, marker}
			}

			out.Print([]string{"RELEASE", "CURRENT"}, rows, infos)
			if len(names) == 0 {
				out.Info(fmt.Sprintf("no releases in %s", app.Config.ReleasesPath))
			}
			return nil
		},
	}
}
