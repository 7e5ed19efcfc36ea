package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/repo"
)

// NewHistoryCmd создаёт команду просмотра истории выкладок.
func NewHistoryCmd(appFn AppFunc, outputFn func() *Output) *cobra.Command {
	var task string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show deployment history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			if app.History == nil {
				return ErrNoHistory
			}
			out := outputFn()

			filter := repo.DeploymentFilter{Task: task, Limit: limit}
			if status != "" {
				filter.Status = domain.ParseDeploymentStatus(strings.ToUpper(status))
				if filter.Status == "" {
					return fmt.Errorf("unknown status %q", status)
				}
			}

			deployments, err := app.History.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			rows := make([][]string, len(deployments))
			for i := range deployments {
				rows[i] = deploymentRow(&deployments[i])
			}

			out.Print(deploymentHeaders, rows, deployments)
			return nil
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "Filter by task name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}
