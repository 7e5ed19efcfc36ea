package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/tasks"
)

// AppFunc возвращает открытое окружение команд.
type AppFunc func(ctx context.Context) (*App, error)

// NewTaskCmds создаёт по команде на каждую задачу реестра.
func NewTaskCmds(registry *tasks.Registry, appFn AppFunc, outputFn func() *Output) []*cobra.Command {
	names := registry.Names()
	cmds := make([]*cobra.Command, 0, len(names))

	for _, name := range names {
		task, err := registry.Get(name)
		if err != nil {
			continue
		}

		var aliases []string
		if dashed := strings.ReplaceAll(task.Name, "_", "-"); dashed != task.Name {
			aliases = append(aliases, dashed)
		}

		cmds = append(cmds, &cobra.Command{
			Use:     task.Name,
			Aliases: aliases,
			Short:   task.Description,
			Args:    cobra.NoArgs,
			RunE:    TaskRunE(task.Name, appFn, outputFn),
		})
	}

	return cmds
}

// TaskRunE возвращает RunE, выполняющий задачу name.
func TaskRunE(name string, appFn AppFunc, outputFn func() *Output) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := appFn(cmd.Context())
		if err != nil {
			return err
		}
		out := outputFn()

		d, err := app.Runner.Run(cmd.Context(), app.Config, name)
		if d != nil {
			out.Print(deploymentHeaders, [][]string{deploymentRow(d)}, d)
		}
		if err != nil {
			return err
		}

		msg := fmt.Sprintf("%s finished in %s", name, d.Duration().Round(time.Millisecond))
		if d.Release != "" {
			msg += ", release " + d.Release
		}
		out.Success(msg)
		return nil
	}
}

var deploymentHeaders = []string{"ID", "TASK", "STATUS", "RELEASE", "REVISION", "HOSTS", "STARTED", "ERROR"}

func deploymentRow(d *domain.Deployment) []string {
	return []string{
		d.ID.String(),
		d.Task,
		d.Status.String(),
		d.Release,
		shortRevision(d.Revision),
		strconv.Itoa(len(d.Hosts)),
		formatTime(d.StartedAt),
		d.Error,
	}
}
