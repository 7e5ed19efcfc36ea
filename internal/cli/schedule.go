package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/scheduler"
)

// ConfigFunc возвращает загруженную конфигурацию.
type ConfigFunc func() (config.Deploy, error)

// NewScheduleCmd создаёт группу команд для просмотра расписаний.
func NewScheduleCmd(configFn ConfigFunc, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect scheduled tasks",
	}

	cmd.AddCommand(newScheduleListCmd(configFn, outputFn, time.Now))

	return cmd
}

func newScheduleListCmd(configFn ConfigFunc, outputFn func() *Output, now func() time.Time) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schedules with their next run time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFn()
			if err != nil {
				return err
			}
			out := outputFn()

			schedules, err := scheduler.FromConfig(cfg.Schedules, now())
			if err != nil {
				return err
			}

			headers := []string{"NAME", "TASK", "CRON", "TIMEZONE", "NEXT_DUE"}
			rows := make([][]string, len(schedules))
			for i, s := range schedules {
				tz := s.Timezone
				if tz == "" {
					tz = "UTC"
				}
				rows[i] = []string{s.Name, s.Task, s.CronExpr, tz, formatTime(s.NextDueAt)}
			}

			out.Print(headers, rows, schedules)
			return nil
		},
	}
}
