package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Strano/internal/mq"
)

// NewEventsCmd создаёт команду просмотра событий выкладок в реальном времени.
func NewEventsCmd(appFn AppFunc, outputFn func() *Output) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail deployment events from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn(cmd.Context())
			if err != nil {
				return err
			}
			if app.MQ == nil {
				return ErrNoEvents
			}
			out := outputFn()

			out.Info(fmt.Sprintf("waiting for events on %s (Ctrl-C to stop)", mq.ExchangeDeployments))

			tail := mq.NewTail(app.MQ, mq.RoutingKey(pattern), app.Logger)
			err = tail.Run(cmd.Context(), eventPrinter(out))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", string(mq.RoutingKeyAll), "Routing key pattern, e.g. deployment.failed")

	return cmd
}

// eventPrinter выводит каждое событие одной строкой.
func eventPrinter(out *Output) mq.EventHandler {
	return func(_ context.Context, e mq.Event) {
		if out.JSONMode() {
			out.JSON(e.Deployment)
			return
		}
		out.Line(formatEvent(e.Timestamp, e.Deployment))
	}
}

func formatEvent(ts time.Time, e mq.DeploymentEvent) string {
	line := fmt.Sprintf("%s  %-9s  %-11s  %s  hosts=%d",
		ts.UTC().Format(time.RFC3339), e.Status, e.Task, e.DeploymentID, len(e.Hosts))
	if e.Release != "" {
		line += "  release=" + e.Release
	}
	if e.Revision != "" {
		line += "  revision=" + shortRevision(e.Revision)
	}
	if e.DurationMs > 0 {
		line += "  duration=" + (time.Duration(e.DurationMs) * time.Millisecond).String()
	}
	if e.Error != "" {
		line += "  error=" + e.Error
	}
	return line
}
