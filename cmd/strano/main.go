// Strano — выкладка приложений по схеме releases/shared/current.
//
// Использование:
//
//	strano [--config strano.yaml] [--json] [command]
//
// Без команды выполняется deploy.
//
// Команды:
//
//	setup, deploy, update, update_code, restart, cleanup, rollback
//	releases  Релизы на хостах и текущий релиз
//	upload    Копирование файла на все хосты
//	history   История выкладок (PostgreSQL)
//	events    События выкладок в реальном времени (RabbitMQ)
//	schedule  Расписания
//	keyring   Пароль SSH-ключа в системном keyring
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Strano/internal/cli"
	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/tasks"
	"github.com/shaiso/Strano/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string
	var jsonOutput bool

	// Логи в stderr: stdout остаётся для данных
	logger := telemetry.SetupLoggerTo(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cfg *config.Deploy
	configFn := func() (config.Deploy, error) {
		if cfg == nil {
			loaded, err := config.Load(configPath)
			if err != nil {
				return config.Deploy{}, err
			}
			cfg = &loaded
		}
		return *cfg, nil
	}

	var app *cli.App
	appFn := func(ctx context.Context) (*cli.App, error) {
		if app != nil {
			return app, nil
		}
		deploy, err := configFn()
		if err != nil {
			return nil, err
		}
		opened, err := cli.Open(ctx, deploy, logger)
		if err != nil {
			return nil, err
		}
		app = opened
		return app, nil
	}

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd := &cobra.Command{
		Use:           "strano",
		Short:         "Strano — release-based deployment over SSH",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          cli.TaskRunE(tasks.DefaultTask, appFn, outputFn),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to the deployment config")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(cli.NewTaskCmds(tasks.DefaultRegistry(), appFn, outputFn)...)
	rootCmd.AddCommand(
		cli.NewReleasesCmd(appFn, outputFn),
		cli.NewUploadCmd(appFn, outputFn),
		cli.NewHistoryCmd(appFn, outputFn),
		cli.NewEventsCmd(appFn, outputFn),
		cli.NewScheduleCmd(configFn, outputFn),
		cli.NewKeyringCmd(configFn, outputFn),
	)

	err := rootCmd.ExecuteContext(ctx)

	if app != nil {
		if closeErr := app.Close(); closeErr != nil {
			logger.Warn("failed to close connections", "error", closeErr)
		}
	}

	if err != nil {
		outputFn().Error(err.Error())
		cancel()
		os.Exit(1)
	}
}
