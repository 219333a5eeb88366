// cmd/weather-monitor/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"weather-alert-bot/application/bootstrap"
	"weather-alert-bot/internal/config"
	"weather-alert-bot/pkg/logger"
)

const defaultConfigPath = "config.env"

type options struct {
	configPath string
	testPush   bool
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "weather-monitor",
		Short: "Weather monitor with daily forecast and rain alerts",
		Long: `weather-monitor fetches the QWeather forecast for one location,
pushes a daily summary and alerts about upcoming heavy rain to a Feishu webhook.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.SetErr(stderr)

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to the config file")
	cmd.Flags().BoolVar(&opts.testPush, "test", false, "send one test message and exit")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	settings, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(logger.Options{
		FilePath:   settings.Log.File,
		Level:      settings.Log.Level,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	prev := logger.GetLogger()
	logger.SetGlobal(log)
	defer func() {
		logger.SetGlobal(prev)
		log.Close()
	}()

	app, err := bootstrap.NewAppBuilder().WithSettings(settings).Build(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if opts.testPush {
		logger.Info("🧪 Отправка тестового сообщения...")
		if err := app.TestPush(ctx); err != nil {
			logger.Error("❌ Тестовое сообщение не отправлено: %v", err)
			return fmt.Errorf("test push: %w", err)
		}
		logger.Info("✅ Тестовое сообщение отправлено")
		return nil
	}

	return app.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}
