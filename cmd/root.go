package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cell-guard/config"
)

var (
	cfg       *config.Config
	logFormat string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "cell-guard",
	Short:         "Контроль допуска и присутствия оператора у станка",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		return setupLogger(logFormat, logLevel)
	},
}

func setupLogger(format, level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	}
	return nil
}

// Execute запускает CLI с контекстом, который отменяется по Ctrl+C или SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "формат логов: console или json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "уровень логов (по умолчанию LOG_LEVEL)")
	rootCmd.AddCommand(runCmd, actuatorCmd)
}
