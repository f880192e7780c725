package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	telegram "cell-guard/internal/api"
	"cell-guard/internal/container"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить цикл кадров, веб-поток и бота",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("http-addr"); addr != "" {
			cfg.HTTPAddr = addr
		}

		// Собираем сервисы приложения
		appContainer, err := container.New(cfg, container.Deps{})
		if err != nil {
			return err
		}
		defer appContainer.Close()

		g, ctx := errgroup.WithContext(cmd.Context())

		if cfg.TelegramToken != "" {
			bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.SubscriberService, appContainer.Pipeline, cfg.TelegramAdminIDs)
			if err != nil {
				return err
			}
			appContainer.Pipeline.SetNotifier(bot)
			g.Go(func() error { return bot.Run(ctx) })
		} else {
			log.Warn().Msg("TELEGRAM_TOKEN is empty, bot is disabled")
		}

		g.Go(func() error { return appContainer.Display.Run(ctx) })
		g.Go(func() error { return appContainer.Pipeline.Run(ctx) })

		log.Info().
			Str("face_stream", cfg.FaceStreamURI).
			Str("detection_stream", cfg.DetectionStreamURI).
			Str("absence_action", string(cfg.AbsenceAction)).
			Msg("cell guard is running")
		return g.Wait()
	},
}

func init() {
	runCmd.Flags().String("http-addr", "", "адрес веб-потока (по умолчанию HTTP_ADDR)")
}
