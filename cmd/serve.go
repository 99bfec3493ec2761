package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"objdetect-node/internal/api/rest"
	telegram "objdetect-node/internal/api/telegram"
	"objdetect-node/internal/infrastructure/vision"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the flow: HTTP input and, with TELEGRAM_TOKEN set, the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, c, log, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := rest.NewServer(cfg.AllowFilePaths, log)
	for _, n := range c.Nodes {
		api.AddNode(n, c.Hosts[n.ID()])
	}

	srv := &http.Server{
		Handler:      api.Router(),
		Addr:         cfg.HTTPAddr,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		// Бот работает с первым узлом потока
		node := c.Nodes[0]
		bot, err = telegram.NewBot(cfg.TelegramToken, node, c.Hosts[node.ID()], vision.NewAnnotator(), log)
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if bot != nil {
		g.Go(func() error {
			log.Info().Msg("bot is running")
			return bot.Run(ctx)
		})
	}
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
