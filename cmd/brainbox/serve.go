package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"brainbox/internal/bot"
	"brainbox/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, if configured, the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	svc, err := a.openServices()
	if err != nil {
		return err
	}
	defer svc.store.Close()

	if !a.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	server := web.NewServer(web.Services{
		Auth:     svc.auth,
		Projects: svc.projects,
		Tasks:    svc.tasks,
		Data:     svc.data,
	}, web.Options{
		CookieName:   a.cfg.Auth.CookieName,
		CookieSecure: a.cfg.Auth.CookieSecure,
		Debug:        a.cfg.Debug,
	})
	httpServer := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var telegramBot *bot.Bot
	if a.cfg.Telegram.Token != "" {
		telegramBot, err = bot.New(a.cfg.Telegram.Token, bot.Services{
			Auth:     svc.auth,
			Projects: svc.projects,
			Tasks:    svc.tasks,
			Data:     svc.data,
			Summary:  svc.summary,
		})
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if telegramBot != nil {
		g.Go(func() error {
			return telegramBot.Start(ctx)
		})
	}

	err = g.Wait()
	log.Info().Msg("shutdown complete")
	return err
}
