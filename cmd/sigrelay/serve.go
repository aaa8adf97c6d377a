package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramory-l/sigrelay"
	"github.com/ramory-l/sigrelay/internal/config"
	"github.com/ramory-l/sigrelay/internal/httpserver"
	"github.com/ramory-l/sigrelay/internal/logging"
	"github.com/ramory-l/sigrelay/socketio"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	RunE:  runServe,
}

func init() {
	cobra.CheckErr(config.RegisterFlags(viper.GetViper(), serveCmd.Flags()))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper(), config.Options{ConfigFile: cfgFile, EnvFile: envFile})
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	sio := socketio.NewServer(&socketio.Config{
		PingInterval:   int(cfg.PingInterval.Milliseconds()),
		PingTimeout:    int(cfg.PingTimeout.Milliseconds()),
		MaxPayload:     cfg.MaxPayload,
		AllowedOrigins: cfg.AllowedOrigins,
		Path:           cfg.Path,
		Logger:         log,
	})
	hub := sigrelay.Attach(sio.Of("/"), sigrelay.Options{
		MaxRoomNameLength: cfg.MaxRoomNameLength,
		Logger:            log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(ctx) }()

	srv := httpserver.New(cfg, sio, hub, log)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, httpserver.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		stop()
		_ = sio.Close()
		<-hubDone
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	// WebSocket connections are hijacked and outlive Shutdown.
	_ = sio.Close()
	if err := <-hubDone; err != nil {
		return fmt.Errorf("hub: %w", err)
	}

	log.Info("stopped cleanly", "rooms", hub.Stats().Rooms)
	return nil
}
