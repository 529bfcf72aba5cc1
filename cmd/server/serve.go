package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	healthCtrlImp "formassist/pkg/health/controllerImp"
	kbCtrlImp "formassist/pkg/kb/controllerImp"
	sessionCtrlImp "formassist/pkg/session/controllerImp"
	"formassist/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.New(e, logger,
		router.Options{APIToken: cfg.APIToken, MaxUploadBytes: cfg.MaxUploadBytes},
		sessionCtrlImp.New(a.sessions, cfg.MaxUploadBytes),
		kbCtrlImp.New(a.kb),
		healthCtrlImp.NewHealthCtrl(a.db, a.kb),
	)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", ":"+cfg.Port))
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
