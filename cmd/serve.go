package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "subsync/docs"
	"subsync/internal/handlers"
	"subsync/internal/jobs/background"
	"subsync/internal/middleware"
	"subsync/internal/services"
	"subsync/pkg/database"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *envFiles)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	if a.cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, a.pool, a.logger); err != nil {
			return err
		}
	}
	if a.storage != nil {
		if err := a.storage.EnsureBucketExists(ctx); err != nil {
			a.logger.Warn("report bucket check failed", zap.String("bucket", a.cfg.Minio.Bucket), zap.Error(err))
		}
	}

	scheduler, err := background.NewJobScheduler(a.cfg, a.locker(), a.syncJob(), a.reportJob(), a.logger)
	if err != nil {
		return err
	}

	auth, err := middleware.NewJWTAuth(a.cfg.JWTSecret, a.cfg.JWKSURL, a.logger)
	if err != nil {
		return err
	}
	defer auth.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewCustomValidator()

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.Logger(a.logger.Named("access")))
	e.Use(echoMiddleware.CORS())

	handlers.NewHealthHandlers(a.pool, a.cache, scheduler, version, a.logger).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	webhookService := services.NewWebhookService(a.store, a.cache, a.logger)
	handlers.NewWebhookHandlers(webhookService, a.logger).RegisterRoutes(e)

	versions := middleware.NewVersionMiddleware("subsync")
	v1 := versions.VersionRoute(e, "v1")
	v1.Use(auth.Middleware())
	subscriptionService := services.NewSubscriptionService(a.store, a.zotlo, a.cache, a.logger)
	handlers.NewSubscriptionHandlers(subscriptionService, a.logger).RegisterRoutes(v1)

	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			a.logger.Warn("scheduler shutdown failed", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.Port)
		a.logger.Info("subsync server starting", zap.String("version", version), zap.String("addr", addr), zap.String("env", a.cfg.AppEnv))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
