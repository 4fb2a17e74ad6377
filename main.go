package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formdesk.link/configs"
	"formdesk.link/configs/configsdatabase"
	"formdesk.link/configs/configslog"
	"formdesk.link/database"
	"formdesk.link/pkg/filestorage"
	"formdesk.link/routes"
	"formdesk.link/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:          "formdesk",
		Short:        "Form definitions, responses and summaries over HTTP",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			envErr := configs.LoadEnv()
			configslog.InitLogger()
			if envErr != nil {
				configslog.SLog.Warnf(".env could not be read: %v", envErr)
			}
		},
	}

	var migrate bool
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer configslog.SyncLogger()
			return serve(cmd.Context(), migrate)
		},
	}
	serveCmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations before serving")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(parent context.Context, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configsdatabase.InitDB()
	defer configsdatabase.CloseDB()
	db := configsdatabase.GetDB()

	if migrate {
		if err := database.Initialize(db, true, false); err != nil {
			return err
		}
	}

	storage, err := filestorage.NewFromEnv(ctx)
	if err != nil {
		configslog.Log.Error("Upload storage could not be initialized", zap.Error(err))
		return err
	}

	maxRetries := configs.GetEnvInt("TX_MAX_RETRIES", services.DefaultMaxTxRetries)
	app := routes.NewApp(routes.Dependencies{
		Forms:          services.NewFormService(db, maxRetries),
		Responses:      services.NewResponseService(db, maxRetries),
		Storage:        storage,
		UploadMaxBytes: configs.GetEnvInt64("UPLOAD_MAX_BYTES", filestorage.DefaultMaxUploadBytes),
	})

	addr := ":" + configs.GetEnv("APP_PORT", "3000")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		configslog.SLog.Infof("HTTP server listening on %s", addr)
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		configslog.SLog.Info("Shutting down HTTP server...")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		configslog.Log.Error("Server stopped with error", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Server stopped")
	return nil
}
