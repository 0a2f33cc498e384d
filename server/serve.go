package main

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/config"
	"github.com/meikuraledutech/canvas/editor"
	"github.com/meikuraledutech/canvas/memstore"
	"github.com/meikuraledutech/canvas/metrics"
	"github.com/meikuraledutech/canvas/postgres"
	"github.com/meikuraledutech/canvas/remote"
	"github.com/meikuraledutech/canvas/remote/memory"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		autosave bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the canvas HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger, err := cfg.Log.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg, autosave, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&autosave, "autosave", true, "Write every change to the store as it happens")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, autosave bool, logger *zap.Logger) error {
	var store canvas.Store = memstore.New()
	if cfg.Database.URL != "" {
		pool, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.New(pool)
		logger.Info("using postgres store")
	} else {
		logger.Warn("database.url not set; canvases are kept in memory")
	}

	reg := metrics.NewRegistry()
	inbox := remote.NewInbox()
	runner := remote.NewRunner(remote.Multi{inbox, remote.NewLogNotifier(logger)}, logger).
		WithObserver(reg).
		WithTTL(cfg.Canvas.NotificationTTL)
	backend := memory.New()

	ws := editor.NewWorkspace(sessionConfig(cfg.Canvas), backend.Services(), store, runner, reg, logger)
	if autosave {
		ws.WithAutosave()
	}

	app := newApp(deps{
		workspace: ws,
		store:     store,
		backend:   backend,
		inbox:     inbox,
		metrics:   reg,
		logger:    logger,
	}, fiber.Config{
		AppName:      "canvas",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.Server.Addr))
	err := app.Listen(cfg.Server.Addr, fiber.ListenConfig{DisableStartupMessage: true})

	saveCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, ws.CloseAll(saveCtx))
}

func sessionConfig(c config.CanvasConfig) editor.Config {
	return editor.Config{
		Viewport:      c.Viewport(),
		Factory:       c.Factory(),
		Geometry:      c.Geometry(),
		AuthCurvature: c.AuthCurvature,
	}
}
