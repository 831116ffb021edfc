package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/miyingqi/avatargo"
	_ "github.com/miyingqi/avatargo/docs"
	"github.com/miyingqi/avatargo/internal/avatar"
	"github.com/miyingqi/avatargo/internal/config"
	"github.com/miyingqi/avatargo/internal/flog"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "avatargo:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args, os.LookupEnv)
	if err != nil {
		return err
	}

	logger, closeLog, err := flog.New(flog.Config{
		Level:       cfg.Log.Level,
		EnableColor: cfg.Log.Color,
		FilePath:    cfg.Log.File,
		MaxFileSize: cfg.Log.MaxFileSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = closeLog()
	}()

	app := newApp(cfg, logger)
	logger.Sugar().Infof("serving videos from %s", cfg.VideosDir())
	if cfg.Server.CertFile != "" {
		return app.RunTLS(cfg.Server.Addr, cfg.Server.CertFile, cfg.Server.KeyFile)
	}
	return app.Run(cfg.Server.Addr)
}

func newApp(cfg config.Config, logger *zap.Logger) *avatargo.App {
	app := avatargo.New(avatargo.Options{
		Logger:       logger,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})

	cors := avatargo.NewCors()
	cors.AllowOrigins = cfg.CORS.AllowOrigins
	cors.MaxAge = cfg.CORS.MaxAge
	app.Use(avatargo.Recovery(), avatargo.RequestID(), cors)

	handler := avatar.NewHandler(avatar.NewLibrary(cfg.VideosDir()), cfg.Media.DefaultChunkKB, cfg.Media.RateLimit)
	app.SetRoutes(func(r *avatargo.Router) {
		handler.Register(r)
		r.GET("/healthz", func(c *avatargo.Context) {
			c.SendJson(200, avatargo.FJ{"status": "ok"})
		})
		r.GET("/swagger/*any", avatargo.SwaggerHandler())
	})
	return app
}
