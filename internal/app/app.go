package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/specialistvlad/blockgrid/internal/ctxlog"
	"github.com/specialistvlad/blockgrid/internal/deploy"
	"github.com/specialistvlad/blockgrid/internal/storage"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	store     storage.Store
	generator *deploy.Generator
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, rooted at the
// project directory.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	store := storage.NewDisk(cfg.ProjectPath)
	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		store:     store,
		generator: deploy.New(store),
	}
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
