package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	segnetgo "github.com/vk/segnetgo"
	"github.com/vk/segnetgo/internal/config"
	"github.com/vk/segnetgo/internal/ctxlog"
)

// Config holds everything an App instance needs to run.
type Config struct {
	ModelPath string
	LogFormat string
	LogLevel  string
}

// App encapsulates the tool's dependencies and lifecycle: load a model
// definition, build the graph, print the summary.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *Config
}

// NewApp constructs an App with its own isolated logger.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	return &App{outW: outW, logger: logger, cfg: cfg}
}

// Run loads the model definition, builds the graph, and writes the model
// summary to the output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	modelCfg, err := config.Load(ctx, a.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load model definition: %w", err)
	}

	model, err := segnetgo.Unet(ctx, modelCfg)
	if err != nil {
		return fmt.Errorf("failed to build model: %w", err)
	}

	fmt.Fprint(a.outW, model.Summary())
	return nil
}
