package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"objdetect-node/config"
	app "objdetect-node/internal/application"
	"objdetect-node/internal/container"
	"objdetect-node/internal/domain/port"
	"objdetect-node/internal/infrastructure/registry"
	"objdetect-node/internal/infrastructure/vision"
	"objdetect-node/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "objdetect",
		Short:         "Object detection node for image flows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newDetectCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup загружает конфигурацию и собирает узлы потока
func setup() (*config.Config, *container.Container, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	labels := vision.CocoLabels
	if cfg.LabelsFile != "" {
		if labels, err = vision.LoadLabels(cfg.LabelsFile); err != nil {
			return nil, nil, log, err
		}
	}

	specs, err := cfg.Nodes()
	if err != nil {
		return nil, nil, log, err
	}
	nodes := make([]app.NodeConfig, 0, len(specs))
	for _, s := range specs {
		nodes = append(nodes, app.NodeConfig{ID: s.ID, Name: s.Name, ModelURL: s.ModelURL})
	}

	rtCfg := vision.RuntimeConfig{
		LibraryPath: cfg.OnnxLibrary,
		Model: vision.ModelConfig{
			CacheDir:       cfg.ModelCacheDir,
			InputSize:      cfg.InputSize,
			ScoreThreshold: float32(cfg.ScoreThreshold),
			IOUThreshold:   float32(cfg.IOUThreshold),
			Labels:         labels,
		},
	}
	factory := func() (port.Runtime, error) {
		return vision.NewOnnxRuntime(rtCfg, log)
	}

	c, err := container.New(registry.NewRuntimeRegistry(), vision.RuntimeName, factory, nodes, afero.NewOsFs(), log)
	if err != nil {
		return nil, nil, log, err
	}

	return cfg, c, log, nil
}
