package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tizianocitro/blobquickstart/internal/config"
	"github.com/tizianocitro/blobquickstart/internal/logger"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the persistent flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "quickstart",
		Short:         "Blob storage quick start: create a container, upload, list, download and clean up",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a quickstart config file (json, yaml or toml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newRunCmd(a),
		newCleanupCmd(a),
		newVersionCmd(),
	)

	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a.cfg = cfg
	a.logger = log
	return nil
}
