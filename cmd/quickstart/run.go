package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tizianocitro/blobquickstart/internal/logger"
	"github.com/tizianocitro/blobquickstart/internal/quickstart"
	"go.uber.org/zap"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		mode      string
		provider  string
		container string
		noPause   bool
		unique    bool
		timeout   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the quick start against the configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("mode") {
				cfg.Quickstart.Mode = strings.ToLower(mode)
			}
			if flags.Changed("provider") {
				cfg.Storage.Provider = strings.ToLower(provider)
			}
			if flags.Changed("container") {
				cfg.Quickstart.Container = container
			}
			if flags.Changed("unique") {
				cfg.Quickstart.UniqueSuffix = unique
			}
			if flags.Changed("timeout") {
				cfg.Quickstart.Timeout = timeout
			}
			if noPause {
				cfg.Quickstart.Pause = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if d := cfg.Quickstart.TimeoutDuration(); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			name := containerName(&cfg.Quickstart)
			log := logger.WithRun(a.logger, cfg.Storage.Provider, cfg.Quickstart.Mode, name)

			if err := resolveSecrets(ctx, cfg, log); err != nil {
				return err
			}
			storage, err := openStorage(cfg, log)
			if err != nil {
				return err
			}

			qs, err := quickstart.New(cfg.Quickstart.Mode, storage, quickstartOptions(cfg, name),
				cmd.OutOrStdout(), cmd.InOrStdin(), log)
			if err != nil {
				return err
			}

			log.Info("Starting quick start")
			if err := qs.Run(ctx); err != nil {
				log.Error("Quick start finished with errors", zap.Error(err))
				return err
			}
			log.Info("Quick start finished")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&mode, "mode", "", "quickstart variant: sync or async")
	flags.StringVar(&provider, "provider", "", "storage provider: azblob, s3 or minio")
	flags.StringVar(&container, "container", "", "container (bucket) name")
	flags.BoolVar(&noPause, "no-pause", false, "do not wait for Enter before cleaning up")
	flags.BoolVar(&unique, "unique", false, "append a random suffix to the container name")
	flags.IntVar(&timeout, "timeout", 0, "abort the run after this many seconds, 0 for no limit")

	return cmd
}
