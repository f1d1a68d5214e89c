package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tizianocitro/blobquickstart/internal/logger"
	"go.uber.org/zap"
)

const cleanupTimeout = time.Minute

// newCleanupCmd deletes a container left behind by an interrupted run.
func newCleanupCmd(a *app) *cobra.Command {
	var (
		provider  string
		container string
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the quick start container and everything in it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("provider") {
				cfg.Storage.Provider = strings.ToLower(provider)
			}
			if cmd.Flags().Changed("container") {
				cfg.Quickstart.Container = container
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cleanupTimeout)
			defer cancel()

			log := logger.WithRun(a.logger, cfg.Storage.Provider, "cleanup", cfg.Quickstart.Container)
			if err := resolveSecrets(ctx, cfg, log); err != nil {
				return err
			}
			storage, err := openStorage(cfg, log)
			if err != nil {
				return err
			}

			deleted, err := storage.DeleteContainerIfExists(ctx, cfg.Quickstart.Container)
			if err != nil {
				return err
			}
			log.Info("Cleanup finished", zap.Bool("deleted", deleted))

			out := cmd.OutOrStdout()
			if deleted {
				_, err = fmt.Fprintf(out, "Deleted container: %s\n", cfg.Quickstart.Container)
			} else {
				_, err = fmt.Fprintf(out, "Container %s does not exist\n", cfg.Quickstart.Container)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "storage provider: azblob, s3 or minio")
	cmd.Flags().StringVar(&container, "container", "", "container (bucket) name")
	return cmd
}
