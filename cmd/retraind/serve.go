package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mlserve/retrain-engine/internal/server"
	"github.com/mlserve/retrain-engine/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the retraining engine daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := loadFileConfig()
		if err != nil {
			return err
		}
		coord, cleanup, err := buildEngine(fc)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watcher := watch.New(coord, fc.DatasetPath, fc.CheckInterval.Std())
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("dataset watcher stopped")
			}
		}()

		logrus.WithFields(logrus.Fields{
			"db":      fc.DBPath,
			"dataset": fc.DatasetPath,
			"addr":    fc.ListenAddr,
		}).Info("retraining engine ready")

		return server.New(coord).Serve(ctx, fc.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
