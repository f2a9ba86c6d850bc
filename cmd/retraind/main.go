// retraind is the retraining decision engine daemon and its operator CLI.
//
// retraind serve              run the engine with HTTP API, ticker, and dataset watcher
// retraind check              run one evaluation pass and print the outcome
// retraind trigger [reason]   request a manual retrain
// retraind status             print the engine status snapshot
// retraind attempts           print recent retrain attempts
// retraind auto on|off        set the operator-level auto-retrain switch
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mlserve/retrain-engine/internal/config"
	"github.com/mlserve/retrain-engine/internal/coordinator"
	"github.com/mlserve/retrain-engine/internal/dataset"
	"github.com/mlserve/retrain-engine/internal/pipeline"
	"github.com/mlserve/retrain-engine/internal/state"
)

var (
	cfgFile     string // --config: daemon YAML config path
	dbPath      string // --db: override state database path
	datasetPath string // --dataset: override dataset path
	logLevel    string // --log-level: logrus level
)

var rootCmd = &cobra.Command{
	Use:   "retraind",
	Short: "Automated model retraining decision engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", envOr("RETRAIN_CONFIG", ""), "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", envOr("RETRAIN_DB", ""), "state database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&datasetPath, "dataset", envOr("RETRAIN_DATASET", ""), "dataset path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #region wiring

// loadFileConfig reads the YAML config and applies flag overrides.
func loadFileConfig() (config.FileConfig, error) {
	fc, err := config.LoadFile(cfgFile)
	if err != nil {
		return config.FileConfig{}, err
	}
	if dbPath != "" {
		fc.DBPath = dbPath
	}
	if datasetPath != "" {
		fc.DatasetPath = datasetPath
	}
	return fc, nil
}

// buildEngine wires store, dataset, pipeline, and coordinator from the file
// config. The returned cleanup closes the store and the health probe.
func buildEngine(fc config.FileConfig) (*coordinator.Coordinator, func(), error) {
	store, err := state.NewStore(fc.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open state store: %w", err)
	}

	data := dataset.NewFileStore(fc.DatasetPath)
	pipe := pipeline.NewExecPipeline(fc.TrainerCommand, "")

	var opts []coordinator.Option
	var probe *pipeline.HealthProbe
	if fc.TrainerHealthAddr != "" {
		probe, err = pipeline.NewHealthProbe(fc.TrainerHealthAddr, fc.TrainerHealthService)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		opts = append(opts, coordinator.WithHealthProbe(probe))
	}

	coord, err := coordinator.New(store, data, pipe, fc.Retrain, opts...)
	if err != nil {
		if probe != nil {
			probe.Close()
		}
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if probe != nil {
			probe.Close()
		}
		store.Close()
	}
	return coord, cleanup, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion wiring
