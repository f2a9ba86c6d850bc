package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// #region file-config

// FileConfig is the daemon-level configuration loaded from YAML at startup.
// The nested Retrain section is the runtime-swappable policy; everything else
// is fixed for the process lifetime.
type FileConfig struct {
	DBPath               string   `yaml:"db_path"`
	DatasetPath          string   `yaml:"dataset_path"`
	ListenAddr           string   `yaml:"listen_addr"`
	TrainerCommand       []string `yaml:"trainer_command"`
	TrainerHealthAddr    string   `yaml:"trainer_health_addr"`
	TrainerHealthService string   `yaml:"trainer_health_service"`
	CheckInterval        Duration `yaml:"check_interval"`
	Retrain              Config   `yaml:"retrain"`
}

// DefaultFile returns the daemon defaults.
func DefaultFile() FileConfig {
	return FileConfig{
		DBPath:         "retrain_state.db",
		DatasetPath:    "data/processed/cleaned.csv",
		ListenAddr:     ":8090",
		TrainerCommand: []string{"python", "src/models/train.py"},
		CheckInterval:  Duration(time.Hour),
		Retrain:        Default(),
	}
}

// LoadFile overlays a YAML file onto the defaults. A missing path ("") keeps
// the defaults as-is.
func LoadFile(path string) (FileConfig, error) {
	fc := DefaultFile()
	if path == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("%w: parse %s: %v", ErrValidation, path, err)
	}
	if err := fc.Validate(); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

// Validate checks the daemon config, including the nested retrain policy.
func (fc FileConfig) Validate() error {
	if fc.DBPath == "" {
		return fmt.Errorf("%w: db_path is empty", ErrValidation)
	}
	if fc.DatasetPath == "" {
		return fmt.Errorf("%w: dataset_path is empty", ErrValidation)
	}
	if fc.CheckInterval <= 0 {
		return fmt.Errorf("%w: check_interval %v is not positive", ErrValidation, fc.CheckInterval)
	}
	return fc.Retrain.Validate()
}

// #endregion file-config
