// Package pipeline invokes the external training pipeline. The engine treats
// training as atomic: it blocks for the duration and only consumes the final
// result.
package pipeline

import (
	"context"
	"errors"
)

// ErrRun marks a training pipeline failure. The coordinator records it as a
// failed attempt without advancing the retrain baselines.
var ErrRun = errors.New("training pipeline")

// #region result

// Result is what a successful training run reports back.
type Result struct {
	Score        float64 `json:"score"`
	ModelVersion string  `json:"model_version,omitempty"`
}

// #endregion result

// #region pipeline-interface

// Pipeline produces a new model from the dataset at datasetPath and reports
// its quality score. Implementations must honor ctx cancellation.
type Pipeline interface {
	Run(ctx context.Context, datasetPath string) (Result, error)
}

// #endregion pipeline-interface
