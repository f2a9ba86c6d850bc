package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// #region exec-pipeline

// ExecPipeline runs the trainer as a subprocess. The dataset path is appended
// as the final argument and also exported as DATASET_PATH. The trainer
// prints progress to stderr and a single JSON result line
// {"score": ..., "model_version": ...} as the last line of stdout.
type ExecPipeline struct {
	command []string
	dir     string
	log     *logrus.Entry
}

// NewExecPipeline builds a subprocess pipeline from a command and its
// arguments, e.g. ["python", "src/models/train.py"].
func NewExecPipeline(command []string, dir string) *ExecPipeline {
	return &ExecPipeline{
		command: command,
		dir:     dir,
		log:     logrus.WithField("component", "pipeline"),
	}
}

// Run executes the trainer and parses its result line.
func (p *ExecPipeline) Run(ctx context.Context, datasetPath string) (Result, error) {
	if len(p.command) == 0 {
		return Result{}, fmt.Errorf("%w: no trainer command configured", ErrRun)
	}

	args := append(append([]string{}, p.command[1:]...), datasetPath)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	cmd.Dir = p.dir
	cmd.Env = append(os.Environ(), "DATASET_PATH="+datasetPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.log.WithField("command", strings.Join(p.command, " ")).Info("invoking training pipeline")

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Result{}, fmt.Errorf("%w: %s", ErrRun, msg)
	}

	res, err := parseResult(stdout.String())
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRun, err)
	}
	return res, nil
}

// #endregion exec-pipeline

// #region parse-result

// parseResult extracts the trailing JSON result line from trainer stdout.
func parseResult(out string) (Result, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var res Result
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			return Result{}, fmt.Errorf("parse trainer output %q: %v", line, err)
		}
		return res, nil
	}
	return Result{}, fmt.Errorf("trainer produced no output")
}

// #endregion parse-result
