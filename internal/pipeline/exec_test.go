package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResultTakesLastLine(t *testing.T) {
	out := "loading dataset\nfitting model\n{\"score\": 0.73, \"model_version\": \"v3\"}\n"
	res, err := parseResult(out)
	require.NoError(t, err)
	assert.Equal(t, 0.73, res.Score)
	assert.Equal(t, "v3", res.ModelVersion)
}

func TestParseResultRejectsGarbage(t *testing.T) {
	_, err := parseResult("training exploded")
	require.Error(t, err)

	_, err = parseResult("")
	require.Error(t, err)
}

func TestExecPipelineRun(t *testing.T) {
	p := NewExecPipeline([]string{"sh", "-c", `echo '{"score": 0.81, "model_version": "v7"}'`}, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := p.Run(ctx, "/tmp/dataset.csv")
	require.NoError(t, err)
	assert.Equal(t, 0.81, res.Score)
	assert.Equal(t, "v7", res.ModelVersion)
}

func TestExecPipelineFailure(t *testing.T) {
	p := NewExecPipeline([]string{"sh", "-c", "echo boom >&2; exit 1"}, "")

	_, err := p.Run(context.Background(), "/tmp/dataset.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRun)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecPipelineNoCommand(t *testing.T) {
	p := NewExecPipeline(nil, "")

	_, err := p.Run(context.Background(), "/tmp/dataset.csv")
	require.ErrorIs(t, err, ErrRun)
}
