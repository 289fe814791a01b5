package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_Usage(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{nil, {"help"}, {"-h"}} {
		out := &bytes.Buffer{}
		require.NoError(t, run(out, args))
		require.Contains(t, out.String(), "Usage:")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()

	err := run(&bytes.Buffer{}, []string{"serve"})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "serve")
}

func TestRun_Train(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"train", "-epochs", "3", "-samples", "20", "-seed", "7"})

	require.NoError(t, err)
	require.Contains(t, out.String(), "Epoch finished")
	require.Contains(t, out.String(), "epoch=2")
	require.Contains(t, out.String(), "final loss")
}

func TestRun_TrainQuietJSON(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"train", "-epochs", "2", "-samples", "10", "-log-level", "warn", "-log-format", "json"})

	require.NoError(t, err)
	require.NotContains(t, out.String(), "Epoch finished")
	require.Contains(t, out.String(), "accuracy")
}

func TestRun_TrainWithConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "train.hcl")
	src := `
layers        = [4, 1]
epochs        = 50
samples       = 12
optimizer     = "adam"
learning_rate = defaults.learning_rate / 100
scheduler     = "none"
log_level     = "error"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0600))

	out := &bytes.Buffer{}
	// The flag wins over the file.
	err := run(out, []string{"train", "-config", path, "-epochs", "2"})

	require.NoError(t, err)
	require.NotContains(t, out.String(), "Epoch finished")
	require.Contains(t, out.String(), "final loss")
}

func TestRun_TrainErrors(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"unknown flag":  {"train", "--this-is-not-a-valid-flag"},
		"stray arg":     {"train", "extra"},
		"bad format":    {"train", "-log-format", "xml"},
		"bad optimizer": {"train", "-optimizer", "lbfgs"},
		"bad samples":   {"train", "-samples", "0"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var exitErr *ExitError
			err := run(&bytes.Buffer{}, args)
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			require.Equal(t, 2, exitErr.Code)
		})
	}

	err := run(&bytes.Buffer{}, []string{"train", "-config", filepath.Join(t.TempDir(), "missing.hcl")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse")
}

func TestRun_TrainHelp(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	require.NoError(t, run(out, []string{"train", "-h"}))
	require.Contains(t, out.String(), "-epochs")
}

func TestRun_Dot(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	require.NoError(t, run(out, []string{"dot"}))
	require.Contains(t, out.String(), "digraph canonical {")
	require.Contains(t, out.String(), "a | data 2.0000 | grad 6.0000")
	require.Contains(t, out.String(), "L | data -8.0000 | grad 1.0000")

	out.Reset()
	require.NoError(t, run(out, []string{"dot", "-example", "neuron"}))
	require.Contains(t, out.String(), "digraph neuron {")
	require.Contains(t, out.String(), "x1 | data 2.0000 | grad -1.5000")
	require.Contains(t, out.String(), "w1 | data -3.0000 | grad 1.0000")
	require.Contains(t, out.String(), "tanh")

	out.Reset()
	require.NoError(t, run(out, []string{"dot", "-no-backward"}))
	require.Contains(t, out.String(), "a | data 2.0000 | grad 0.0000")
}

func TestRun_DotErrors(t *testing.T) {
	t.Parallel()

	var exitErr *ExitError
	err := run(&bytes.Buffer{}, []string{"dot", "-example", "attention"})
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.Code)

	err = run(&bytes.Buffer{}, []string{"dot", "-nope"})
	require.True(t, errors.As(err, &exitErr))
}
