package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"

	"github.com/tsawler/go-scalargrad/internal/config"
	"github.com/tsawler/go-scalargrad/internal/ctxlog"
	"github.com/tsawler/go-scalargrad/nn"
	"github.com/tsawler/go-scalargrad/train"
)

// trainFlags holds the command line overrides for a config file.
type trainFlags struct {
	configPath string
	logFormat  string
	cfg        config.Config
}

// parseTrainFlags loads the config named by -config, if any, and applies
// the flags that were set explicitly on top of it.
func parseTrainFlags(ctx context.Context, outW io.Writer, args []string) (*trainFlags, bool, error) {
	fs := flag.NewFlagSet("scalargrad train", flag.ContinueOnError)
	fs.SetOutput(outW)

	defaults := config.Default()
	configPath := fs.String("config", "", "Path to an HCL training config.")
	epochs := fs.Int("epochs", defaults.Epochs, "Number of training epochs.")
	seed := fs.Int64("seed", defaults.Seed, "Seed for the dataset and the weights.")
	samples := fs.Int("samples", defaults.Samples, "Number of moons samples.")
	lr := fs.Float64("lr", defaults.LearningRate, "Initial learning rate.")
	opt := fs.String("optimizer", defaults.Optimizer, "Optimizer: sgd, adam, adamw or rmsprop.")
	logLevel := fs.String("log-level", defaults.LogLevel, "Logging level: debug, info, warn or error.")
	logFormat := fs.String("log-format", "text", "Log output format: text or json.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}
	if *logFormat != "text" && *logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(ctx, *configPath)
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "epochs":
			cfg.Epochs = *epochs
		case "seed":
			cfg.Seed = *seed
		case "samples":
			cfg.Samples = *samples
		case "lr":
			cfg.LearningRate = *lr
		case "optimizer":
			cfg.Optimizer = *opt
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return &trainFlags{configPath: *configPath, logFormat: *logFormat, cfg: cfg}, false, nil
}

// runTrain builds the dataset, model, optimizer and schedule described by
// the config and trains the model.
func runTrain(ctx context.Context, outW io.Writer, args []string) error {
	flags, shouldExit, err := parseTrainFlags(ctx, outW, args)
	if err != nil || shouldExit {
		return err
	}
	cfg := flags.cfg

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := newLogger(level, flags.logFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Config resolved", "path", flags.configPath, "config", cfg)

	lossType, err := cfg.LossType()
	if err != nil {
		return err
	}
	optSettings, err := cfg.OptimizerSettings()
	if err != nil {
		return err
	}
	opt, err := train.NewOptimizer(optSettings)
	if err != nil {
		return err
	}
	schedSettings, err := cfg.SchedulerSettings()
	if err != nil {
		return err
	}
	sched, err := train.NewScheduler(schedSettings)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	data := train.Moons(cfg.Samples, cfg.Noise, rng)
	model := nn.NewMLP(data.Features(), cfg.Layers, rng)
	logger.Info("Model created", "model", model.String(), "parameters", len(model.Parameters()))

	trainer := &train.Trainer{
		Model:            model,
		Optimizer:        opt,
		Scheduler:        sched,
		Loss:             lossType,
		Alpha:            cfg.Alpha,
		BatchSize:        cfg.BatchSize,
		GradientClipping: cfg.GradientClipping,
		Rand:             rng,
	}

	if _, err := trainer.Fit(ctx, data, cfg.Epochs); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	loss, acc, err := trainer.Evaluate(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(outW, "final loss %.6f, accuracy %.1f%%\n", loss, acc*100)
	return nil
}
