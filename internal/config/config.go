// Package config loads training settings for the scalargrad command from HCL
// files. Attributes left out of a file keep the value from Default, and every
// expression may refer to those defaults through the defaults object, for
// example
//
//	learning_rate = defaults.learning_rate / 2
//	epochs        = max(defaults.epochs, 200)
//
// The defaults object always holds the values of Default, never values set
// elsewhere in the same file.
package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/tsawler/go-scalargrad/internal/ctxlog"
	"github.com/tsawler/go-scalargrad/nn"
	"github.com/tsawler/go-scalargrad/train"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Config holds everything needed to build and train a model on the moons
// dataset.
type Config struct {
	// Model
	Layers []int `hcl:"layers,optional"`

	// Training
	Epochs           int     `hcl:"epochs,optional"`
	BatchSize        int     `hcl:"batch_size,optional"` // 0 = full batch
	Loss             string  `hcl:"loss,optional"`
	Alpha            float64 `hcl:"alpha,optional"`
	GradientClipping float64 `hcl:"gradient_clipping,optional"`

	// Optimizer
	Optimizer    string  `hcl:"optimizer,optional"`
	LearningRate float64 `hcl:"learning_rate,optional"`
	Momentum     float64 `hcl:"momentum,optional"`
	WeightDecay  float64 `hcl:"weight_decay,optional"`

	// Scheduler
	Scheduler         string  `hcl:"scheduler,optional"`
	FinalLearningRate float64 `hcl:"final_learning_rate,optional"`
	DecayRate         float64 `hcl:"decay_rate,optional"`
	DecayEpochs       int     `hcl:"decay_epochs,optional"`
	Power             float64 `hcl:"power,optional"`
	WarmupEpochs      int     `hcl:"warmup_epochs,optional"`

	// Dataset
	Samples int     `hcl:"samples,optional"`
	Noise   float64 `hcl:"noise,optional"`
	Seed    int64   `hcl:"seed,optional"`

	LogLevel string `hcl:"log_level,optional"`
}

// Default returns the settings of the classic moons demo: a 16-16-1 network
// trained with hinge loss and SGD whose rate decays linearly from 1.0 to 0.1.
func Default() Config {
	return Config{
		Layers:            []int{16, 16, 1},
		Epochs:            100,
		Loss:              nn.Hinge.String(),
		Alpha:             1e-4,
		Optimizer:         train.OptimizerSGD.String(),
		LearningRate:      1.0,
		Scheduler:         train.PolynomialLR.String(),
		FinalLearningRate: 0.1,
		DecayRate:         0.5,
		DecayEpochs:       25,
		Power:             1,
		Samples:           100,
		Noise:             0.1,
		Seed:              1337,
		LogLevel:          "info",
	}
}

// Load reads and validates the HCL file at path.
func Load(ctx context.Context, path string) (Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading config", "path", path)

	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	cfg, err := decode(file)
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode HCL file %s: %w", path, err)
	}

	logger.Debug("Config loaded", "path", path, "optimizer", cfg.Optimizer, "epochs", cfg.Epochs)
	return cfg, nil
}

// Parse decodes and validates HCL source. filename is only used in
// diagnostics.
func Parse(src []byte, filename string) (Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL: %w", diags)
	}
	return decode(file)
}

func decode(file *hcl.File) (Config, error) {
	cfg := Default()
	if diags := gohcl.DecodeBody(file.Body, EvalContext(), &cfg); diags.HasErrors() {
		return Config{}, diags
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EvalContext exposes the defaults object and a handful of numeric
// functions to config expressions.
func EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"defaults": Default().ctyValue(),
		},
		Functions: map[string]function.Function{
			"min":    stdlib.MinFunc,
			"max":    stdlib.MaxFunc,
			"pow":    stdlib.PowFunc,
			"floor":  stdlib.FloorFunc,
			"ceil":   stdlib.CeilFunc,
			"length": stdlib.LengthFunc,
		},
	}
}

// ctyValue renders c as a cty object keyed by the HCL attribute names.
func (c Config) ctyValue() cty.Value {
	layers := make([]cty.Value, len(c.Layers))
	for i, n := range c.Layers {
		layers[i] = cty.NumberIntVal(int64(n))
	}
	layerList := cty.ListValEmpty(cty.Number)
	if len(layers) > 0 {
		layerList = cty.ListVal(layers)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"layers":              layerList,
		"epochs":              cty.NumberIntVal(int64(c.Epochs)),
		"batch_size":          cty.NumberIntVal(int64(c.BatchSize)),
		"loss":                cty.StringVal(c.Loss),
		"alpha":               cty.NumberFloatVal(c.Alpha),
		"gradient_clipping":   cty.NumberFloatVal(c.GradientClipping),
		"optimizer":           cty.StringVal(c.Optimizer),
		"learning_rate":       cty.NumberFloatVal(c.LearningRate),
		"momentum":            cty.NumberFloatVal(c.Momentum),
		"weight_decay":        cty.NumberFloatVal(c.WeightDecay),
		"scheduler":           cty.StringVal(c.Scheduler),
		"final_learning_rate": cty.NumberFloatVal(c.FinalLearningRate),
		"decay_rate":          cty.NumberFloatVal(c.DecayRate),
		"decay_epochs":        cty.NumberIntVal(int64(c.DecayEpochs)),
		"power":               cty.NumberFloatVal(c.Power),
		"warmup_epochs":       cty.NumberIntVal(int64(c.WarmupEpochs)),
		"samples":             cty.NumberIntVal(int64(c.Samples)),
		"noise":               cty.NumberFloatVal(c.Noise),
		"seed":                cty.NumberIntVal(c.Seed),
		"log_level":           cty.StringVal(c.LogLevel),
	})
}

// Validate checks ranges and that every named choice is known.
func (c Config) Validate() error {
	if len(c.Layers) == 0 {
		return fmt.Errorf("layers must not be empty")
	}
	for i, n := range c.Layers {
		if n <= 0 {
			return fmt.Errorf("layer %d has %d neurons, must be positive", i, n)
		}
	}
	if last := c.Layers[len(c.Layers)-1]; last != 1 {
		return fmt.Errorf("last layer has %d neurons, the classifier needs exactly 1", last)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("epochs must not be negative")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative")
	}
	if c.Samples <= 0 {
		return fmt.Errorf("samples must be positive")
	}
	if c.Noise < 0 {
		return fmt.Errorf("noise must not be negative")
	}
	if c.WarmupEpochs < 0 {
		return fmt.Errorf("warmup_epochs must not be negative")
	}
	if _, err := nn.ParseLossType(c.Loss); err != nil {
		return err
	}
	if _, err := train.ParseOptimizerType(c.Optimizer); err != nil {
		return err
	}
	if _, err := train.ParseSchedulerType(c.Scheduler); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn" or "error").
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// LossType returns the parsed Loss.
func (c Config) LossType() (nn.LossType, error) {
	return nn.ParseLossType(c.Loss)
}

// OptimizerSettings converts the optimizer attributes.
func (c Config) OptimizerSettings() (train.OptimizerSettings, error) {
	typ, err := train.ParseOptimizerType(c.Optimizer)
	if err != nil {
		return train.OptimizerSettings{}, err
	}
	return train.OptimizerSettings{
		Type:         typ,
		LearningRate: c.LearningRate,
		WeightDecay:  c.WeightDecay,
		Momentum:     c.Momentum,
	}, nil
}

// SchedulerSettings converts the scheduler attributes. One scheduler step is
// taken per epoch.
func (c Config) SchedulerSettings() (train.SchedulerSettings, error) {
	typ, err := train.ParseSchedulerType(c.Scheduler)
	if err != nil {
		return train.SchedulerSettings{}, err
	}
	return train.SchedulerSettings{
		Type:        typ,
		InitialLR:   c.LearningRate,
		FinalLR:     c.FinalLearningRate,
		TotalSteps:  int64(c.Epochs),
		Gamma:       c.DecayRate,
		StepSize:    int64(c.DecayEpochs),
		Power:       c.Power,
		WarmupSteps: int64(c.WarmupEpochs),
	}, nil
}
