// Package optimizer updates engine values from their accumulated gradients.
package optimizer

import (
	"errors"
	"fmt"
	"math"

	"github.com/tsawler/go-scalargrad/engine"
	"gonum.org/v1/gonum/floats"
)

// ErrLengthMismatch is returned when Step receives a different number of
// parameters than the optimizer's state was created for.
var ErrLengthMismatch = errors.New("parameter count changed between steps")

// Optimizer represents a generic optimizer interface
type Optimizer interface {
	Step(params []*engine.Value) error
	ZeroGrad(params []*engine.Value)
	GetLearningRate() float64
	SetLearningRate(lr float64)
	GetStepCount() int64
	Reset()
}

// OptimizerConfig holds common configuration for all optimizers
type OptimizerConfig struct {
	LearningRate float64
	WeightDecay  float64
}

// checkState sizes a per-parameter buffer on first use and rejects a
// parameter list of a different length afterwards.
func checkState(buf *[]float64, n int) error {
	if *buf == nil {
		*buf = make([]float64, n)
		return nil
	}
	if len(*buf) != n {
		return fmt.Errorf("%w: have state for %d, got %d", ErrLengthMismatch, len(*buf), n)
	}
	return nil
}

// SGDConfig holds configuration specific to SGD optimizer
type SGDConfig struct {
	OptimizerConfig
	Momentum float64
}

// SGDOptimizer implements Stochastic Gradient Descent with momentum
type SGDOptimizer struct {
	config          SGDConfig
	momentumBuffers []float64
	stepCount       int64
}

// NewSGD creates a new SGD optimizer
func NewSGD(config SGDConfig) *SGDOptimizer {
	return &SGDOptimizer{config: config}
}

// Step performs one optimization step
func (opt *SGDOptimizer) Step(params []*engine.Value) error {
	if opt.config.Momentum != 0 {
		if err := checkState(&opt.momentumBuffers, len(params)); err != nil {
			return err
		}
	}

	opt.stepCount++

	for i, p := range params {
		g := p.Grad + opt.config.WeightDecay*p.Data
		if opt.momentumBuffers != nil {
			opt.momentumBuffers[i] = opt.config.Momentum*opt.momentumBuffers[i] + g
			g = opt.momentumBuffers[i]
		}
		p.Data -= opt.config.LearningRate * g
	}

	return nil
}

// ZeroGrad zeros all gradients
func (opt *SGDOptimizer) ZeroGrad(params []*engine.Value) {
	engine.ZeroGrad(params...)
}

// GetLearningRate returns the current learning rate
func (opt *SGDOptimizer) GetLearningRate() float64 {
	return opt.config.LearningRate
}

// SetLearningRate sets the learning rate
func (opt *SGDOptimizer) SetLearningRate(lr float64) {
	opt.config.LearningRate = lr
}

// GetStepCount returns the current step count
func (opt *SGDOptimizer) GetStepCount() int64 {
	return opt.stepCount
}

// Reset drops the momentum state and the step count
func (opt *SGDOptimizer) Reset() {
	opt.momentumBuffers = nil
	opt.stepCount = 0
}

// AdamConfig holds configuration specific to Adam optimizer
type AdamConfig struct {
	OptimizerConfig
	Beta1   float64
	Beta2   float64
	Epsilon float64
}

// DefaultAdamConfig returns the usual Adam hyperparameters for lr.
func DefaultAdamConfig(lr float64) AdamConfig {
	return AdamConfig{
		OptimizerConfig: OptimizerConfig{LearningRate: lr},
		Beta1:           0.9,
		Beta2:           0.999,
		Epsilon:         1e-8,
	}
}

// AdamOptimizer implements the Adam optimization algorithm. Weight decay is
// added to the gradient (L2 regularisation); see AdamWOptimizer for the
// decoupled form.
type AdamOptimizer struct {
	config    AdamConfig
	mBuffers  []float64 // First moment buffers
	vBuffers  []float64 // Second moment buffers
	stepCount int64
	decoupled bool
}

// NewAdam creates a new Adam optimizer
func NewAdam(config AdamConfig) *AdamOptimizer {
	return &AdamOptimizer{config: config}
}

// Step performs one optimization step
func (opt *AdamOptimizer) Step(params []*engine.Value) error {
	if err := checkState(&opt.mBuffers, len(params)); err != nil {
		return err
	}
	if err := checkState(&opt.vBuffers, len(params)); err != nil {
		return err
	}

	opt.stepCount++
	c := opt.config
	bias1 := 1 - math.Pow(c.Beta1, float64(opt.stepCount))
	bias2 := 1 - math.Pow(c.Beta2, float64(opt.stepCount))

	for i, p := range params {
		g := p.Grad
		if opt.decoupled {
			p.Data -= c.LearningRate * c.WeightDecay * p.Data
		} else {
			g += c.WeightDecay * p.Data
		}

		opt.mBuffers[i] = c.Beta1*opt.mBuffers[i] + (1-c.Beta1)*g
		opt.vBuffers[i] = c.Beta2*opt.vBuffers[i] + (1-c.Beta2)*g*g

		mHat := opt.mBuffers[i] / bias1
		vHat := opt.vBuffers[i] / bias2
		p.Data -= c.LearningRate * mHat / (math.Sqrt(vHat) + c.Epsilon)
	}

	return nil
}

// ZeroGrad zeros all gradients
func (opt *AdamOptimizer) ZeroGrad(params []*engine.Value) {
	engine.ZeroGrad(params...)
}

// GetLearningRate returns the current learning rate
func (opt *AdamOptimizer) GetLearningRate() float64 {
	return opt.config.LearningRate
}

// SetLearningRate sets the learning rate
func (opt *AdamOptimizer) SetLearningRate(lr float64) {
	opt.config.LearningRate = lr
}

// GetStepCount returns the current step count
func (opt *AdamOptimizer) GetStepCount() int64 {
	return opt.stepCount
}

// Reset drops the moment estimates and the step count
func (opt *AdamOptimizer) Reset() {
	opt.mBuffers = nil
	opt.vBuffers = nil
	opt.stepCount = 0
}

// AdamWOptimizer is Adam with weight decay applied directly to the
// parameters instead of through the gradient.
type AdamWOptimizer struct {
	AdamOptimizer
}

// NewAdamW creates a new AdamW optimizer
func NewAdamW(config AdamConfig) *AdamWOptimizer {
	return &AdamWOptimizer{AdamOptimizer{config: config, decoupled: true}}
}

// RMSpropConfig holds configuration specific to RMSprop optimizer
type RMSpropConfig struct {
	OptimizerConfig
	Alpha    float64 // Smoothing constant
	Epsilon  float64
	Momentum float64
}

// RMSpropOptimizer implements the RMSprop optimization algorithm
type RMSpropOptimizer struct {
	config          RMSpropConfig
	squaredGradAvg  []float64
	momentumBuffers []float64
	stepCount       int64
}

// NewRMSprop creates a new RMSprop optimizer
func NewRMSprop(config RMSpropConfig) *RMSpropOptimizer {
	return &RMSpropOptimizer{config: config}
}

// Step performs one optimization step
func (opt *RMSpropOptimizer) Step(params []*engine.Value) error {
	if err := checkState(&opt.squaredGradAvg, len(params)); err != nil {
		return err
	}
	if opt.config.Momentum != 0 {
		if err := checkState(&opt.momentumBuffers, len(params)); err != nil {
			return err
		}
	}

	opt.stepCount++
	c := opt.config

	for i, p := range params {
		g := p.Grad + c.WeightDecay*p.Data
		opt.squaredGradAvg[i] = c.Alpha*opt.squaredGradAvg[i] + (1-c.Alpha)*g*g
		update := g / (math.Sqrt(opt.squaredGradAvg[i]) + c.Epsilon)
		if opt.momentumBuffers != nil {
			opt.momentumBuffers[i] = c.Momentum*opt.momentumBuffers[i] + update
			update = opt.momentumBuffers[i]
		}
		p.Data -= c.LearningRate * update
	}

	return nil
}

// ZeroGrad zeros all gradients
func (opt *RMSpropOptimizer) ZeroGrad(params []*engine.Value) {
	engine.ZeroGrad(params...)
}

// GetLearningRate returns the current learning rate
func (opt *RMSpropOptimizer) GetLearningRate() float64 {
	return opt.config.LearningRate
}

// SetLearningRate sets the learning rate
func (opt *RMSpropOptimizer) SetLearningRate(lr float64) {
	opt.config.LearningRate = lr
}

// GetStepCount returns the current step count
func (opt *RMSpropOptimizer) GetStepCount() int64 {
	return opt.stepCount
}

// Reset drops the running averages and the step count
func (opt *RMSpropOptimizer) Reset() {
	opt.squaredGradAvg = nil
	opt.momentumBuffers = nil
	opt.stepCount = 0
}

// grads copies the gradient of every parameter.
func grads(params []*engine.Value) []float64 {
	g := make([]float64, len(params))
	for i, p := range params {
		g[i] = p.Grad
	}
	return g
}

// ComputeGradNorm returns the L2 norm of all gradients.
func ComputeGradNorm(params []*engine.Value) float64 {
	if len(params) == 0 {
		return 0
	}
	return floats.Norm(grads(params), 2)
}

// ClipGradsByNorm rescales gradients so their L2 norm is at most maxNorm and
// returns the norm before clipping.
func ClipGradsByNorm(params []*engine.Value, maxNorm float64) float64 {
	norm := ComputeGradNorm(params)
	if norm <= maxNorm || norm == 0 {
		return norm
	}
	g := grads(params)
	floats.Scale(maxNorm/norm, g)
	for i, p := range params {
		p.Grad = g[i]
	}
	return norm
}

// ClipGradsByValue clamps every gradient to [minValue, maxValue].
func ClipGradsByValue(params []*engine.Value, minValue, maxValue float64) {
	for _, p := range params {
		p.Grad = math.Min(math.Max(p.Grad, minValue), maxValue)
	}
}
