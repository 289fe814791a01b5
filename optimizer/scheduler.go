package optimizer

import "math"

// LRScheduler represents a learning rate scheduler interface
type LRScheduler interface {
	Step(step int64)
	GetLR() float64
	SetOptimizer(opt Optimizer)
}

// schedule holds what every scheduler shares: the optimizer to update and
// the most recently computed rate.
type schedule struct {
	optimizer Optimizer
	currentLR float64
}

func (s *schedule) apply(lr float64) {
	s.currentLR = lr
	if s.optimizer != nil {
		s.optimizer.SetLearningRate(lr)
	}
}

// GetLR returns the current learning rate
func (s *schedule) GetLR() float64 {
	return s.currentLR
}

// SetOptimizer sets the optimizer to update
func (s *schedule) SetOptimizer(opt Optimizer) {
	s.optimizer = opt
}

// ConstantScheduler keeps the learning rate fixed
type ConstantScheduler struct {
	schedule
}

// NewConstantScheduler creates a scheduler that always returns lr
func NewConstantScheduler(lr float64) *ConstantScheduler {
	return &ConstantScheduler{schedule{currentLR: lr}}
}

// Step re-applies the fixed rate
func (s *ConstantScheduler) Step(int64) {
	s.apply(s.currentLR)
}

// ExponentialDecayScheduler implements lr0 * rate^(step/decaySteps)
type ExponentialDecayScheduler struct {
	schedule
	initialLR  float64
	decayRate  float64
	decaySteps int64
}

// NewExponentialDecayScheduler creates a new exponential decay scheduler
func NewExponentialDecayScheduler(initialLR, decayRate float64, decaySteps int64) *ExponentialDecayScheduler {
	return &ExponentialDecayScheduler{
		schedule:   schedule{currentLR: initialLR},
		initialLR:  initialLR,
		decayRate:  decayRate,
		decaySteps: max(decaySteps, 1),
	}
}

// Step updates the learning rate based on the current step
func (s *ExponentialDecayScheduler) Step(step int64) {
	s.apply(s.initialLR * math.Pow(s.decayRate, float64(step)/float64(s.decaySteps)))
}

// StepDecayScheduler multiplies the rate by gamma every stepSize steps
type StepDecayScheduler struct {
	schedule
	initialLR float64
	gamma     float64
	stepSize  int64
}

// NewStepDecayScheduler creates a new step decay scheduler
func NewStepDecayScheduler(initialLR, gamma float64, stepSize int64) *StepDecayScheduler {
	return &StepDecayScheduler{
		schedule:  schedule{currentLR: initialLR},
		initialLR: initialLR,
		gamma:     gamma,
		stepSize:  max(stepSize, 1),
	}
}

// Step updates the learning rate based on the current step
func (s *StepDecayScheduler) Step(step int64) {
	s.apply(s.initialLR * math.Pow(s.gamma, float64(step/s.stepSize)))
}

// CosineAnnealingScheduler follows half a cosine from initialLR to minLR
type CosineAnnealingScheduler struct {
	schedule
	initialLR  float64
	minLR      float64
	totalSteps int64
}

// NewCosineAnnealingScheduler creates a new cosine annealing scheduler
func NewCosineAnnealingScheduler(initialLR, minLR float64, totalSteps int64) *CosineAnnealingScheduler {
	return &CosineAnnealingScheduler{
		schedule:   schedule{currentLR: initialLR},
		initialLR:  initialLR,
		minLR:      minLR,
		totalSteps: max(totalSteps, 1),
	}
}

// Step updates the learning rate based on the current step
func (s *CosineAnnealingScheduler) Step(step int64) {
	t := float64(min(step, s.totalSteps)) / float64(s.totalSteps)
	s.apply(s.minLR + (s.initialLR-s.minLR)*(1+math.Cos(math.Pi*t))/2)
}

// PolynomialDecayScheduler decays from initialLR to finalLR over totalSteps.
// With power 1 this is a linear ramp.
type PolynomialDecayScheduler struct {
	schedule
	initialLR  float64
	finalLR    float64
	totalSteps int64
	power      float64
}

// NewPolynomialDecayScheduler creates a new polynomial decay scheduler
func NewPolynomialDecayScheduler(initialLR, finalLR float64, totalSteps int64, power float64) *PolynomialDecayScheduler {
	return &PolynomialDecayScheduler{
		schedule:   schedule{currentLR: initialLR},
		initialLR:  initialLR,
		finalLR:    finalLR,
		totalSteps: max(totalSteps, 1),
		power:      power,
	}
}

// Step updates the learning rate based on the current step
func (s *PolynomialDecayScheduler) Step(step int64) {
	t := float64(min(step, s.totalSteps)) / float64(s.totalSteps)
	s.apply((s.initialLR-s.finalLR)*math.Pow(1-t, s.power) + s.finalLR)
}

// WarmupScheduler ramps linearly up to targetLR, then hands over to an
// optional base scheduler.
type WarmupScheduler struct {
	schedule
	targetLR      float64
	warmupSteps   int64
	baseScheduler LRScheduler
}

// NewWarmupScheduler creates a new warmup scheduler
func NewWarmupScheduler(targetLR float64, warmupSteps int64) *WarmupScheduler {
	return &WarmupScheduler{
		targetLR:    targetLR,
		warmupSteps: warmupSteps,
	}
}

// SetBaseScheduler sets a base scheduler to use after warmup completes
func (s *WarmupScheduler) SetBaseScheduler(scheduler LRScheduler) {
	s.baseScheduler = scheduler
}

// Step updates the learning rate based on the current step
func (s *WarmupScheduler) Step(step int64) {
	switch {
	case step < s.warmupSteps:
		s.apply(s.targetLR * float64(step+1) / float64(s.warmupSteps))
	case s.baseScheduler != nil:
		s.baseScheduler.Step(step - s.warmupSteps)
		s.apply(s.baseScheduler.GetLR())
	default:
		s.apply(s.targetLR)
	}
}

// SetOptimizer sets the optimizer to update
func (s *WarmupScheduler) SetOptimizer(opt Optimizer) {
	s.optimizer = opt
	if s.baseScheduler != nil {
		s.baseScheduler.SetOptimizer(opt)
	}
}

// OneCycleLRScheduler implements the one-cycle learning rate policy
type OneCycleLRScheduler struct {
	schedule
	maxLR      float64
	totalSteps int64
	pctStart   float64 // Fraction of the cycle spent increasing the rate
	cosine     bool
}

// NewOneCycleLRScheduler creates a new one-cycle LR scheduler. The rate
// starts at maxLR/25, rises linearly to maxLR and anneals back down, along a
// cosine when cosine is set and linearly otherwise.
func NewOneCycleLRScheduler(maxLR float64, totalSteps int64, pctStart float64, cosine bool) *OneCycleLRScheduler {
	return &OneCycleLRScheduler{
		schedule:   schedule{currentLR: maxLR / 25},
		maxLR:      maxLR,
		totalSteps: max(totalSteps, 2),
		pctStart:   pctStart,
		cosine:     cosine,
	}
}

// Step updates the learning rate based on the current step
func (s *OneCycleLRScheduler) Step(step int64) {
	step = min(step, s.totalSteps-1)
	low := s.maxLR / 25
	peak := max(int64(float64(s.totalSteps)*s.pctStart), 1)

	if step <= peak {
		s.apply(low + float64(step)/float64(peak)*(s.maxLR-low))
		return
	}

	progress := float64(step-peak) / float64(s.totalSteps-1-peak)
	if s.cosine {
		s.apply(low + (s.maxLR-low)*(1+math.Cos(math.Pi*progress))/2)
		return
	}
	s.apply(s.maxLR - progress*(s.maxLR-low))
}
