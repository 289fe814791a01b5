package train

import (
	"fmt"

	"github.com/tsawler/go-scalargrad/optimizer"
)

// OptimizerType selects an update rule
type OptimizerType int

const (
	OptimizerSGD OptimizerType = iota
	OptimizerAdam
	OptimizerAdamW
	OptimizerRMSprop
)

var optimizerNames = map[OptimizerType]string{
	OptimizerSGD:     "sgd",
	OptimizerAdam:    "adam",
	OptimizerAdamW:   "adamw",
	OptimizerRMSprop: "rmsprop",
}

func (t OptimizerType) String() string {
	if name, ok := optimizerNames[t]; ok {
		return name
	}
	return fmt.Sprintf("OptimizerType(%d)", int(t))
}

// ParseOptimizerType is the inverse of OptimizerType.String.
func ParseOptimizerType(s string) (OptimizerType, error) {
	for t, name := range optimizerNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown optimizer %q", s)
}

// SchedulerType selects a learning rate schedule
type SchedulerType int

const (
	NoScheduler SchedulerType = iota
	StepLR
	ExponentialLR
	CosineAnnealingLR
	PolynomialLR
	OneCycleLR
)

var schedulerNames = map[SchedulerType]string{
	NoScheduler:       "none",
	StepLR:            "step",
	ExponentialLR:     "exponential",
	CosineAnnealingLR: "cosine",
	PolynomialLR:      "polynomial",
	OneCycleLR:        "onecycle",
}

func (t SchedulerType) String() string {
	if name, ok := schedulerNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SchedulerType(%d)", int(t))
}

// ParseSchedulerType is the inverse of SchedulerType.String.
func ParseSchedulerType(s string) (SchedulerType, error) {
	for t, name := range schedulerNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown scheduler %q", s)
}

// OptimizerSettings describes an optimizer to build
type OptimizerSettings struct {
	Type         OptimizerType
	LearningRate float64
	WeightDecay  float64
	Momentum     float64 // SGD and RMSprop
}

// NewOptimizer creates the optimizer described by s.
func NewOptimizer(s OptimizerSettings) (optimizer.Optimizer, error) {
	base := optimizer.OptimizerConfig{
		LearningRate: s.LearningRate,
		WeightDecay:  s.WeightDecay,
	}

	switch s.Type {
	case OptimizerSGD:
		return optimizer.NewSGD(optimizer.SGDConfig{OptimizerConfig: base, Momentum: s.Momentum}), nil
	case OptimizerAdam:
		config := optimizer.DefaultAdamConfig(s.LearningRate)
		config.WeightDecay = s.WeightDecay
		return optimizer.NewAdam(config), nil
	case OptimizerAdamW:
		config := optimizer.DefaultAdamConfig(s.LearningRate)
		config.WeightDecay = s.WeightDecay
		return optimizer.NewAdamW(config), nil
	case OptimizerRMSprop:
		return optimizer.NewRMSprop(optimizer.RMSpropConfig{
			OptimizerConfig: base,
			Alpha:           0.99,
			Epsilon:         1e-8,
			Momentum:        s.Momentum,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported optimizer type: %v", s.Type)
	}
}

// SchedulerSettings describes a learning rate schedule to build. Fields that
// do not apply to Type are ignored.
type SchedulerSettings struct {
	Type        SchedulerType
	InitialLR   float64
	FinalLR     float64 // cosine, polynomial
	TotalSteps  int64   // cosine, polynomial, onecycle
	Gamma       float64 // step, exponential
	StepSize    int64   // step, exponential
	Power       float64 // polynomial
	WarmupSteps int64   // linear warmup before any schedule
}

// NewScheduler creates the scheduler described by s. It returns nil without
// an error for NoScheduler with no warmup.
func NewScheduler(s SchedulerSettings) (optimizer.LRScheduler, error) {
	var sched optimizer.LRScheduler

	switch s.Type {
	case NoScheduler:
	case StepLR:
		sched = optimizer.NewStepDecayScheduler(s.InitialLR, s.Gamma, s.StepSize)
	case ExponentialLR:
		sched = optimizer.NewExponentialDecayScheduler(s.InitialLR, s.Gamma, s.StepSize)
	case CosineAnnealingLR:
		sched = optimizer.NewCosineAnnealingScheduler(s.InitialLR, s.FinalLR, s.TotalSteps-s.WarmupSteps)
	case PolynomialLR:
		sched = optimizer.NewPolynomialDecayScheduler(s.InitialLR, s.FinalLR, s.TotalSteps-s.WarmupSteps, s.Power)
	case OneCycleLR:
		sched = optimizer.NewOneCycleLRScheduler(s.InitialLR, s.TotalSteps-s.WarmupSteps, 0.3, true)
	default:
		return nil, fmt.Errorf("unsupported scheduler type: %v", s.Type)
	}

	if s.WarmupSteps <= 0 {
		return sched, nil
	}
	warmup := optimizer.NewWarmupScheduler(s.InitialLR, s.WarmupSteps)
	if sched != nil {
		warmup.SetBaseScheduler(sched)
	}
	return warmup, nil
}
