package nn

import (
	"fmt"

	"github.com/tsawler/go-scalargrad/engine"
)

// LossType selects a loss function
type LossType int

const (
	MeanSquaredError LossType = iota
	MeanAbsoluteError
	Hinge
)

func (lt LossType) String() string {
	switch lt {
	case MeanSquaredError:
		return "MSE"
	case MeanAbsoluteError:
		return "MAE"
	case Hinge:
		return "Hinge"
	default:
		return fmt.Sprintf("LossType(%d)", int(lt))
	}
}

// ParseLossType is the inverse of LossType.String, case-sensitive.
func ParseLossType(s string) (LossType, error) {
	for _, lt := range []LossType{MeanSquaredError, MeanAbsoluteError, Hinge} {
		if lt.String() == s {
			return lt, nil
		}
	}
	return 0, fmt.Errorf("unknown loss type %q", s)
}

// Loss computes the mean loss of predictions against targets.
func Loss(lossType LossType, predictions []*engine.Value, targets []float64) (*engine.Value, error) {
	if len(predictions) != len(targets) {
		return nil, fmt.Errorf("%w: %d predictions, %d targets", ErrShapeMismatch, len(predictions), len(targets))
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("%w: no predictions", ErrShapeMismatch)
	}

	terms := make([]*engine.Value, len(predictions))
	for i, p := range predictions {
		y := engine.New(targets[i])
		switch lossType {
		case MeanSquaredError:
			terms[i] = p.Sub(y).Pow(2)
		case MeanAbsoluteError:
			d := p.Sub(y)
			terms[i] = d.ReLU().Add(d.Neg().ReLU())
		case Hinge:
			terms[i] = engine.New(1).Add(y.Neg().Mul(p)).ReLU()
		default:
			return nil, fmt.Errorf("unsupported loss type %v", lossType)
		}
	}

	return engine.SumValues(terms).Mul(engine.New(1 / float64(len(terms)))), nil
}

// MSE is Loss with MeanSquaredError.
func MSE(predictions []*engine.Value, targets []float64) (*engine.Value, error) {
	return Loss(MeanSquaredError, predictions, targets)
}

// HingeLoss is Loss with Hinge. Targets are expected to be -1 or 1.
func HingeLoss(scores []*engine.Value, labels []float64) (*engine.Value, error) {
	return Loss(Hinge, scores, labels)
}

// L2 returns alpha times the sum of squared parameters.
func L2(params []*engine.Value, alpha float64) *engine.Value {
	squares := make([]*engine.Value, len(params))
	for i, p := range params {
		squares[i] = p.Mul(p)
	}
	return engine.SumValues(squares).Mul(engine.New(alpha))
}

// Accuracy returns the fraction of scores whose sign matches the label.
func Accuracy(scores []*engine.Value, labels []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	correct := 0
	for i, s := range scores {
		if (s.Data > 0) == (labels[i] > 0) {
			correct++
		}
	}
	return float64(correct) / float64(len(scores))
}
