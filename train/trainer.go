// Package train fits nn models to in-memory datasets. Each epoch runs the
// forward pass, computes the loss plus L2 regularisation, resets gradients,
// backpropagates and applies the optimizer.
package train

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/tsawler/go-scalargrad/engine"
	"github.com/tsawler/go-scalargrad/internal/ctxlog"
	"github.com/tsawler/go-scalargrad/nn"
	"github.com/tsawler/go-scalargrad/optimizer"
)

// Model is a network with a single scalar output.
type Model interface {
	nn.Module
	Predict(x []float64) (*engine.Value, error)
}

// EpochStats describes one completed epoch.
type EpochStats struct {
	Epoch        int
	Loss         float64
	Accuracy     float64
	LearningRate float64
	GradientNorm float64 // before clipping
	Duration     time.Duration
}

// History collects the stats of every epoch in order.
type History struct {
	Losses        []float64
	Accuracies    []float64
	LearningRates []float64
	GradientNorms []float64
}

func (h *History) record(s EpochStats) {
	h.Losses = append(h.Losses, s.Loss)
	h.Accuracies = append(h.Accuracies, s.Accuracy)
	h.LearningRates = append(h.LearningRates, s.LearningRate)
	h.GradientNorms = append(h.GradientNorms, s.GradientNorm)
}

// Epochs returns the number of recorded epochs.
func (h History) Epochs() int {
	return len(h.Losses)
}

// Trainer runs full-batch or mini-batch gradient descent on a Model.
type Trainer struct {
	Model     Model
	Optimizer optimizer.Optimizer
	Scheduler optimizer.LRScheduler // optional, stepped once per epoch

	Loss             nn.LossType
	Alpha            float64    // L2 regularisation strength
	BatchSize        int        // 0 uses the whole dataset every epoch
	GradientClipping float64    // max gradient norm, 0 disables clipping
	Rand             *rand.Rand // batch sampling, required when BatchSize > 0

	// OnEpochEnd is called after every epoch. A non-nil error stops Fit.
	OnEpochEnd func(EpochStats) error
}

// Fit trains for the given number of epochs and returns the recorded
// history. When ctx is cancelled Fit stops between epochs and returns the
// history so far together with the context error.
func (t *Trainer) Fit(ctx context.Context, data *Dataset, epochs int) (History, error) {
	var history History
	if t.Model == nil || t.Optimizer == nil {
		return history, errors.New("trainer needs a model and an optimizer")
	}
	if data == nil || data.Len() == 0 {
		return history, ErrEmptyDataset
	}
	if t.BatchSize > 0 && t.Rand == nil {
		return history, errors.New("mini-batch training needs a random source")
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Training started", "epochs", epochs, "samples", data.Len(),
		"parameters", len(t.Model.Parameters()), "loss", t.Loss)

	if t.Scheduler != nil {
		t.Scheduler.SetOptimizer(t.Optimizer)
		t.Scheduler.Step(0)
	}

	for epoch := range epochs {
		if err := ctx.Err(); err != nil {
			logger.Warn("Training cancelled", "epoch", epoch, "error", err)
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		stats, err := t.step(data.Batch(t.BatchSize, t.Rand))
		if err != nil {
			return history, fmt.Errorf("training epoch %d failed: %w", epoch, err)
		}
		stats.Epoch = epoch
		history.record(stats)

		logger.Info("Epoch finished",
			"epoch", epoch,
			"loss", stats.Loss,
			"accuracy", stats.Accuracy,
			"lr", stats.LearningRate)
		logger.Debug("Epoch details", "epoch", epoch, "grad_norm", stats.GradientNorm, "duration", stats.Duration)

		if t.Scheduler != nil {
			t.Scheduler.Step(int64(epoch + 1))
		}
		if t.OnEpochEnd != nil {
			if err := t.OnEpochEnd(stats); err != nil {
				return history, fmt.Errorf("epoch end callback failed: %w", err)
			}
		}
	}

	return history, nil
}

// step runs one update on batch.
func (t *Trainer) step(batch *Dataset) (EpochStats, error) {
	start := time.Now()

	loss, scores, err := t.objective(batch)
	if err != nil {
		return EpochStats{}, err
	}

	params := t.Model.Parameters()
	t.Optimizer.ZeroGrad(params)
	loss.Backward()

	stats := EpochStats{
		Loss:         loss.Data,
		Accuracy:     nn.Accuracy(scores, batch.Y),
		LearningRate: t.Optimizer.GetLearningRate(),
	}
	if t.GradientClipping > 0 {
		stats.GradientNorm = optimizer.ClipGradsByNorm(params, t.GradientClipping)
	} else {
		stats.GradientNorm = optimizer.ComputeGradNorm(params)
	}

	if err := t.Optimizer.Step(params); err != nil {
		return EpochStats{}, fmt.Errorf("optimizer step failed: %w", err)
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

// objective builds the regularised loss graph for batch.
func (t *Trainer) objective(batch *Dataset) (*engine.Value, []*engine.Value, error) {
	scores := make([]*engine.Value, batch.Len())
	for i, x := range batch.X {
		s, err := t.Model.Predict(x)
		if err != nil {
			return nil, nil, fmt.Errorf("sample %d: %w", i, err)
		}
		scores[i] = s
	}

	dataLoss, err := nn.Loss(t.Loss, scores, batch.Y)
	if err != nil {
		return nil, nil, err
	}
	if t.Alpha == 0 {
		return dataLoss, scores, nil
	}
	return dataLoss.Add(nn.L2(t.Model.Parameters(), t.Alpha)), scores, nil
}

// Evaluate returns the regularised loss and accuracy of the model on data
// without touching any gradient.
func (t *Trainer) Evaluate(data *Dataset) (loss, accuracy float64, err error) {
	if data == nil || data.Len() == 0 {
		return 0, 0, ErrEmptyDataset
	}
	l, scores, err := t.objective(data)
	if err != nil {
		return 0, 0, err
	}
	return l.Data, nn.Accuracy(scores, data.Y), nil
}
