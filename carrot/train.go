package carrot

import (
	"fmt"
	"math"
)

// Sample is one supervised example.
type Sample struct {
	Input  []float64
	Target []float64
}

// Dataset is an ordered sequence of samples. Every input must match the
// network's input size and every target its output size.
type Dataset []Sample

func (n *Network) checkDataset(set Dataset) error {
	if len(set) == 0 {
		return fmt.Errorf("%w: empty dataset", ErrInvalidArgument)
	}
	for i, s := range set {
		if len(s.Input) != n.Input || len(s.Target) != n.Output {
			return fmt.Errorf("%w: sample %d is %dx%d, network expects %dx%d",
				ErrSizeMismatch, i, len(s.Input), len(s.Target), n.Input, n.Output)
		}
	}
	return nil
}

// TrainOptions configures Network.Train. Zero values fall back to the
// defaults noted on each field.
type TrainOptions struct {
	Rate       float64 // learning rate, default 0.3
	Momentum   float64 // delta momentum, default 0
	BatchSize  int     // samples per weight update, default 1 (online)
	Iterations int     // maximum passes over the dataset
	Error      float64 // stop once the average cost drops below this
	Cost       Cost    // default MSE
	Dropout    float64 // hidden-node dropout rate while training
	Shuffle    bool    // reshuffle the dataset each iteration
	Clear      bool    // clear recurrent state before each iteration
}

// TrainResult reports a finished training run.
type TrainResult struct {
	Error      float64
	Iterations int
}

// Train fits the network to the dataset by repeated activate/propagate
// cycles. At least one of Iterations and Error must be set; training stops at
// whichever is reached first.
func (n *Network) Train(set Dataset, opts TrainOptions) (*TrainResult, error) {
	if err := n.checkDataset(set); err != nil {
		return nil, err
	}
	if opts.Iterations <= 0 && opts.Error <= 0 {
		return nil, fmt.Errorf("%w: training needs an iteration cap or a target error", ErrInvalidArgument)
	}
	if opts.Rate == 0 {
		opts.Rate = 0.3
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 1
	}
	if opts.BatchSize > len(set) {
		return nil, fmt.Errorf("%w: batch size (%d) exceeds dataset size (%d)", ErrInvalidArgument, opts.BatchSize, len(set))
	}
	if opts.Cost == nil {
		opts.Cost = MSE
	}
	targetError := opts.Error
	if targetError <= 0 {
		targetError = -1
	}
	maxIterations := opts.Iterations
	if maxIterations <= 0 {
		maxIterations = math.MaxInt32
	}

	n.Dropout = opts.Dropout

	samples := make([]Sample, len(set))
	copy(samples, set)

	result := &TrainResult{Error: math.Inf(1)}
	for result.Iterations < maxIterations && result.Error > targetError {
		result.Iterations++
		if opts.Shuffle {
			n.rng.Shuffle(len(samples), func(i, j int) {
				samples[i], samples[j] = samples[j], samples[i]
			})
		}
		if opts.Clear {
			n.Clear()
		}

		errSum := 0.0
		for i, s := range samples {
			update := (i+1)%opts.BatchSize == 0 || i+1 == len(samples)
			output, err := n.Activate(s.Input, true)
			if err != nil {
				return nil, err
			}
			if err := n.Propagate(opts.Rate, opts.Momentum, update, s.Target); err != nil {
				return nil, err
			}
			errSum += opts.Cost(s.Target, output)
		}
		result.Error = errSum / float64(len(samples))
	}

	// Fold the dropout rate into the masks so inference needs no rescaling.
	if opts.Dropout > 0 {
		for _, node := range n.Nodes {
			if node.Kind == Hidden || node.Kind == Constant {
				node.Mask = 1 - n.Dropout
			}
		}
	}
	return result, nil
}

// Test measures the network's average cost over the dataset, without touching
// weights or traces.
func (n *Network) Test(set Dataset, cost Cost) (float64, error) {
	if err := n.checkDataset(set); err != nil {
		return 0, err
	}
	if cost == nil {
		cost = MSE
	}

	errSum := 0.0
	for _, s := range set {
		output, err := n.NoTraceActivate(s.Input)
		if err != nil {
			return 0, err
		}
		errSum += cost(s.Target, output)
	}
	return errSum / float64(len(set)), nil
}
