package carrot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearSet samples the line y = 0.5x + 0.2, learnable by a single identity
// connection.
var linearSet = Dataset{
	{Input: []float64{0}, Target: []float64{0.2}},
	{Input: []float64{0.5}, Target: []float64{0.45}},
	{Input: []float64{1}, Target: []float64{0.7}},
	{Input: []float64{-1}, Target: []float64{-0.3}},
}

func TestTrainLinearRegression(t *testing.T) {
	n := identityNetwork(t, 1, 1)
	n.Connections[0].Weight = 0

	result, err := n.Train(linearSet, TrainOptions{
		Rate:       0.2,
		Iterations: 500,
		Error:      1e-6,
	})
	require.NoError(t, err)
	assert.Less(t, result.Error, 1e-4)
	assert.LessOrEqual(t, result.Iterations, 500)

	assert.InDelta(t, 0.5, n.Connections[0].Weight, 1e-2)
	assert.InDelta(t, 0.2, n.Nodes[1].Bias, 1e-2)

	mse, err := n.Test(linearSet, MSE)
	require.NoError(t, err)
	assert.Less(t, mse, 1e-4)
}

func TestTrainBatchMatchesOnlineDirection(t *testing.T) {
	n := identityNetwork(t, 1, 1)
	n.Connections[0].Weight = 0

	// A full-batch pass still moves the weight toward the solution.
	before := n.Connections[0].Weight
	_, err := n.Train(linearSet, TrainOptions{
		Rate:       0.1,
		BatchSize:  len(linearSet),
		Iterations: 1,
	})
	require.NoError(t, err)
	assert.Greater(t, n.Connections[0].Weight, before)
}

func TestTrainValidation(t *testing.T) {
	n := identityNetwork(t, 1, 1)

	_, err := n.Train(Dataset{}, TrainOptions{Iterations: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = n.Train(linearSet, TrainOptions{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = n.Train(linearSet, TrainOptions{Iterations: 1, BatchSize: len(linearSet) + 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	bad := Dataset{{Input: []float64{1, 2}, Target: []float64{1}}}
	_, err = n.Train(bad, TrainOptions{Iterations: 1})
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = n.Test(bad, MSE)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestTrainDropoutFoldsMasks(t *testing.T) {
	n := testNetwork(t, 2, 1, 1)
	require.True(t, NewMutation(AddNode).Apply(n))

	set := Dataset{
		{Input: []float64{0, 1}, Target: []float64{1}},
		{Input: []float64{1, 0}, Target: []float64{1}},
	}
	_, err := n.Train(set, TrainOptions{Iterations: 5, Dropout: 0.5})
	require.NoError(t, err)

	// After training, hidden masks carry the keep probability so inference
	// needs no rescaling.
	for _, node := range n.Nodes {
		if node.Kind == Hidden || node.Kind == Constant {
			assert.InDelta(t, 0.5, node.Mask, 1e-12)
		}
	}
}

func TestTrainStopsAtTargetError(t *testing.T) {
	n := identityNetwork(t, 1, 1)
	n.Connections[0].Weight = 0.5
	n.Nodes[1].Bias = 0.2

	// Already at the optimum; a single pass reaches the target error.
	result, err := n.Train(linearSet, TrainOptions{Rate: 0.01, Error: 1e-3, Iterations: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Iterations)
}
