package carrot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquashValues(t *testing.T) {
	tests := []struct {
		squash Squash
		x      float64
		want   float64
	}{
		{Logistic, 0, 0.5},
		{Tanh, 0, 0},
		{Identity, 2.5, 2.5},
		{Step, -1, 0},
		{Step, 1, 1},
		{ReLU, -3, 0},
		{ReLU, 3, 3},
		{Softsign, 1, 0.5},
		{Sinusoid, 0, 0},
		{Gaussian, 0, 1},
		{Bipolar, 0.1, 1},
		{Bipolar, -0.1, -1},
		{BipolarSigmoid, 0, 0},
		{HardTanh, 2, 1},
		{HardTanh, -2, -1},
		{Absolute, -4, 4},
		{Inverse, 0.3, 0.7},
		{SELU, 2, 2 * 1.0507009873554805},
	}
	for _, tc := range tests {
		t.Run(tc.squash.String(), func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.squash.Fn(tc.x), 1e-9)
		})
	}
}

func TestSquashDerivatives(t *testing.T) {
	tests := []struct {
		squash Squash
		x      float64
		want   float64
	}{
		{Logistic, 0, 0.25},
		{Tanh, 0, 1},
		{Identity, 10, 1},
		{Step, 5, 0},
		{ReLU, 3, 1},
		{ReLU, -3, 0},
		{Sinusoid, 0, 1},
		{Gaussian, 0, 0},
		{HardTanh, 0.5, 1},
		{HardTanh, 2, 0},
		{Absolute, -1, -1},
		{Inverse, 0.3, -1},
		{SELU, 1, 1.0507009873554805},
	}
	for _, tc := range tests {
		t.Run(tc.squash.String(), func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.squash.Derivative(tc.x), 1e-9)
		})
	}
}

func TestSquashByName(t *testing.T) {
	for _, s := range Squashes() {
		got, err := SquashByName(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := SquashByName("NOT_A_SQUASH")
	assert.Error(t, err)
}

func TestSquashValid(t *testing.T) {
	assert.True(t, Logistic.Valid())
	assert.True(t, SELU.Valid())
	assert.False(t, Squash(-1).Valid())
	assert.False(t, squashCount.Valid())
}

func TestCostFunctions(t *testing.T) {
	target := []float64{1, 0}
	output := []float64{0.5, 0.5}

	assert.InDelta(t, 0.25, MSE(target, output), 1e-9)
	assert.InDelta(t, 0.5, MAE(target, output), 1e-9)
	assert.InDelta(t, -math.Log(0.5), CrossEntropy(target, output), 1e-9)

	fn, err := GetCost("MSE")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, fn(target, output), 1e-9)

	_, err = GetCost("NOT_A_COST")
	assert.Error(t, err)
}
