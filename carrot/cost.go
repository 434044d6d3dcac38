package carrot

import (
	"fmt"
	"math"
)

// Cost measures how far a network's output is from a target vector. Lower is
// better. Both slices have the same length; callers validate that.
type Cost func(target, output []float64) float64

// CostFunctions maps cost names to implementations, mirroring the squash
// registry. Used by Train/Test and by configuration files.
var CostFunctions = map[string]Cost{
	"MSE":           MSE,
	"MAE":           MAE,
	"CROSS_ENTROPY": CrossEntropy,
}

// GetCost retrieves a cost function by name.
func GetCost(name string) (Cost, error) {
	if fn, ok := CostFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown cost function: %s", name)
}

// MSE is the mean squared error.
func MSE(target, output []float64) float64 {
	sum := 0.0
	for i := range output {
		d := target[i] - output[i]
		sum += d * d
	}
	return sum / float64(len(output))
}

// MAE is the mean absolute error.
func MAE(target, output []float64) float64 {
	sum := 0.0
	for i := range output {
		sum += math.Abs(target[i] - output[i])
	}
	return sum / float64(len(output))
}

// CrossEntropy is the binary cross-entropy cost. Outputs are clamped away
// from 0 and 1 to keep the logarithms finite.
func CrossEntropy(target, output []float64) float64 {
	const eps = 1e-15
	sum := 0.0
	for i := range output {
		o := math.Max(eps, math.Min(1-eps, output[i]))
		sum -= target[i]*math.Log(o) + (1-target[i])*math.Log(1-o)
	}
	return sum / float64(len(output))
}
