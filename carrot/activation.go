package carrot

import (
	"fmt"
	"math"
)

// Squash identifies a squash (activation) function in the registry. Genomes
// store the id, not the function, so they serialize as plain numbers.
type Squash int

const (
	Logistic Squash = iota
	Tanh
	Identity
	Step
	ReLU
	Softsign
	Sinusoid
	Gaussian
	BentIdentity
	Bipolar
	BipolarSigmoid
	HardTanh
	Absolute
	Inverse
	SELU

	squashCount
)

const (
	seluAlpha = 1.6732632423543772
	seluScale = 1.0507009873554805
)

// squashEntry holds a squash function together with its derivative. The
// derivative is taken with respect to the pre-squash state and is what the
// local gradient rule consumes.
type squashEntry struct {
	name string
	fn   func(x float64) float64
	d    func(x float64) float64
}

var squashRegistry = [squashCount]squashEntry{
	Logistic: {"LOGISTIC",
		func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
		func(x float64) float64 { f := 1 / (1 + math.Exp(-x)); return f * (1 - f) }},
	Tanh: {"TANH",
		math.Tanh,
		func(x float64) float64 { t := math.Tanh(x); return 1 - t*t }},
	Identity: {"IDENTITY",
		func(x float64) float64 { return x },
		func(x float64) float64 { return 1 }},
	Step: {"STEP",
		func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		},
		func(x float64) float64 { return 0 }},
	ReLU: {"RELU",
		func(x float64) float64 { return math.Max(0, x) },
		func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		}},
	Softsign: {"SOFTSIGN",
		func(x float64) float64 { return x / (1 + math.Abs(x)) },
		func(x float64) float64 { d := 1 + math.Abs(x); return 1 / (d * d) }},
	Sinusoid: {"SINUSOID",
		math.Sin,
		math.Cos},
	Gaussian: {"GAUSSIAN",
		func(x float64) float64 { return math.Exp(-x * x) },
		func(x float64) float64 { return -2 * x * math.Exp(-x*x) }},
	BentIdentity: {"BENT_IDENTITY",
		func(x float64) float64 { return (math.Sqrt(x*x+1)-1)/2 + x },
		func(x float64) float64 { return x/(2*math.Sqrt(x*x+1)) + 1 }},
	Bipolar: {"BIPOLAR",
		func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return -1
		},
		func(x float64) float64 { return 0 }},
	BipolarSigmoid: {"BIPOLAR_SIGMOID",
		func(x float64) float64 { return 2/(1+math.Exp(-x)) - 1 },
		func(x float64) float64 { f := 2/(1+math.Exp(-x)) - 1; return (1 + f) * (1 - f) / 2 }},
	HardTanh: {"HARD_TANH",
		func(x float64) float64 { return math.Max(-1, math.Min(1, x)) },
		func(x float64) float64 {
			if x > -1 && x < 1 {
				return 1
			}
			return 0
		}},
	Absolute: {"ABSOLUTE",
		math.Abs,
		func(x float64) float64 {
			if x < 0 {
				return -1
			}
			return 1
		}},
	Inverse: {"INVERSE",
		func(x float64) float64 { return 1 - x },
		func(x float64) float64 { return -1 }},
	SELU: {"SELU",
		func(x float64) float64 {
			if x > 0 {
				return seluScale * x
			}
			return seluScale * seluAlpha * (math.Exp(x) - 1)
		},
		func(x float64) float64 {
			if x > 0 {
				return seluScale
			}
			return seluScale * seluAlpha * math.Exp(x)
		}},
}

// Fn evaluates the squash function at x.
func (s Squash) Fn(x float64) float64 {
	return squashRegistry[s].fn(x)
}

// Derivative evaluates the squash function's derivative at x.
func (s Squash) Derivative(x float64) float64 {
	return squashRegistry[s].d(x)
}

// Valid reports whether s refers to a registered squash function.
func (s Squash) Valid() bool {
	return s >= 0 && s < squashCount
}

// String returns the registry name of the squash function.
func (s Squash) String() string {
	if !s.Valid() {
		return fmt.Sprintf("SQUASH(%d)", int(s))
	}
	return squashRegistry[s].name
}

// SquashByName looks up a squash function id by its registry name.
func SquashByName(name string) (Squash, error) {
	for id := Squash(0); id < squashCount; id++ {
		if squashRegistry[id].name == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown squash function: %s", name)
}

// Squashes returns every registered squash id, in registry order.
func Squashes() []Squash {
	all := make([]Squash, squashCount)
	for i := range all {
		all[i] = Squash(i)
	}
	return all
}
