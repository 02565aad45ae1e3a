// Package optimization holds the types shared by search strategies and the
// services that drive them.
package optimization

import (
	"context"
	"encoding/json"
	"math"
)

// Optimizer defines the interface for search strategies
type Optimizer interface {
	// Optimize runs the search described by config
	Optimize(ctx context.Context, config OptimizerConfig) (*OptimizationResult, error)

	// GetBestSolution returns the best solution of the last successful run
	GetBestSolution() *Solution

	// GetHistory returns the evaluations of the last run
	GetHistory() []Evaluation

	// Stop aborts a running search
	Stop()
}

// OptimizerConfig describes one search. Zero-valued fields keep whatever the
// optimizer was configured with before.
type OptimizerConfig struct {
	// Objective replaces the configured problem when set
	Objective ObjectiveFunction

	// Bounds for each dimension [min, max]
	Bounds [][2]float64

	// Tolerance used to validate Bounds
	Tolerance float64

	// Step between lattice points, one value per dimension
	Step []float64

	// Direction is the axis order of the traversal, fastest axis first
	Direction []int

	// MaxEvaluations rejects searches whose lattice is larger; 0 disables
	// the check
	MaxEvaluations int

	// KeepHistory records every evaluation in the result
	KeepHistory bool

	// OnEvaluation is called after every successful evaluation
	OnEvaluation func(Evaluation)
}

// ObjectiveFunction defines the function to be minimized
type ObjectiveFunction func([]float64) (float64, error)

// Solution represents a point of the search space and its objective value
type Solution struct {
	Parameters []float64 `json:"parameters"`
	Value      float64   `json:"value"`
}

// MarshalJSON encodes a non-finite Value as a string.
func (s Solution) MarshalJSON() ([]byte, error) {
	type plain Solution
	return json.Marshal(struct {
		plain
		Value any `json:"value"`
	}{plain(s), JSONValue(s.Value)})
}

// JSONValue returns v unchanged when it is finite and otherwise one of the
// strings "+Inf", "-Inf" or "NaN", which encoding/json cannot write as numbers.
func JSONValue(v float64) any {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	default:
		return v
	}
}

// Evaluation represents a single evaluation of the objective function
type Evaluation struct {
	Iteration int       `json:"iteration"`
	Solution  *Solution `json:"solution"`
	Error     error     `json:"-"`
}

// OptimizationResult contains the result of a search
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	Iterations   int
	Converged    bool
}
