// Package scenario loads search descriptions from HCL files.
//
// A scenario names a problem and its parameters, the region to search and the
// lattice to search it with:
//
//	problem "paraboloid" {
//	  params = [2, -6, -4, 8]
//	}
//	region {
//	  low       = [-3, -3]
//	  high      = [3, 3]
//	  tolerance = 1e-6
//	}
//	search {
//	  solver    = "gridsearch"
//	  step      = [2.5, 2.5]
//	  direction = [0, 1]
//	}
//	log_file = "gridsearch.log"
//
// Expressions may use the variables pi, e and inf and the functions abs, min,
// max, floor, ceil, pow and log.
package scenario

import (
	"fmt"
	"math"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/copyleftdev/gridsearch/internal/errors"
)

const component = "scenario"

// DefaultSolver is used when the search block names none.
const DefaultSolver = "gridsearch"

// File is a decoded scenario. The JSON tags let the HTTP API accept the same
// description.
type File struct {
	Problem Problem `hcl:"problem,block" json:"problem"`
	Region  Region  `hcl:"region,block" json:"region"`
	Search  Search  `hcl:"search,block" json:"search"`
	LogFile string  `hcl:"log_file,optional" json:"-"`
}

// Problem selects a registered problem.
type Problem struct {
	Name   string    `hcl:"name,label" json:"name"`
	Params []float64 `hcl:"params,optional" json:"params,omitempty"`
}

// Region is the compact to search.
type Region struct {
	Low       []float64 `hcl:"low" json:"low"`
	High      []float64 `hcl:"high" json:"high"`
	Tolerance *float64  `hcl:"tolerance,optional" json:"tolerance,omitempty"`
}

// Search selects the solver and its lattice.
type Search struct {
	Solver    string    `hcl:"solver,optional" json:"solver,omitempty"`
	Step      []float64 `hcl:"step" json:"step"`
	Direction []int     `hcl:"direction,optional" json:"direction,omitempty"`
	History   bool      `hcl:"history,optional" json:"history,omitempty"`
}

// SolverName returns the configured solver or DefaultSolver.
func (s Search) SolverName() string {
	if s.Solver == "" {
		return DefaultSolver
	}
	return s.Solver
}

// ToleranceOr returns the region tolerance, or def when none is set.
func (r Region) ToleranceOr(def float64) float64 {
	if r.Tolerance == nil {
		return def
	}
	return *r.Tolerance
}

// Bounds pairs Low and High per axis.
func (r Region) Bounds() [][2]float64 {
	bounds := make([][2]float64, len(r.Low))
	for i := range r.Low {
		bounds[i] = [2]float64{r.Low[i], r.High[i]}
	}
	return bounds
}

// EvalContext returns the variables and functions scenario expressions can
// use.
func EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"pi":  cty.NumberFloatVal(math.Pi),
			"e":   cty.NumberFloatVal(math.E),
			"inf": cty.PositiveInfinity,
		},
		Functions: map[string]function.Function{
			"abs":   stdlib.AbsoluteFunction,
			"min":   stdlib.MinFunction,
			"max":   stdlib.MaxFunction,
			"floor": stdlib.FloorFunction,
			"ceil":  stdlib.CeilFunction,
			"pow":   stdlib.PowFunction,
			"log":   stdlib.LogFunction,
		},
	}
}

// Load parses and validates the scenario file at path.
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.E(errors.CodeOpenFile, component, "Load").WithMessage(err.Error())
	}
	return Parse(src, path)
}

// Parse decodes and validates scenario source. filename is only used in
// diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.E(errors.CodeInvalidParams, component, "Parse").WithMessage(diags.Error())
	}

	var f File
	if diags := gohcl.DecodeBody(file.Body, EvalContext(), &f); diags.HasErrors() {
		return nil, errors.E(errors.CodeInvalidParams, component, "Parse").WithMessage(diags.Error())
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the shape of the scenario: a problem name, matching
// dimensions for low, high, step and direction, and a usable tolerance.
// Geometric checks are left to the compact and the solver.
func (f *File) Validate() error {
	invalid := func(code errors.Code, format string, args ...interface{}) error {
		return errors.E(code, component, "Validate").WithMessage(fmt.Sprintf(format, args...))
	}

	dim := len(f.Region.Low)
	switch {
	case f.Problem.Name == "":
		return invalid(errors.CodeInvalidParams, "problem name is empty")
	case dim == 0:
		return invalid(errors.CodeZeroDim, "region.low is empty")
	case len(f.Region.High) != dim:
		return invalid(errors.CodeWrongDim, "region.high has %d values, region.low has %d", len(f.Region.High), dim)
	case len(f.Search.Step) != dim:
		return invalid(errors.CodeWrongDim, "search.step has %d values, region has %d axes", len(f.Search.Step), dim)
	case f.Search.Direction != nil && len(f.Search.Direction) != dim:
		return invalid(errors.CodeWrongDim, "search.direction has %d values, region has %d axes", len(f.Search.Direction), dim)
	}

	if tol := f.Region.Tolerance; tol != nil {
		if math.IsNaN(*tol) {
			return invalid(errors.CodeNaN, "region.tolerance is NaN")
		}
		if *tol < 0 {
			return invalid(errors.CodeInvalidParams, "region.tolerance is negative")
		}
	}
	return nil
}
