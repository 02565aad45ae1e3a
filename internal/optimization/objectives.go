package optimization

import "fmt"

// Sphere is sum(x[i]^2), minimal at the origin.
func Sphere(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

// Rosenbrock is the banana function sum(100(x[i+1]-x[i]^2)^2 + (1-x[i])^2),
// minimal at (1, ..., 1). It needs at least two coordinates.
func Rosenbrock(x []float64) (float64, error) {
	if len(x) < 2 {
		return 0, NewErrorf("rosenbrock needs at least 2 coordinates, got %d", len(x))
	}
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum, nil
}

// Shift returns f translated so that its minimum moves by offset.
func Shift(f ObjectiveFunction, offset []float64) ObjectiveFunction {
	return func(x []float64) (float64, error) {
		if len(x) != len(offset) {
			return 0, NewError(fmt.Sprintf("point has %d coordinates, offset has %d", len(x), len(offset)))
		}
		shifted := make([]float64, len(x))
		for i := range x {
			shifted[i] = x[i] - offset[i]
		}
		return f(shifted)
	}
}
