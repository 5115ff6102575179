package opt

// Optimizer minimizes a scalar objective over a box.
type Optimizer interface {
	// Run minimizes eval over [lower, upper] in dim dimensions and returns the
	// best point found with its cost. An error means no usable point was found.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error)
}
