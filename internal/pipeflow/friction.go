package pipeflow

import "math"

// nikuradse returns the fully rough Darcy friction factor for a pipe of
// diameter d (m) and roughness k (mm).
func nikuradse(d, kMm float64) float64 {
	k := kMm / 1000
	if k <= 0 {
		// hydraulically smooth limit
		k = 1e-6
	}
	denom := 2 * math.Log10(3.71*d/k)
	return 1 / (denom * denom)
}
