// Package field evaluates the attenuated signal density of a scene at a
// point and reports which source dominates there.
package field

// Baseline is the density reported where no source contributes more.
const Baseline = 1e-3

// NoSource is the dominant index reported when no source beats Baseline.
const NoSource = 1.0

// Decay returns 1/(distance/intensity+1)^2. It is 1 at distance 0 and falls
// monotonically towards 0. Negative distances are clamped to 0: a query point
// inside a box can be charged more occlusion than its straight-line distance.
func Decay(distance, intensity float64) float64 {
	if distance < 0 {
		distance = 0
	}
	d := distance/intensity + 1
	return 1 / (d * d)
}

// WallPenalty is subtracted from the decayed density for the given occluded
// path length. It is not clamped, so heavy occlusion yields negative density.
func WallPenalty(pathLength, factor float64) float64 {
	return pathLength * factor
}
