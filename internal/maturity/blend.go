// Package maturity blends thermal progress and health into a single
// harvest-readiness percentage.
package maturity

import "math"

// Weights for the readiness blend. Health dominates: thermal time alone
// cannot indicate readiness if the unit is struggling.
const (
	gddWeight    = 0.4
	healthWeight = 0.6
)

// Progress returns thermal progress toward the crop's GDD target as a
// percentage capped at 100. A non-positive target yields zero rather than a
// division blowup; a misconfigured profile should read as "no progress", not
// "ready".
func Progress(gddAccumulated, gddTarget float64) float64 {
	if gddTarget <= 0 {
		return 0
	}
	pct := 100 * gddAccumulated / gddTarget
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// Blend combines GDD progress and health score into the maturity percentage,
// rounded to a whole percent and clamped to [0,100].
func Blend(gddProgressPct, healthScore float64) int {
	blended := gddProgressPct*gddWeight + healthScore*healthWeight
	if blended > 100 {
		blended = 100
	}
	if blended < 0 {
		blended = 0
	}
	return int(math.Round(blended))
}
