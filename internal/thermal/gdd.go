// Package thermal accumulates growing degree days, the thermal-time proxy
// used for maturity tracking.
package thermal

// DailyGDD computes one day's growing degree days from a max/min temperature
// pair: max(0, (tmax+tmin)/2 - base). Cold days clamp to zero, they never
// subtract from the accumulator.
//
// When a day has only a single known temperature (ghost rows synthesized from
// a daily midpoint, or manual single-reading logs), callers pass the same
// value for both tmax and tmin. That simplification is part of the scoring
// contract: historical scores must reproduce exactly, so it stays even though
// a fitted diurnal curve would be more physical.
func DailyGDD(tempMax, tempMin, baseTempC float64) float64 {
	gdd := (tempMax+tempMin)/2 - baseTempC
	if gdd < 0 {
		return 0
	}
	return gdd
}

// Accumulate sums daily GDD values. Callers are responsible for supplying at
// most one value per calendar day; the accumulator itself has no notion of
// dates.
func Accumulate(daily []float64) float64 {
	var total float64
	for _, v := range daily {
		total += v
	}
	return total
}
