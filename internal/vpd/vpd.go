// Package vpd computes vapor pressure deficit, the air-moisture stress proxy
// behind the disease-risk and transpiration checks.
package vpd

import "math"

// RiskBand classifies a VPD value for grower-facing display.
type RiskBand string

const (
	BandFungalRisk  RiskBand = "fungal_risk"  // < 0.4 kPa: low transpiration, condensation risk
	BandCautionLow  RiskBand = "caution_low"  // 0.4–0.8 kPa
	BandOptimal     RiskBand = "optimal"      // 0.8–1.2 kPa
	BandCautionHigh RiskBand = "caution_high" // 1.2–1.6 kPa
	BandHighDryness RiskBand = "high_dryness" // > 1.6 kPa: stomatal closure likely
)

// Result carries the computed pressures and classification.
type Result struct {
	SVPkPa         float64  `json:"svp_kpa"`
	VPDkPa         float64  `json:"vpd_kpa"`
	Band           RiskBand `json:"risk_band"`
	Recommendation string   `json:"recommendation"`
}

var recommendations = map[RiskBand]string{
	BandFungalRisk:  "Air too humid: increase airflow or dehumidify to reduce fungal pressure",
	BandCautionLow:  "Slightly humid: monitor for condensation on leaves",
	BandOptimal:     "VPD in optimal transpiration range",
	BandCautionHigh: "Slightly dry: plants transpiring hard, check reservoir levels",
	BandHighDryness: "Air too dry: raise humidity or lower temperature to avoid stomatal closure",
}

// Compute returns the VPD for an air temperature and relative humidity pair.
// It returns nil when either input is outside its physical domain: VPD is
// only meaningful when both readings exist for the same day, and callers
// treat a nil result as "not computed" rather than zero.
//
// Saturation vapor pressure uses the Tetens approximation:
// svp = 0.6108 * exp(17.27*T / (T+237.3)).
func Compute(tempC, relHumidityPct float64) *Result {
	if math.IsNaN(tempC) || math.IsNaN(relHumidityPct) {
		return nil
	}
	if tempC < -40 || tempC > 60 {
		return nil
	}
	if relHumidityPct < 0 || relHumidityPct > 100 {
		return nil
	}

	svp := 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
	deficit := svp * (1 - relHumidityPct/100)

	band := classify(deficit)
	return &Result{
		SVPkPa:         svp,
		VPDkPa:         deficit,
		Band:           band,
		Recommendation: recommendations[band],
	}
}

// boundaryTolerance widens the optimal band slightly so readings a hair
// outside 0.8–1.2 kPa (e.g. 0.792) do not flap between optimal and caution.
const boundaryTolerance = 0.01

func classify(vpdKPa float64) RiskBand {
	switch {
	case vpdKPa >= 0.8-boundaryTolerance && vpdKPa <= 1.2+boundaryTolerance:
		return BandOptimal
	case vpdKPa < 0.4:
		return BandFungalRisk
	case vpdKPa < 0.8:
		return BandCautionLow
	case vpdKPa <= 1.6:
		return BandCautionHigh
	default:
		return BandHighDryness
	}
}
