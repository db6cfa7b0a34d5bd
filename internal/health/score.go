// Package health scores a unit's most recent authoritative log against its
// crop profile, producing a bounded 0-100 score with per-factor breakdown and
// ordered human-readable reasons for every deduction.
package health

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/seedtray/growlog/internal/cropdb"
	"github.com/seedtray/growlog/internal/models"
	"github.com/seedtray/growlog/internal/vpd"
)

const (
	penaltyCritical  = 30.0 // environmental breach, e.g. hot root zone
	penaltySubsystem = 20.0 // pump/airstone/drain fault
	penaltyDisease   = 20.0 // fungal/bacterial risk conditions
	penaltyDrift     = 15.0 // pH or EC outside the crop's ideal band
	penaltyClimate   = 10.0 // air temp or humidity outside the ideal band
	penaltyUnstable  = 10.0 // high variance across the scoring window

	criticalWaterTempC = 25.0

	// Readings on estimated entries (ghost backfills, manual logs without
	// sensor data) carry half the penalty weight: a hand-entered pH of 7.1
	// should not deduct with the same confidence as a calibrated probe.
	estimatedWeight = 0.5

	// Drift penalties are softened while a unit establishes itself; readings
	// swing in the first days after transplant without indicating trouble.
	establishmentDays = 3

	// Stability needs at least this many points before variance means
	// anything. Below it the sub-score is reported as absent, never zero.
	minStabilityPoints = 3

	unstablePHStddev = 0.5
)

// Input bundles everything the scorer needs for one evaluation.
type Input struct {
	Entry       models.DailyLogEntry
	Window      []models.DailyLogEntry // recent authoritative entries, ascending by day
	UnitAgeDays int
	System      models.SystemKind
	Profile     cropdb.Profile
}

// Result is the scored outcome. Reasons are ordered by evaluation: critical
// breaches first, then subsystem faults, disease risk, drift, stability.
type Result struct {
	Score     float64
	Reasons   []string
	Breakdown models.HealthBreakdown
}

// Score evaluates a single log entry. Every penalty category applies at most
// once, invalid fields are skipped with a reason rather than failing the
// evaluation, and the final score is clamped to [0,100].
func Score(in Input) Result {
	entry := in.Entry
	profile := in.Profile

	score := 100.0
	var reasons []string
	var breakdown models.HealthBreakdown

	estimated := entry.IsBackfilled || !entry.HasSensorData()
	weight := 1.0
	if estimated {
		weight = estimatedWeight
	}
	driftWeight := weight
	if in.UnitAgeDays >= 0 && in.UnitAgeDays < establishmentDays {
		driftWeight *= 0.5
	}

	// Critical root-zone breach. Only meaningful for hydroponics; soil beds
	// buffer water temperature.
	if in.System == models.SystemHydro && entry.WaterTemp.Valid {
		if wt := entry.WaterTemp.Float64; wt > criticalWaterTempC {
			score -= penaltyCritical * weight
			reasons = append(reasons, annotate(fmt.Sprintf("water temperature %.1f°C exceeds %.0f°C root-zone limit", wt, criticalWaterTempC), estimated))
		}
	}

	// Subsystem faults are boolean observations, not precision readings, so
	// they always deduct at full weight.
	if fault := subsystemFault(entry.Telemetry); fault != "" {
		score -= penaltySubsystem
		reasons = append(reasons, fault)
	}

	// Disease risk: warm, near-saturated air. Requires both readings.
	if entry.Temp.Valid && entry.Humidity.Valid {
		if v := vpd.Compute(entry.Temp.Float64, entry.Humidity.Float64); v != nil && v.Band == vpd.BandFungalRisk {
			score -= penaltyDisease * weight
			reasons = append(reasons, annotate(fmt.Sprintf("VPD %.2f kPa with %.0f%% humidity favors fungal growth", v.VPDkPa, entry.Humidity.Float64), estimated))
		}
	}

	// pH drift.
	if entry.PH.Valid {
		ph := entry.PH.Float64
		if ph < 0 || ph > 14 {
			reasons = append(reasons, fmt.Sprintf("pH reading %.1f outside 0-14, ignored", ph))
		} else if !profile.IdealPH.Contains(ph) {
			score -= penaltyDrift * driftWeight
			reasons = append(reasons, annotate(fmt.Sprintf("pH %.1f outside ideal %.1f-%.1f for %s", ph, profile.IdealPH.Min, profile.IdealPH.Max, profile.Name), estimated))
			breakdown.PH = subScore(40, estimated)
		} else {
			breakdown.PH = subScore(100, false)
		}
	}

	// EC drift.
	if entry.EC.Valid {
		ec := entry.EC.Float64
		if ec < 0 {
			reasons = append(reasons, fmt.Sprintf("EC reading %.2f below zero, ignored", ec))
		} else if !profile.IdealEC.Contains(ec) {
			score -= penaltyDrift * driftWeight
			reasons = append(reasons, annotate(fmt.Sprintf("EC %.2f mS/cm outside ideal %.1f-%.1f for %s", ec, profile.IdealEC.Min, profile.IdealEC.Max, profile.Name), estimated))
			breakdown.EC = subScore(40, estimated)
		} else {
			breakdown.EC = subScore(100, false)
		}
	}

	// Air temperature drift.
	if entry.Temp.Valid {
		temp := entry.Temp.Float64
		if !profile.IdealTemp.Contains(temp) {
			score -= penaltyClimate * driftWeight
			reasons = append(reasons, annotate(fmt.Sprintf("air temperature %.1f°C outside ideal %.0f-%.0f°C", temp, profile.IdealTemp.Min, profile.IdealTemp.Max), estimated))
			breakdown.Temperature = subScore(50, estimated)
		} else {
			breakdown.Temperature = subScore(100, false)
		}
	}

	// Humidity drift.
	if entry.Humidity.Valid {
		rh := entry.Humidity.Float64
		if rh < 0 || rh > 100 {
			reasons = append(reasons, fmt.Sprintf("humidity reading %.0f%% outside 0-100, ignored", rh))
		} else if !profile.IdealHumidity.Contains(rh) {
			score -= penaltyClimate * driftWeight
			reasons = append(reasons, annotate(fmt.Sprintf("humidity %.0f%% outside ideal %.0f-%.0f%%", rh, profile.IdealHumidity.Min, profile.IdealHumidity.Max), estimated))
			breakdown.Humidity = subScore(50, estimated)
		} else {
			breakdown.Humidity = subScore(100, false)
		}
	}

	// Stability across the scoring window.
	if stability, ok := stabilityScore(in.Window); ok {
		breakdown.Stability = &stability
		if stability < 50 {
			score -= penaltyUnstable
			reasons = append(reasons, "pH readings unstable across recent logs")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{Score: score, Reasons: reasons, Breakdown: breakdown}
}

// stabilityScore maps the standard deviation of recent pH readings onto a
// 0-100 sub-score. It reports ok=false when fewer than minStabilityPoints
// readings exist; too little data is not the same as instability.
func stabilityScore(window []models.DailyLogEntry) (float64, bool) {
	var series []float64
	for _, e := range window {
		if e.PH.Valid && e.PH.Float64 >= 0 && e.PH.Float64 <= 14 {
			series = append(series, e.PH.Float64)
		}
	}
	if len(series) < minStabilityPoints {
		return 0, false
	}

	stddev, err := stats.StandardDeviation(series)
	if err != nil {
		return 0, false
	}

	// σ of 0 maps to 100, σ of unstablePHStddev to 50, 2x that to 0.
	score := 100 - (stddev/unstablePHStddev)*50
	if score < 0 {
		score = 0
	}
	return score, true
}

// subsystemFault inspects topology-specific telemetry for hard failures.
func subsystemFault(t models.SubsystemTelemetry) string {
	switch v := t.(type) {
	case models.NFTTelemetry:
		if !v.PumpRunning {
			return "NFT circulation pump not running"
		}
	case models.DWCTelemetry:
		if !v.AirStonesRunning {
			return "DWC air stones not running, roots at risk of anoxia"
		}
	case models.EbbFlowTelemetry:
		if !v.DrainWorking {
			return "ebb and flow drain not working"
		}
	case models.DripTelemetry:
		if v.EmittersClogged != nil && *v.EmittersClogged > 0 {
			return fmt.Sprintf("%d drip emitters clogged", *v.EmittersClogged)
		}
	}
	return ""
}

func annotate(reason string, estimated bool) string {
	if estimated {
		return reason + " (estimated reading)"
	}
	return reason
}

func subScore(base float64, estimated bool) *float64 {
	v := base
	if estimated && base < 100 {
		// Estimated readings deduct less, mirror that in the sub-score.
		v = (base + 100) / 2
	}
	return &v
}
