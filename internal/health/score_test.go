package health

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/seedtray/growlog/internal/cropdb"
	"github.com/seedtray/growlog/internal/models"
)

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func lettuce(t *testing.T) cropdb.Profile {
	t.Helper()
	p, err := cropdb.Lookup("lettuce")
	if err != nil {
		t.Fatalf("lookup lettuce: %v", err)
	}
	return p
}

// sensorEntry returns an in-band sensor-grade entry for lettuce.
func sensorEntry() models.DailyLogEntry {
	return models.DailyLogEntry{
		PH:        nf(6.0),
		EC:        nf(1.2),
		Temp:      nf(20),
		Humidity:  nf(60),
		WaterTemp: nf(20),
	}
}

func TestScorePerfectEntry(t *testing.T) {
	res := Score(Input{
		Entry:       sensorEntry(),
		UnitAgeDays: 30,
		System:      models.SystemHydro,
		Profile:     lettuce(t),
	})

	if res.Score != 100 {
		t.Errorf("Score = %v, want 100", res.Score)
	}
	if len(res.Reasons) != 0 {
		t.Errorf("Reasons = %v, want none", res.Reasons)
	}
	for name, sub := range map[string]*float64{
		"ph": res.Breakdown.PH, "ec": res.Breakdown.EC,
		"temperature": res.Breakdown.Temperature, "humidity": res.Breakdown.Humidity,
	} {
		if sub == nil || *sub != 100 {
			t.Errorf("breakdown %s = %v, want 100", name, sub)
		}
	}
	if res.Breakdown.Stability != nil {
		t.Errorf("Stability = %v with no window, want nil", *res.Breakdown.Stability)
	}
}

func TestScorePenalties(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*models.DailyLogEntry)
		system     models.SystemKind
		ageDays    int
		wantScore  float64
		wantReason string
	}{
		{
			name:       "critical water temperature",
			mutate:     func(e *models.DailyLogEntry) { e.WaterTemp = nf(27) },
			system:     models.SystemHydro,
			ageDays:    30,
			wantScore:  70,
			wantReason: "water temperature",
		},
		{
			name:       "water temp ignored for soil",
			mutate:     func(e *models.DailyLogEntry) { e.WaterTemp = nf(27) },
			system:     models.SystemSoil,
			ageDays:    30,
			wantScore:  100,
			wantReason: "",
		},
		{
			name: "disease risk plus humidity drift",
			mutate: func(e *models.DailyLogEntry) {
				e.Temp = nf(22)
				e.Humidity = nf(95)
			},
			system:     models.SystemHydro,
			ageDays:    30,
			wantScore:  70, // -20 disease, -10 humidity drift
			wantReason: "fungal",
		},
		{
			name:       "pH drift",
			mutate:     func(e *models.DailyLogEntry) { e.PH = nf(7.5) },
			system:     models.SystemHydro,
			ageDays:    30,
			wantScore:  85,
			wantReason: "pH 7.5 outside ideal",
		},
		{
			name:       "EC drift",
			mutate:     func(e *models.DailyLogEntry) { e.EC = nf(2.4) },
			system:     models.SystemHydro,
			ageDays:    30,
			wantScore:  85,
			wantReason: "EC 2.40",
		},
		{
			name:       "out-of-domain pH skipped without penalty",
			mutate:     func(e *models.DailyLogEntry) { e.PH = nf(15.2) },
			system:     models.SystemHydro,
			ageDays:    30,
			wantScore:  100,
			wantReason: "ignored",
		},
		{
			name:       "establishment grace halves drift",
			mutate:     func(e *models.DailyLogEntry) { e.PH = nf(7.5) },
			system:     models.SystemHydro,
			ageDays:    1,
			wantScore:  92.5,
			wantReason: "pH 7.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := sensorEntry()
			tt.mutate(&entry)
			res := Score(Input{
				Entry:       entry,
				UnitAgeDays: tt.ageDays,
				System:      tt.system,
				Profile:     lettuce(t),
			})

			if res.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v (reasons: %v)", res.Score, tt.wantScore, res.Reasons)
			}
			if tt.wantReason == "" {
				if len(res.Reasons) != 0 {
					t.Errorf("Reasons = %v, want none", res.Reasons)
				}
				return
			}
			found := false
			for _, r := range res.Reasons {
				if strings.Contains(r, tt.wantReason) {
					found = true
				}
			}
			if !found {
				t.Errorf("Reasons %v missing %q", res.Reasons, tt.wantReason)
			}
		})
	}
}

func TestScoreSubsystemFaults(t *testing.T) {
	tests := []struct {
		name       string
		telemetry  models.SubsystemTelemetry
		wantScore  float64
		wantReason string
	}{
		{"nft pump down", models.NFTTelemetry{PumpRunning: false}, 80, "pump"},
		{"nft pump running", models.NFTTelemetry{PumpRunning: true}, 100, ""},
		{"dwc air stones down", models.DWCTelemetry{AirStonesRunning: false}, 80, "air stones"},
		{"ebb flow drain broken", models.EbbFlowTelemetry{DrainWorking: false}, 80, "drain"},
		{"drip emitters clogged", models.DripTelemetry{EmittersClogged: intPtr(3)}, 80, "3 drip emitters"},
		{"drip clear", models.DripTelemetry{EmittersClogged: intPtr(0)}, 100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := sensorEntry()
			entry.Telemetry = tt.telemetry
			res := Score(Input{
				Entry:       entry,
				UnitAgeDays: 30,
				System:      models.SystemHydro,
				Profile:     lettuce(t),
			})
			if res.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v (reasons: %v)", res.Score, tt.wantScore, res.Reasons)
			}
			if tt.wantReason != "" && (len(res.Reasons) == 0 || !strings.Contains(res.Reasons[0], tt.wantReason)) {
				t.Errorf("Reasons = %v, want mention of %q", res.Reasons, tt.wantReason)
			}
		})
	}
}

// Ghost and manual entries deduct at half confidence, and reasons say so.
func TestScoreDownWeightsEstimatedEntries(t *testing.T) {
	entry := models.DailyLogEntry{
		Temp:         nf(25), // outside lettuce ideal 15-22
		IsBackfilled: true,
	}
	res := Score(Input{
		Entry:       entry,
		UnitAgeDays: 30,
		System:      models.SystemSoil,
		Profile:     lettuce(t),
	})

	if res.Score != 95 { // half of the 10-point climate penalty
		t.Errorf("Score = %v, want 95 (reasons: %v)", res.Score, res.Reasons)
	}
	if len(res.Reasons) != 1 || !strings.Contains(res.Reasons[0], "estimated reading") {
		t.Errorf("Reasons = %v, want estimated-reading annotation", res.Reasons)
	}
	if res.Breakdown.Temperature == nil || *res.Breakdown.Temperature != 75 {
		t.Errorf("Temperature sub-score = %v, want 75", res.Breakdown.Temperature)
	}
}

func TestScoreStability(t *testing.T) {
	window := func(phs ...float64) []models.DailyLogEntry {
		entries := make([]models.DailyLogEntry, len(phs))
		for i, ph := range phs {
			entries[i] = models.DailyLogEntry{PH: nf(ph)}
		}
		return entries
	}

	t.Run("steady readings score high without penalty", func(t *testing.T) {
		res := Score(Input{
			Entry:       sensorEntry(),
			Window:      window(5.8, 6.0, 6.1, 5.9, 6.0),
			UnitAgeDays: 30,
			System:      models.SystemHydro,
			Profile:     lettuce(t),
		})
		if res.Breakdown.Stability == nil {
			t.Fatal("Stability = nil, want a sub-score")
		}
		if *res.Breakdown.Stability < 80 {
			t.Errorf("Stability = %v, want >= 80", *res.Breakdown.Stability)
		}
		if res.Score != 100 {
			t.Errorf("Score = %v, want 100", res.Score)
		}
	})

	t.Run("swinging readings deduct", func(t *testing.T) {
		res := Score(Input{
			Entry:       sensorEntry(),
			Window:      window(5.0, 7.0, 5.2, 6.9),
			UnitAgeDays: 30,
			System:      models.SystemHydro,
			Profile:     lettuce(t),
		})
		if res.Breakdown.Stability == nil {
			t.Fatal("Stability = nil, want a sub-score")
		}
		if *res.Breakdown.Stability >= 50 {
			t.Errorf("Stability = %v, want < 50", *res.Breakdown.Stability)
		}
		if res.Score != 90 {
			t.Errorf("Score = %v, want 90", res.Score)
		}
	})

	t.Run("fewer than three points reports no sub-score", func(t *testing.T) {
		res := Score(Input{
			Entry:       sensorEntry(),
			Window:      window(5.0, 7.0),
			UnitAgeDays: 30,
			System:      models.SystemHydro,
			Profile:     lettuce(t),
		})
		if res.Breakdown.Stability != nil {
			t.Errorf("Stability = %v, want nil for insufficient data", *res.Breakdown.Stability)
		}
		if res.Score != 100 {
			t.Errorf("Score = %v, want 100 (no stability penalty)", res.Score)
		}
	})
}

// The score never leaves [0,100] no matter how many penalties stack.
func TestScoreBounds(t *testing.T) {
	entry := models.DailyLogEntry{
		PH:        nf(9),
		EC:        nf(5),
		Temp:      nf(30),
		Humidity:  nf(98),
		WaterTemp: nf(30),
		Telemetry: models.NFTTelemetry{PumpRunning: false},
	}
	res := Score(Input{
		Entry:       entry,
		Window:      []models.DailyLogEntry{{PH: nf(4)}, {PH: nf(9)}, {PH: nf(4.5)}, {PH: nf(8.5)}},
		UnitAgeDays: 30,
		System:      models.SystemHydro,
		Profile:     lettuce(t),
	})

	if res.Score < 0 || res.Score > 100 {
		t.Fatalf("Score = %v, outside [0,100]", res.Score)
	}
	if res.Score != 0 {
		t.Errorf("Score = %v, want 0 for fully degraded unit", res.Score)
	}
	if len(res.Reasons) < 5 {
		t.Errorf("Reasons = %v, want at least 5 distinct causes", res.Reasons)
	}
}

func intPtr(v int) *int { return &v }
