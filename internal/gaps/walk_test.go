package gaps

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/seedtray/growlog/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testUnit(planted string) models.CultivationUnit {
	return models.CultivationUnit{
		ID:          "unit-1",
		Crop:        "lettuce",
		System:      models.SystemHydro,
		PlantedDate: day(planted),
		Status:      models.UnitActive,
	}
}

func logOn(d string, createdAt time.Time) models.DailyLogEntry {
	return models.DailyLogEntry{
		UnitID:    "unit-1",
		Day:       day(d),
		PH:        sql.NullFloat64{Float64: 6.0, Valid: true},
		CreatedAt: createdAt,
	}
}

func weatherOn(days ...string) map[string]models.WeatherSample {
	samples := make(map[string]models.WeatherSample, len(days))
	for _, d := range days {
		samples[d] = models.WeatherSample{Date: day(d), TempMin: 12, TempMax: 24}
	}
	return samples
}

// The reference gap-accounting scenario: planted 10 days ago, real logs on
// days 1, 3 and 5, weather for days 2 and 4. Days 6-10 have neither, so five
// days are missing and catchup is needed.
func TestDetectGapAccounting(t *testing.T) {
	unit := testUnit("2026-03-01")
	now := day("2026-03-11") // 10 elapsed days, 2026-03-01 .. 2026-03-10
	created := day("2026-03-11")

	logs := []models.DailyLogEntry{
		logOn("2026-03-01", created),
		logOn("2026-03-03", created),
		logOn("2026-03-05", created),
	}
	weather := weatherOn("2026-03-02", "2026-03-04")

	report := Detect(unit, logs, weather, now)

	if len(report.Days) != 10 {
		t.Fatalf("len(Days) = %d, want 10", len(report.Days))
	}
	if report.LoggedDays != 3 {
		t.Errorf("LoggedDays = %d, want 3", report.LoggedDays)
	}
	if report.BackfilledDays != 2 {
		t.Errorf("BackfilledDays = %d, want 2", report.BackfilledDays)
	}
	if report.MissingDays != 5 {
		t.Errorf("MissingDays = %d, want 5", report.MissingDays)
	}
	if !report.NeedsCatchup {
		t.Error("NeedsCatchup = false, want true")
	}

	wantStatuses := []DayStatus{
		StatusLogged, StatusBackfilled, StatusLogged, StatusBackfilled, StatusLogged,
		StatusMissing, StatusMissing, StatusMissing, StatusMissing, StatusMissing,
	}
	for i, want := range wantStatuses {
		if report.Days[i].Status != want {
			t.Errorf("day %d (%s): status = %q, want %q", i, report.Days[i].Day.Format("2006-01-02"), report.Days[i].Status, want)
		}
	}

	ranges := report.MissingRanges()
	if len(ranges) != 1 {
		t.Fatalf("MissingRanges = %v, want one contiguous range", ranges)
	}
	if !ranges[0].Start.Equal(day("2026-03-06")) || !ranges[0].End.Equal(day("2026-03-11")) {
		t.Errorf("range = [%s, %s), want [2026-03-06, 2026-03-11)", ranges[0].Start.Format("2006-01-02"), ranges[0].End.Format("2006-01-02"))
	}
}

// A weather sample never displaces a real log for the same day.
func TestDetectRealLogWinsOverWeather(t *testing.T) {
	unit := testUnit("2026-03-01")
	logs := []models.DailyLogEntry{logOn("2026-03-01", day("2026-03-02"))}
	weather := weatherOn("2026-03-01")

	report := Detect(unit, logs, weather, day("2026-03-02"))

	if report.Days[0].Status != StatusLogged {
		t.Errorf("status = %q, want logged", report.Days[0].Status)
	}
	if len(report.Synthesized) != 0 {
		t.Errorf("Synthesized = %d rows, want 0", len(report.Synthesized))
	}
}

// The current open day is excluded: a unit planted today has nothing to miss.
func TestDetectExcludesOpenDay(t *testing.T) {
	unit := testUnit("2026-03-10")
	report := Detect(unit, nil, nil, day("2026-03-10"))

	if len(report.Days) != 0 {
		t.Errorf("len(Days) = %d, want 0", len(report.Days))
	}
	if report.NeedsCatchup {
		t.Error("NeedsCatchup = true for freshly planted unit")
	}
}

// Harvested units close their walk range at the harvest date.
func TestDetectHarvestedUnitClosesRange(t *testing.T) {
	unit := testUnit("2026-03-01")
	unit.Status = models.UnitHarvested
	unit.HarvestedDate = sql.NullTime{Time: day("2026-03-05"), Valid: true}

	report := Detect(unit, nil, nil, day("2026-04-01"))

	if len(report.Days) != 4 {
		t.Errorf("len(Days) = %d, want 4 (planted through harvest, exclusive)", len(report.Days))
	}
	if report.MissingDays != 4 {
		t.Errorf("MissingDays = %d, want 4", report.MissingDays)
	}
}

// Running the walk twice over the same inputs yields identical reports, ghost
// rows included. No randomness, no timestamp capture.
func TestDetectIdempotent(t *testing.T) {
	unit := testUnit("2026-03-01")
	logs := []models.DailyLogEntry{logOn("2026-03-02", day("2026-03-03"))}
	weather := weatherOn("2026-03-01", "2026-03-04")
	now := day("2026-03-06")

	first := Detect(unit, logs, weather, now)
	second := Detect(unit, logs, weather, now)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("reports differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	for _, ghost := range first.Synthesized {
		if !ghost.IsBackfilled {
			t.Error("synthesized entry missing IsBackfilled")
		}
		if !ghost.CreatedAt.IsZero() {
			t.Errorf("synthesized entry CreatedAt = %v, want zero until commit", ghost.CreatedAt)
		}
		if !ghost.Temp.Valid || ghost.Temp.Float64 != 18 {
			t.Errorf("ghost Temp = %+v, want midpoint 18", ghost.Temp)
		}
		if ghost.PH.Valid || ghost.EC.Valid || ghost.WaterTemp.Valid {
			t.Error("ghost entry invented sensor fields with no weather analogue")
		}
	}
}

func TestUnionRanges(t *testing.T) {
	r := func(start, end string) DateRange {
		return DateRange{Start: day(start), End: day(end)}
	}

	tests := []struct {
		name string
		in   []DateRange
		want []DateRange
	}{
		{"empty", nil, nil},
		{
			"disjoint stay split",
			[]DateRange{r("2026-03-01", "2026-03-03"), r("2026-03-05", "2026-03-07")},
			[]DateRange{r("2026-03-01", "2026-03-03"), r("2026-03-05", "2026-03-07")},
		},
		{
			"overlapping merge",
			[]DateRange{r("2026-03-01", "2026-03-05"), r("2026-03-03", "2026-03-08")},
			[]DateRange{r("2026-03-01", "2026-03-08")},
		},
		{
			"adjacent merge",
			[]DateRange{r("2026-03-01", "2026-03-03"), r("2026-03-03", "2026-03-05")},
			[]DateRange{r("2026-03-01", "2026-03-05")},
		},
		{
			"unsorted input",
			[]DateRange{r("2026-03-06", "2026-03-08"), r("2026-03-01", "2026-03-02"), r("2026-03-02", "2026-03-04")},
			[]DateRange{r("2026-03-01", "2026-03-04"), r("2026-03-06", "2026-03-08")},
		},
		{
			"contained range absorbed",
			[]DateRange{r("2026-03-01", "2026-03-10"), r("2026-03-03", "2026-03-05")},
			[]DateRange{r("2026-03-01", "2026-03-10")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnionRanges(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("UnionRanges = %v, want %v", got, tt.want)
			}
		})
	}
}
