// Package cropdb holds the static per-crop parameter tables: base temperature
// for thermal accumulation, GDD target for maturity, and ideal environmental
// ranges for health scoring. Profiles are read-only configuration; the engine
// never mutates them.
package cropdb

import (
	"fmt"
	"sort"
)

// Range is a closed ideal band for an environmental reading.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Profile is one crop's agronomic parameters.
type Profile struct {
	Name          string
	BaseTempC     float64
	GDDTarget     float64
	IdealPH       Range
	IdealEC       Range // mS/cm
	IdealTemp     Range // °C air
	IdealHumidity Range // % RH
}

var profiles = map[string]Profile{
	"lettuce": {
		Name:          "lettuce",
		BaseTempC:     4,
		GDDTarget:     550,
		IdealPH:       Range{5.5, 6.5},
		IdealEC:       Range{0.8, 1.8},
		IdealTemp:     Range{15, 22},
		IdealHumidity: Range{50, 70},
	},
	"basil": {
		Name:          "basil",
		BaseTempC:     10,
		GDDTarget:     450,
		IdealPH:       Range{5.5, 6.8},
		IdealEC:       Range{1.0, 1.6},
		IdealTemp:     Range{18, 27},
		IdealHumidity: Range{40, 60},
	},
	"tomato": {
		Name:          "tomato",
		BaseTempC:     10,
		GDDTarget:     1400,
		IdealPH:       Range{5.8, 6.5},
		IdealEC:       Range{2.0, 3.5},
		IdealTemp:     Range{18, 27},
		IdealHumidity: Range{60, 80},
	},
	"cucumber": {
		Name:          "cucumber",
		BaseTempC:     12,
		GDDTarget:     900,
		IdealPH:       Range{5.5, 6.0},
		IdealEC:       Range{1.7, 2.5},
		IdealTemp:     Range{21, 28},
		IdealHumidity: Range{60, 70},
	},
	"spinach": {
		Name:          "spinach",
		BaseTempC:     2,
		GDDTarget:     480,
		IdealPH:       Range{6.0, 7.0},
		IdealEC:       Range{1.0, 2.3},
		IdealTemp:     Range{10, 20},
		IdealHumidity: Range{45, 65},
	},
	"strawberry": {
		Name:          "strawberry",
		BaseTempC:     7,
		GDDTarget:     1100,
		IdealPH:       Range{5.5, 6.5},
		IdealEC:       Range{1.0, 1.4},
		IdealTemp:     Range{15, 26},
		IdealHumidity: Range{65, 75},
	},
	"kale": {
		Name:          "kale",
		BaseTempC:     4,
		GDDTarget:     600,
		IdealPH:       Range{5.5, 6.5},
		IdealEC:       Range{1.25, 1.5},
		IdealTemp:     Range{13, 21},
		IdealHumidity: Range{50, 70},
	},
}

// Lookup returns the profile for a crop name.
func Lookup(crop string) (Profile, error) {
	p, ok := profiles[crop]
	if !ok {
		return Profile{}, fmt.Errorf("no crop profile for %q", crop)
	}
	return p, nil
}

// Names lists the known crops, for seed data and input validation.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
