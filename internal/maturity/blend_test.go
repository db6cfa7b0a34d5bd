package maturity

import (
	"math"
	"testing"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name        string
		accumulated float64
		target      float64
		want        float64
	}{
		{"halfway", 350, 700, 50},
		{"complete", 700, 700, 100},
		{"overshoot caps at 100", 900, 700, 100},
		{"nothing accumulated", 0, 700, 0},
		{"zero target", 350, 0, 0},
		{"negative target", 350, -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.accumulated, tt.target); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Progress(%v, %v) = %v, want %v", tt.accumulated, tt.target, got, tt.want)
			}
		})
	}
}

func TestBlend(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		health   float64
		want     int
	}{
		// 50% thermal progress at health 80: round(20 + 48) = 68.
		{"reference scenario", 50, 80, 68},
		{"full progress full health", 100, 100, 100},
		{"zero everything", 0, 0, 0},
		{"healthy but thermally early", 10, 100, 64},
		{"mature but unhealthy", 100, 20, 52},
		{"rounds half up", 51.25, 50, 51}, // 20.5 + 30 = 50.5
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Blend(tt.progress, tt.health); got != tt.want {
				t.Errorf("Blend(%v, %v) = %d, want %d", tt.progress, tt.health, got, tt.want)
			}
		})
	}
}

func TestBlendBounds(t *testing.T) {
	for progress := -50.0; progress <= 150; progress += 12.5 {
		for health := -50.0; health <= 150; health += 12.5 {
			got := Blend(progress, health)
			if got < 0 || got > 100 {
				t.Fatalf("Blend(%v, %v) = %d, outside [0,100]", progress, health, got)
			}
		}
	}
}
