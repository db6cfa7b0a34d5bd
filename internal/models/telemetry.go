package models

import (
	"encoding/json"
	"fmt"
)

// Topology identifies the hydroponic layout of a unit. Soil units have none.
type Topology string

const (
	TopologyNone    Topology = ""
	TopologyNFT     Topology = "nft"
	TopologyDWC     Topology = "dwc"
	TopologyEbbFlow Topology = "ebb_flow"
	TopologyDrip    Topology = "drip"
)

// SubsystemTelemetry is the per-topology telemetry attached to a log entry.
// Each topology reports different fields, so consumers dispatch on the
// concrete type rather than inspecting string-keyed maps.
type SubsystemTelemetry interface {
	Topology() Topology
}

// NFTTelemetry covers nutrient film technique channels.
type NFTTelemetry struct {
	PumpRunning bool     `json:"pump_running"`
	FlowRateLpm *float64 `json:"flow_rate_lpm,omitempty"`
}

func (NFTTelemetry) Topology() Topology { return TopologyNFT }

// DWCTelemetry covers deep water culture buckets.
type DWCTelemetry struct {
	AirStonesRunning bool     `json:"air_stones_running"`
	DissolvedO2Mgl   *float64 `json:"dissolved_o2_mgl,omitempty"`
}

func (DWCTelemetry) Topology() Topology { return TopologyDWC }

// EbbFlowTelemetry covers flood-and-drain tables.
type EbbFlowTelemetry struct {
	FloodCycles  *int `json:"flood_cycles,omitempty"`
	DrainWorking bool `json:"drain_working"`
}

func (EbbFlowTelemetry) Topology() Topology { return TopologyEbbFlow }

// DripTelemetry covers drip irrigation lines.
type DripTelemetry struct {
	EmittersClogged *int     `json:"emitters_clogged,omitempty"`
	DripRateLph     *float64 `json:"drip_rate_lph,omitempty"`
}

func (DripTelemetry) Topology() Topology { return TopologyDrip }

// EncodeTelemetry serializes telemetry for storage as (kind, json) columns.
// Nil telemetry encodes to an empty kind and empty payload.
func EncodeTelemetry(t SubsystemTelemetry) (kind string, payload string, err error) {
	if t == nil {
		return "", "", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", "", fmt.Errorf("marshal telemetry: %w", err)
	}
	return string(t.Topology()), string(b), nil
}

// DecodeTelemetry reverses EncodeTelemetry. Unknown kinds are an error so
// schema drift surfaces instead of silently dropping telemetry.
func DecodeTelemetry(kind, payload string) (SubsystemTelemetry, error) {
	if kind == "" {
		return nil, nil
	}
	switch Topology(kind) {
	case TopologyNFT:
		var t NFTTelemetry
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("unmarshal nft telemetry: %w", err)
		}
		return t, nil
	case TopologyDWC:
		var t DWCTelemetry
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("unmarshal dwc telemetry: %w", err)
		}
		return t, nil
	case TopologyEbbFlow:
		var t EbbFlowTelemetry
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("unmarshal ebb_flow telemetry: %w", err)
		}
		return t, nil
	case TopologyDrip:
		var t DripTelemetry
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("unmarshal drip telemetry: %w", err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown telemetry kind %q", kind)
}
