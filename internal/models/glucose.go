// internal/models/glucose.go
package models

import "time"

type GlucoseReading struct {
	Value     float64   `json:"value"` // mg/dL
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

type GlucoseClass string

const (
	GlucoseLow         GlucoseClass = "low"
	GlucoseNormal      GlucoseClass = "normal"
	GlucosePrediabetes GlucoseClass = "prediabetes"
	GlucoseHigh        GlucoseClass = "high"
)

func ClassifyGlucose(mgdl float64) GlucoseClass {
	switch {
	case mgdl <= 70:
		return GlucoseLow
	case mgdl <= 99:
		return GlucoseNormal
	case mgdl <= 125:
		return GlucosePrediabetes
	default:
		return GlucoseHigh
	}
}

func (r GlucoseReading) Classification() GlucoseClass {
	return ClassifyGlucose(r.Value)
}

func MgDLToMmolL(mgdl float64) float64 {
	return mgdl / mgdlPerMmol
}

func MmolLToMgDL(mmol float64) float64 {
	return mmol * mgdlPerMmol
}
