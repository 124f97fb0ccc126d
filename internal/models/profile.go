// internal/models/profile.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidProfile = errors.New("invalid profile")

type DiabetesType string

const (
	Type1       DiabetesType = "type1"
	Type2       DiabetesType = "type2"
	Gestational DiabetesType = "gestational"
	Prediabetes DiabetesType = "prediabetes"
)

func (d DiabetesType) Valid() bool {
	switch d {
	case "", Type1, Type2, Gestational, Prediabetes:
		return true
	}
	return false
}

const (
	UnitsMgDL   = "mg/dL"
	UnitsMmolL  = "mmol/L"
	mgdlPerMmol = 18.0182
)

type GlucoseRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

var (
	NormalRange      = GlucoseRange{Min: 70, Max: 140}
	PrediabeticRange = GlucoseRange{Min: 70, Max: 125}
	DiabeticRange    = GlucoseRange{Min: 80, Max: 180}
)

func (r GlucoseRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

type UserProfile struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Age                  int          `json:"age"`
	DiabetesType         DiabetesType `json:"diabetes_type"`
	DiagnosisYear        string       `json:"diagnosis_year"`
	HasInsurance         bool         `json:"has_insurance"`
	PreferredLanguage    string       `json:"preferred_language"`
	PreferredUnits       string       `json:"preferred_units"`
	NotificationsEnabled bool         `json:"notifications_enabled"`
	WeightKg             float64      `json:"weight_kg"`
	HeightCm             float64      `json:"height_cm"`
}

// NewUserProfile returns a profile with the onboarding defaults filled in.
func NewUserProfile(name string, age int) UserProfile {
	return UserProfile{
		Name:                 name,
		Age:                  age,
		PreferredLanguage:    "es",
		PreferredUnits:       UnitsMgDL,
		NotificationsEnabled: true,
		WeightKg:             70,
		HeightCm:             170,
	}
}

func (p *UserProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if p.Age < 0 || p.Age > 130 {
		return fmt.Errorf("%w: age %d out of range", ErrInvalidProfile, p.Age)
	}
	if !p.DiabetesType.Valid() {
		return fmt.Errorf("%w: unknown diabetes type %q", ErrInvalidProfile, p.DiabetesType)
	}
	if p.PreferredUnits != UnitsMgDL && p.PreferredUnits != UnitsMmolL {
		return fmt.Errorf("%w: unknown units %q", ErrInvalidProfile, p.PreferredUnits)
	}
	if p.WeightKg < 0 || p.HeightCm < 0 {
		return fmt.Errorf("%w: weight and height must not be negative", ErrInvalidProfile)
	}
	if p.DiagnosisYear != "" {
		if _, err := time.Parse("2006", p.DiagnosisYear); err != nil {
			return fmt.Errorf("%w: diagnosis year %q", ErrInvalidProfile, p.DiagnosisYear)
		}
	}
	return nil
}

// TargetRange is the glucose range a reading is judged against.
func (p *UserProfile) TargetRange() GlucoseRange {
	switch p.DiabetesType {
	case Prediabetes:
		return PrediabeticRange
	case Type1, Type2, Gestational:
		return DiabeticRange
	}
	return NormalRange
}

// BMI expects height in centimeters and weight in kilograms.
func (p *UserProfile) BMI() (float64, error) {
	return CalculateBMI(p.HeightCm, p.WeightKg)
}

func CalculateBMI(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, errors.New("height and weight must be positive")
	}
	if heightCm < 50 || heightCm > 250 || weightKg < 10 || weightKg > 400 {
		return 0, errors.New("height/weight out of plausible range")
	}

	h := heightCm / 100.0
	return weightKg / (h * h), nil
}

func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25.0:
		return "Normal weight"
	case bmi < 30.0:
		return "Overweight"
	case bmi < 35.0:
		return "Obesity class I"
	case bmi < 40.0:
		return "Obesity class II"
	default:
		return "Obesity class III"
	}
}
