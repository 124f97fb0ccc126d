// internal/models/meal.go
package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidMealType = errors.New("invalid meal type")
	ErrInvalidMeal     = errors.New("invalid meal")
)

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

func ParseMealType(s string) (MealType, error) {
	t := MealType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Breakfast, Lunch, Dinner, Snack:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMealType, s)
}

const (
	SourceManual   = "manual"
	SourceAIParsed = "ai_parsed"
	SourcePhoto    = "photo"
)

type Meal struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Type          MealType         `json:"type"`
	Portions      []string         `json:"portions"`
	Timestamp     time.Time        `json:"timestamp"`
	GlucoseBefore *float64         `json:"glucose_before,omitempty"`
	GlucoseAfter  *float64         `json:"glucose_after,omitempty"`
	GlucoseLevel  *float64         `json:"glucose_level,omitempty"`
	TotalCarbs    *float64         `json:"total_carbs,omitempty"`
	Nutrition     *NutritionalInfo `json:"nutrition,omitempty"`
	Foods         []Food           `json:"foods"`
	IsAIAnalyzed  bool             `json:"is_ai_analyzed"`
	PhotoURL      string           `json:"photo_url,omitempty"`
	Source        string           `json:"source"` // "manual", "ai_parsed", "photo"
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (m *Meal) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMeal)
	}
	if _, err := ParseMealType(string(m.Type)); err != nil {
		return err
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidMeal)
	}
	for name, v := range map[string]*float64{
		"glucose_before": m.GlucoseBefore,
		"glucose_after":  m.GlucoseAfter,
		"glucose_level":  m.GlucoseLevel,
		"total_carbs":    m.TotalCarbs,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidMeal, name)
		}
	}
	if m.Nutrition != nil {
		if err := m.Nutrition.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GlucoseDifference is the post-meal minus pre-meal reading.
func (m *Meal) GlucoseDifference() (float64, bool) {
	if m.GlucoseBefore == nil || m.GlucoseAfter == nil {
		return 0, false
	}
	return *m.GlucoseAfter - *m.GlucoseBefore, true
}

func (m *Meal) GlucoseInNormalRange() (bool, bool) {
	if m.GlucoseLevel == nil {
		return false, false
	}
	return *m.GlucoseLevel >= 70 && *m.GlucoseLevel <= 140, true
}

// Carbs prefers the explicit total over the nutrition breakdown.
func (m *Meal) Carbs() (float64, bool) {
	if m.TotalCarbs != nil {
		return *m.TotalCarbs, true
	}
	if m.Nutrition != nil {
		return m.Nutrition.Carbohydrates, true
	}
	return 0, false
}

func (m *Meal) TotalMacronutrients() (float64, bool) {
	carbs, ok := m.Carbs()
	if !ok || m.Nutrition == nil {
		return 0, false
	}
	return carbs + m.Nutrition.Proteins + m.Nutrition.Fats, true
}

func (m *Meal) CarbsPercentage() (float64, bool) {
	carbs, _ := m.Carbs()
	total, ok := m.TotalMacronutrients()
	if !ok || total <= 0 {
		return 0, false
	}
	return carbs / total * 100, true
}

func (m *Meal) IsHighFiber() bool {
	return m.Nutrition != nil && m.Nutrition.Fiber > 5
}

func (m *Meal) CalorieCategory() string {
	if m.Nutrition == nil {
		return ""
	}
	switch c := m.Nutrition.Calories; {
	case c <= 150:
		return "light"
	case c <= 300:
		return "moderate"
	case c <= 500:
		return "substantial"
	default:
		return "high calorie"
	}
}

func (m *Meal) NutritionalSummary() string {
	var b strings.Builder
	b.WriteString("Nutritional summary:\n")
	if n := m.Nutrition; n != nil {
		fmt.Fprintf(&b, "- Calories: %d kcal\n", int(n.Calories))
	}
	if carbs, ok := m.Carbs(); ok {
		fmt.Fprintf(&b, "- Carbohydrates: %dg\n", int(carbs))
	}
	if n := m.Nutrition; n != nil {
		fmt.Fprintf(&b, "- Proteins: %dg\n", int(n.Proteins))
		fmt.Fprintf(&b, "- Fats: %dg\n", int(n.Fats))
		fmt.Fprintf(&b, "- Fiber: %dg\n", int(n.Fiber))
		fmt.Fprintf(&b, "- Glycemic index: %s\n", n.GlycemicIndex)
	}
	if m.GlucoseLevel != nil {
		fmt.Fprintf(&b, "- Glucose: %d mg/dL\n", int(*m.GlucoseLevel))
	}
	return b.String()
}

// MealFromAnalysis turns an accepted analysis into a meal entry. A positive
// portionGrams rescales the nutrition to the eaten amount; zero keeps the
// analysed portion.
func MealFromAnalysis(res *FoodAnalysisResult, mealType MealType, portionGrams float64, at time.Time) (*Meal, error) {
	if portionGrams < 0 || math.IsNaN(portionGrams) || math.IsInf(portionGrams, 0) {
		return nil, fmt.Errorf("%w: portion of %v grams", ErrInvalidScaleFactor, portionGrams)
	}
	nutrition := res.Nutrition
	if portionGrams > 0 {
		scaled, err := nutrition.ScaleToPortion(portionGrams)
		if err != nil {
			return nil, err
		}
		nutrition = scaled
	}
	carbs := nutrition.Carbohydrates
	return &Meal{
		Name:         res.FoodName,
		Type:         mealType,
		Portions:     []string{fmt.Sprintf("%.0fg %s", nutrition.PortionSize, res.FoodName)},
		Timestamp:    at,
		TotalCarbs:   &carbs,
		Nutrition:    &nutrition,
		IsAIAnalyzed: true,
		Source:       SourcePhoto,
	}, nil
}

// Food is one item of a text-analysed meal breakdown.
type Food struct {
	Name           string          `json:"name"`
	Quantity       string          `json:"quantity"`
	CarbsPer100g   float64         `json:"carbs_per_100g"`
	EstimatedCarbs float64         `json:"estimated_carbs"`
	Confidence     ConfidenceLevel `json:"confidence"`
}

type ConfidenceLevel string

const (
	HighConfidence   ConfidenceLevel = "high"
	MediumConfidence ConfidenceLevel = "medium"
	LowConfidence    ConfidenceLevel = "low"
)

type CarbCalculationRequest struct {
	MealDescription   string `json:"meal_description"`
	AskClarifications bool   `json:"ask_clarifications"`
}

type CarbCalculationResponse struct {
	Foods          []Food          `json:"foods"`
	TotalCarbs     float64         `json:"total_carbs"`
	Confidence     ConfidenceLevel `json:"confidence"`
	Clarifications []string        `json:"clarifications,omitempty"`
	NeedsMoreInfo  bool            `json:"needs_more_info"`
}
