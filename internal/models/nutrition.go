// internal/models/nutrition.go
package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidGlycemicIndex = errors.New("invalid glycemic index")
	ErrInvalidNutrition     = errors.New("invalid nutritional info")
	ErrInvalidScaleFactor   = errors.New("invalid scale factor")
)

type GlycemicIndex string

const (
	GILow    GlycemicIndex = "low"
	GIMedium GlycemicIndex = "medium"
	GIHigh   GlycemicIndex = "high"
)

// GlycemicIndexes lists the buckets in ascending order.
var GlycemicIndexes = []GlycemicIndex{GILow, GIMedium, GIHigh}

// Range returns the inclusive numeric GI range of the bucket.
func (g GlycemicIndex) Range() (lower, upper int) {
	switch g {
	case GILow:
		return 0, 55
	case GIMedium:
		return 56, 69
	case GIHigh:
		return 70, 100
	}
	return 0, 0
}

func (g GlycemicIndex) Valid() bool {
	switch g {
	case GILow, GIMedium, GIHigh:
		return true
	}
	return false
}

func (g GlycemicIndex) RangeLabel() string {
	lo, hi := g.Range()
	return fmt.Sprintf("%d-%d", lo, hi)
}

// GlycemicIndexFor maps a numeric glycemic index onto its bucket.
func GlycemicIndexFor(value int) (GlycemicIndex, error) {
	for _, g := range GlycemicIndexes {
		lo, hi := g.Range()
		if value >= lo && value <= hi {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %d is outside 0-100", ErrInvalidGlycemicIndex, value)
}

type FoodCategory string

const (
	CategoryFruit       FoodCategory = "fruit"
	CategoryVegetable   FoodCategory = "vegetable"
	CategoryProtein     FoodCategory = "protein"
	CategoryGrain       FoodCategory = "grain"
	CategoryDairy       FoodCategory = "dairy"
	CategoryFastFood    FoodCategory = "fast_food"
	CategoryDessert     FoodCategory = "dessert"
	CategoryMexicanFood FoodCategory = "mexican_food"
	CategoryOther       FoodCategory = "other"
)

func (c FoodCategory) Valid() bool {
	switch c {
	case CategoryFruit, CategoryVegetable, CategoryProtein, CategoryGrain, CategoryDairy,
		CategoryFastFood, CategoryDessert, CategoryMexicanFood, CategoryOther:
		return true
	}
	return false
}

// NutritionalInfo holds the nutrition of one portion. Macro values are grams,
// sodium is milligrams.
type NutritionalInfo struct {
	Calories      float64       `json:"calories" yaml:"calories"`
	Carbohydrates float64       `json:"carbohydrates" yaml:"carbohydrates"`
	Proteins      float64       `json:"proteins" yaml:"proteins"`
	Fats          float64       `json:"fats" yaml:"fats"`
	Fiber         float64       `json:"fiber" yaml:"fiber"`
	Sugars        float64       `json:"sugars" yaml:"sugars"`
	Sodium        float64       `json:"sodium" yaml:"sodium"`
	GlycemicIndex GlycemicIndex `json:"glycemic_index" yaml:"glycemic_index"`
	PortionSize   float64       `json:"portion_size" yaml:"portion_size"`
}

// GlycemicLoad estimates carbs x GI lower bound / 100. Never negative.
func (n NutritionalInfo) GlycemicLoad() float64 {
	lo, _ := n.GlycemicIndex.Range()
	carbs := math.Max(n.Carbohydrates, 0)
	return carbs * float64(lo) / 100.0
}

func (n NutritionalInfo) GlucoseImpact() string {
	gl := n.GlycemicLoad()
	switch {
	case gl <= 10:
		return "low impact"
	case gl < 20:
		return "moderate impact"
	default:
		return "high impact"
	}
}

// Scale multiplies every macro field and the portion size by f.
func (n NutritionalInfo) Scale(f float64) (NutritionalInfo, error) {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return NutritionalInfo{}, fmt.Errorf("%w: %v", ErrInvalidScaleFactor, f)
	}
	if f == 1 {
		return n, nil
	}
	return NutritionalInfo{
		Calories:      n.Calories * f,
		Carbohydrates: n.Carbohydrates * f,
		Proteins:      n.Proteins * f,
		Fats:          n.Fats * f,
		Fiber:         n.Fiber * f,
		Sugars:        n.Sugars * f,
		Sodium:        n.Sodium * f,
		GlycemicIndex: n.GlycemicIndex,
		PortionSize:   n.PortionSize * f,
	}, nil
}

func (n NutritionalInfo) ScaleToPortion(grams float64) (NutritionalInfo, error) {
	if n.PortionSize <= 0 {
		return NutritionalInfo{}, fmt.Errorf("%w: portion size must be positive", ErrInvalidNutrition)
	}
	return n.Scale(grams / n.PortionSize)
}

func (n NutritionalInfo) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"calories", n.Calories},
		{"carbohydrates", n.Carbohydrates},
		{"proteins", n.Proteins},
		{"fats", n.Fats},
		{"fiber", n.Fiber},
		{"sugars", n.Sugars},
		{"sodium", n.Sodium},
		{"portion_size", n.PortionSize},
	}
	for _, f := range fields {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidNutrition, f.name)
		}
	}
	if !n.GlycemicIndex.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGlycemicIndex, n.GlycemicIndex)
	}
	return nil
}

type InsightCategory string

const (
	InsightGlucose   InsightCategory = "glucose"
	InsightNutrition InsightCategory = "nutrition"
	InsightPortion   InsightCategory = "portion"
	InsightTiming    InsightCategory = "timing"
)

type InsightSeverity string

const (
	SeverityInfo     InsightSeverity = "info"
	SeverityWarning  InsightSeverity = "warning"
	SeverityCritical InsightSeverity = "critical"
)

type HealthInsight struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    InsightCategory `json:"category"`
	Severity    InsightSeverity `json:"severity"`
}

type FoodAnalysisResult struct {
	FoodName   string          `json:"food_name"`
	Category   FoodCategory    `json:"category"`
	Confidence float64         `json:"confidence"`
	Nutrition  NutritionalInfo `json:"nutrition"`
	Insights   []HealthInsight `json:"insights"`
	Timestamp  time.Time       `json:"timestamp"`
	Source     string          `json:"source"`
}
