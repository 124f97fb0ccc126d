// internal/mealstore/summary.go
package mealstore

import (
	"math"

	"mcp-glucose-log/internal/models"
)

// Summary aggregates a set of meals. Nutrition totals cover AI-analyzed
// meals, which are the only ones with a nutrition breakdown.
type Summary struct {
	Count int `json:"count"`

	GlucoseCount   int     `json:"glucose_count"`
	AverageGlucose float64 `json:"average_glucose"`
	MinGlucose     float64 `json:"min_glucose"`
	MaxGlucose     float64 `json:"max_glucose"`

	CarbCount    int     `json:"carb_count"`
	TotalCarbs   float64 `json:"total_carbs"`
	AverageCarbs float64 `json:"average_carbs"`
	MaxCarbs     float64 `json:"max_carbs"`

	AIMeals         int     `json:"ai_meals"`
	AIPercentage    float64 `json:"ai_percentage"`
	AICalories      float64 `json:"ai_calories"`
	AverageCalories float64 `json:"average_calories"`
	TotalProteins   float64 `json:"total_proteins"`
	AverageProteins float64 `json:"average_proteins"`
	TotalFats       float64 `json:"total_fats"`
	TotalFiber      float64 `json:"total_fiber"`

	GlycemicDistribution  map[models.GlycemicIndex]int `json:"glycemic_distribution"`
	// DominantGlycemicIndex is the most frequent bucket, lowest on ties,
	// and empty without AI meals.
	DominantGlycemicIndex models.GlycemicIndex         `json:"dominant_glycemic_index,omitempty"`
	TypeDistribution      map[models.MealType]int      `json:"type_distribution"`
}

// Summarize aggregates meals. Averages are zero when nothing contributes.
func Summarize(meals []models.Meal) Summary {
	s := Summary{
		Count:                len(meals),
		GlycemicDistribution: map[models.GlycemicIndex]int{},
		TypeDistribution:     map[models.MealType]int{},
	}
	for _, g := range models.GlycemicIndexes {
		s.GlycemicDistribution[g] = 0
	}
	for _, t := range []models.MealType{models.Breakfast, models.Lunch, models.Dinner, models.Snack} {
		s.TypeDistribution[t] = 0
	}

	var glucoseSum float64
	var nutritionCount int
	for i := range meals {
		m := &meals[i]
		s.TypeDistribution[m.Type]++

		if m.GlucoseLevel != nil {
			g := *m.GlucoseLevel
			if s.GlucoseCount == 0 {
				s.MinGlucose, s.MaxGlucose = g, g
			}
			s.MinGlucose = math.Min(s.MinGlucose, g)
			s.MaxGlucose = math.Max(s.MaxGlucose, g)
			glucoseSum += g
			s.GlucoseCount++
		}
		if carbs, ok := m.Carbs(); ok {
			s.TotalCarbs += carbs
			s.MaxCarbs = math.Max(s.MaxCarbs, carbs)
			s.CarbCount++
		}
		if !m.IsAIAnalyzed {
			continue
		}
		s.AIMeals++
		if n := m.Nutrition; n != nil {
			nutritionCount++
			s.AICalories += n.Calories
			s.TotalProteins += n.Proteins
			s.TotalFats += n.Fats
			s.TotalFiber += n.Fiber
			if n.GlycemicIndex.Valid() {
				s.GlycemicDistribution[n.GlycemicIndex]++
			}
		}
	}

	if s.GlucoseCount > 0 {
		s.AverageGlucose = glucoseSum / float64(s.GlucoseCount)
	}
	if s.CarbCount > 0 {
		s.AverageCarbs = s.TotalCarbs / float64(s.CarbCount)
	}
	if nutritionCount > 0 {
		s.AverageCalories = s.AICalories / float64(nutritionCount)
		s.AverageProteins = s.TotalProteins / float64(nutritionCount)
	}
	if s.Count > 0 {
		s.AIPercentage = float64(s.AIMeals) * 100 / float64(s.Count)
	}

	best := 0
	for _, g := range models.GlycemicIndexes {
		if n := s.GlycemicDistribution[g]; n > best {
			best = n
			s.DominantGlycemicIndex = g
		}
	}
	return s
}
