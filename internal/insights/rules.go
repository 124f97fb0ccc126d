// internal/insights/rules.go
package insights

import (
	"fmt"

	"mcp-glucose-log/internal/models"
)

const (
	highCarbThreshold    = 30.0
	lowCarbThreshold     = 10.0
	highFiberThreshold   = 5.0
	highProteinThreshold = 20.0
	glycemicLoadWarning  = 15.0

	lowConfidenceThreshold = 0.7
	postMealRiseWarning    = 50.0
)

// Generate runs the nutrition rule table. Output order is fixed: glycemic
// index, carbohydrates, fiber, protein, category, portion.
func Generate(info models.NutritionalInfo, category models.FoodCategory) []models.HealthInsight {
	var out []models.HealthInsight

	out = append(out, glycemicIndexInsight(info))

	if ci, ok := carbInsight(info.Carbohydrates); ok {
		out = append(out, ci)
	}

	if info.Fiber > highFiberThreshold {
		out = append(out, models.HealthInsight{
			Title:       "Rich in fiber",
			Description: fmt.Sprintf("High fiber content (%dg). Helps slow glucose absorption.", int(info.Fiber)),
			Category:    models.InsightNutrition,
			Severity:    models.SeverityInfo,
		})
	}

	if info.Proteins > highProteinThreshold {
		out = append(out, models.HealthInsight{
			Title:       "High in protein",
			Description: fmt.Sprintf("Excellent protein source (%dg). Helps keep you full.", int(info.Proteins)),
			Category:    models.InsightNutrition,
			Severity:    models.SeverityInfo,
		})
	}

	if ci, ok := categoryInsight(info, category); ok {
		out = append(out, ci)
	}

	gl := info.GlycemicLoad()
	severity := models.SeverityInfo
	if gl > glycemicLoadWarning {
		severity = models.SeverityWarning
	}
	out = append(out, models.HealthInsight{
		Title:       "Portion recommendation",
		Description: fmt.Sprintf("Estimated glycemic load: %.1f. Recommended portion: %dg.", gl, int(info.PortionSize)),
		Category:    models.InsightPortion,
		Severity:    severity,
	})

	return out
}

// carbInsight: the high and low thresholds are mutually exclusive.
func carbInsight(carbs float64) (models.HealthInsight, bool) {
	if carbs > highCarbThreshold {
		return models.HealthInsight{
			Title:       "High in carbohydrates",
			Description: fmt.Sprintf("Contains %dg of carbohydrates per portion. Consider adjusting your medication.", int(carbs)),
			Category:    models.InsightNutrition,
			Severity:    models.SeverityWarning,
		}, true
	}
	if carbs < lowCarbThreshold {
		return models.HealthInsight{
			Title:       "Low in carbohydrates",
			Description: fmt.Sprintf("Only %dg of carbohydrates. A great option for glucose control.", int(carbs)),
			Category:    models.InsightNutrition,
			Severity:    models.SeverityInfo,
		}, true
	}
	return models.HealthInsight{}, false
}

func glycemicIndexInsight(info models.NutritionalInfo) models.HealthInsight {
	rng := info.GlycemicIndex.RangeLabel()
	switch info.GlycemicIndex {
	case models.GILow:
		return models.HealthInsight{
			Title:       "Great choice for diabetics",
			Description: fmt.Sprintf("Low glycemic index (%s). Ideal for keeping glucose levels stable.", rng),
			Category:    models.InsightGlucose,
			Severity:    models.SeverityInfo,
		}
	case models.GIHigh:
		return models.HealthInsight{
			Title:       "High glycemic impact",
			Description: fmt.Sprintf("High glycemic index (%s). May raise glucose quickly.", rng),
			Category:    models.InsightGlucose,
			Severity:    models.SeverityCritical,
		}
	default:
		return models.HealthInsight{
			Title:       "Eat in moderation",
			Description: fmt.Sprintf("Medium glycemic index (%s). Watch the portion and pair it with protein.", rng),
			Category:    models.InsightGlucose,
			Severity:    models.SeverityWarning,
		}
	}
}

func categoryInsight(info models.NutritionalInfo, category models.FoodCategory) (models.HealthInsight, bool) {
	switch category {
	case models.CategoryFruit:
		return models.HealthInsight{
			Title:       "Natural fruit",
			Description: "Rich in vitamins and antioxidants. Natural sugars are absorbed more slowly than processed ones.",
			Category:    models.InsightNutrition,
			Severity:    models.SeverityInfo,
		}, true
	case models.CategoryVegetable:
		return models.HealthInsight{
			Title:       "Healthy vegetable",
			Description: "Low in calories and high in nutrients. Fits any diabetic meal plan.",
			Category:    models.InsightNutrition,
			Severity:    models.SeverityInfo,
		}, true
	case models.CategoryProtein:
		return models.HealthInsight{
			Title:       "Lean protein",
			Description: "High quality protein with no glycemic impact. Key for weight control.",
			Category:    models.InsightNutrition,
			Severity:    models.SeverityInfo,
		}, true
	case models.CategoryFastFood:
		return models.HealthInsight{
			Title:       "Processed food",
			Description: fmt.Sprintf("High in sodium (%dmg) and fat. Eat only occasionally.", int(info.Sodium)),
			Category:    models.InsightNutrition,
			Severity:    models.SeverityCritical,
		}, true
	case models.CategoryDessert:
		return models.HealthInsight{
			Title:       "Sugary dessert",
			Description: fmt.Sprintf("High sugar content (%dg). Save it for special occasions.", int(info.Sugars)),
			Category:    models.InsightGlucose,
			Severity:    models.SeverityCritical,
		}, true
	}
	return models.HealthInsight{}, false
}

// ForConfidence flags identifications a real classifier was unsure about.
func ForConfidence(confidence float64) []models.HealthInsight {
	if confidence >= lowConfidenceThreshold {
		return nil
	}
	return []models.HealthInsight{{
		Title:       "Verify identification",
		Description: fmt.Sprintf("The food was identified with low confidence (%d%%). Consider checking it manually.", int(confidence*100)),
		Category:    models.InsightNutrition,
		Severity:    models.SeverityWarning,
	}}
}

// ForMeal combines the nutrition rules with timing insights from the
// glucose readings logged around the meal.
func ForMeal(meal *models.Meal, target models.GlucoseRange) []models.HealthInsight {
	var out []models.HealthInsight
	if meal.Nutrition != nil {
		out = append(out, Generate(*meal.Nutrition, models.CategoryOther)...)
	} else if carbs, ok := meal.Carbs(); ok {
		if ci, ok := carbInsight(carbs); ok {
			out = append(out, ci)
		}
	}

	if diff, ok := meal.GlucoseDifference(); ok && diff > postMealRiseWarning {
		out = append(out, models.HealthInsight{
			Title:       "Large post-meal rise",
			Description: fmt.Sprintf("Glucose rose %d mg/dL after this meal. Consider a smaller portion or a walk after eating.", int(diff)),
			Category:    models.InsightTiming,
			Severity:    models.SeverityWarning,
		})
	}

	if meal.GlucoseLevel != nil {
		v := *meal.GlucoseLevel
		switch {
		case v < target.Min:
			out = append(out, models.HealthInsight{
				Title:       "Low glucose",
				Description: fmt.Sprintf("Reading of %d mg/dL is below your %d-%d target.", int(v), int(target.Min), int(target.Max)),
				Category:    models.InsightTiming,
				Severity:    models.SeverityCritical,
			})
		case v > target.Max:
			out = append(out, models.HealthInsight{
				Title:       "Glucose above target",
				Description: fmt.Sprintf("Reading of %d mg/dL is above your %d-%d target.", int(v), int(target.Min), int(target.Max)),
				Category:    models.InsightTiming,
				Severity:    models.SeverityWarning,
			})
		}
	}
	return out
}
