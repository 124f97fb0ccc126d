// internal/models/ingredient.go
package models

import "fmt"

// Ingredient carries nutrition per 100g.
type Ingredient struct {
	Name            string        `json:"name"`
	Category        FoodCategory  `json:"category"`
	GlycemicIndex   GlycemicIndex `json:"glycemic_index"`
	CarbsPer100g    float64       `json:"carbs_per_100g"`
	ProteinsPer100g float64       `json:"proteins_per_100g"`
	FatsPer100g     float64       `json:"fats_per_100g"`
	CaloriesPer100g float64       `json:"calories_per_100g"`
}

type Portion struct {
	Ingredient Ingredient `json:"ingredient"`
	Amount     float64    `json:"amount"` // grams
}

func (p Portion) multiplier() float64 {
	return p.Amount / 100.0
}

func (p Portion) TotalCarbohydrates() float64 { return p.Ingredient.CarbsPer100g * p.multiplier() }
func (p Portion) TotalCalories() float64      { return p.Ingredient.CaloriesPer100g * p.multiplier() }

func (p Portion) Nutrition() NutritionalInfo {
	m := p.multiplier()
	return NutritionalInfo{
		Calories:      p.Ingredient.CaloriesPer100g * m,
		Carbohydrates: p.Ingredient.CarbsPer100g * m,
		Proteins:      p.Ingredient.ProteinsPer100g * m,
		Fats:          p.Ingredient.FatsPer100g * m,
		GlycemicIndex: p.Ingredient.GlycemicIndex,
		PortionSize:   p.Amount,
	}
}

func (p Portion) String() string {
	return fmt.Sprintf("%.0fg of %s - %.1fg carbohydrates", p.Amount, p.Ingredient.Name, p.TotalCarbohydrates())
}
