// internal/catalog/catalog.go
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mcp-glucose-log/internal/models"
)

var ErrUnknownFood = errors.New("unknown food")

// Entry is one food the classifiers can report.
type Entry struct {
	Key        string                 `json:"key" yaml:"key"`
	Name       string                 `json:"name" yaml:"name"`
	Category   models.FoodCategory    `json:"category" yaml:"category"`
	Confidence float64                `json:"confidence" yaml:"confidence"`
	Nutrition  models.NutritionalInfo `json:"nutrition" yaml:"nutrition"`
	Keywords   []string               `json:"keywords" yaml:"keywords"`
}

// Unidentified is returned when a classifier lands on a key the catalog
// does not hold.
var Unidentified = Entry{
	Key:        "unidentified",
	Name:       "Unidentified Food",
	Category:   models.CategoryOther,
	Confidence: 0.3,
	Nutrition: models.NutritionalInfo{
		Calories: 150, Carbohydrates: 20, Proteins: 5, Fats: 5,
		Fiber: 2, Sugars: 5, Sodium: 150,
		GlycemicIndex: models.GIMedium, PortionSize: 100,
	},
	Keywords: []string{"unknown"},
}

func nutrition(cal, carbs, prot, fat, fiber, sugar, sodium float64, gi models.GlycemicIndex) models.NutritionalInfo {
	return models.NutritionalInfo{
		Calories: cal, Carbohydrates: carbs, Proteins: prot, Fats: fat,
		Fiber: fiber, Sugars: sugar, Sodium: sodium,
		GlycemicIndex: gi, PortionSize: 100,
	}
}

// Defaults is the built-in table, values per 100g.
func Defaults() []Entry {
	return []Entry{
		{"apple", "Apple", models.CategoryFruit, 0.95, nutrition(52, 14, 0.3, 0.2, 2.4, 10.4, 1, models.GILow), []string{"apple", "manzana", "red apple", "green apple"}},
		{"banana", "Banana", models.CategoryFruit, 0.92, nutrition(89, 23, 1.1, 0.3, 2.6, 17.2, 1, models.GIMedium), []string{"banana", "platano", "plantain"}},
		{"orange", "Orange", models.CategoryFruit, 0.90, nutrition(47, 12, 0.9, 0.1, 2.4, 9.4, 0, models.GILow), []string{"orange", "naranja", "citrus"}},

		{"chicken", "Grilled Chicken", models.CategoryProtein, 0.93, nutrition(165, 0, 31, 3.6, 0, 0, 74, models.GILow), []string{"chicken", "grilled chicken", "chicken breast", "pollo"}},
		{"beef", "Beef Steak", models.CategoryProtein, 0.89, nutrition(271, 0, 26, 17, 0, 0, 59, models.GILow), []string{"beef", "steak", "carne", "bistec"}},
		{"salmon", "Salmon", models.CategoryProtein, 0.87, nutrition(208, 0, 25.4, 12.4, 0, 0, 66, models.GILow), []string{"fish", "salmon", "pescado"}},

		{"rice", "White Rice", models.CategoryGrain, 0.91, nutrition(130, 28, 2.7, 0.3, 0.4, 0.1, 1, models.GIHigh), []string{"rice", "white rice", "arroz"}},
		{"pasta", "Pasta", models.CategoryGrain, 0.88, nutrition(131, 25, 5, 1.1, 1.8, 0.6, 1, models.GIMedium), []string{"pasta", "spaghetti", "noodles", "noodle"}},
		{"bread", "Whole Wheat Bread", models.CategoryGrain, 0.85, nutrition(247, 41, 13, 4.2, 7, 6, 472, models.GIMedium), []string{"bread", "whole bread", "toast"}},

		{"broccoli", "Broccoli", models.CategoryVegetable, 0.94, nutrition(34, 7, 2.8, 0.4, 2.6, 1.5, 33, models.GILow), []string{"broccoli", "brocoli"}},
		{"salad", "Mixed Salad", models.CategoryVegetable, 0.86, nutrition(20, 4, 1.5, 0.2, 2, 2, 10, models.GILow), []string{"salad", "green salad", "mixed salad", "ensalada", "lettuce"}},

		{"tacos", "Chicken Tacos", models.CategoryMexicanFood, 0.89, nutrition(226, 20, 14, 11, 3, 1, 367, models.GIMedium), []string{"taco", "tacos"}},
		{"quesadillas", "Quesadillas", models.CategoryMexicanFood, 0.87, nutrition(300, 25, 15, 16, 2, 1.5, 580, models.GIMedium), []string{"quesadilla", "quesadillas", "burrito"}},

		{"cake", "Chocolate Cake", models.CategoryDessert, 0.82, nutrition(371, 50, 5, 16, 3, 36, 469, models.GIHigh), []string{"cake", "chocolate cake", "pastel", "dessert"}},
		{"ice_cream", "Vanilla Ice Cream", models.CategoryDessert, 0.90, nutrition(207, 24, 4, 11, 0.7, 21, 80, models.GIHigh), []string{"ice cream", "helado", "gelato"}},

		{"burger", "Hamburger", models.CategoryFastFood, 0.91, nutrition(354, 31, 20, 16, 2, 4, 497, models.GIMedium), []string{"burger", "hamburger", "hamburguesa"}},
		{"pizza", "Margherita Pizza", models.CategoryFastFood, 0.93, nutrition(266, 33, 11, 10, 2.3, 3.6, 598, models.GIMedium), []string{"pizza"}},
		{"fries", "French Fries", models.CategoryFastFood, 0.95, nutrition(365, 63, 4, 17, 3.8, 0.3, 246, models.GIHigh), []string{"fries", "french fries", "papas fritas", "chips"}},
	}
}

// Catalog is a concurrency-safe food table. The whole table is swapped on
// reload.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func New(entries []Entry) *Catalog {
	c := &Catalog{}
	c.Replace(entries)
	return c
}

func NewDefault() *Catalog {
	return New(Defaults())
}

func (c *Catalog) Replace(entries []Entry) {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Key] = e
	}
	c.mu.Lock()
	c.entries = m
	c.mu.Unlock()
}

func (c *Catalog) Get(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Catalog) Lookup(key string) (Entry, error) {
	if e, ok := c.Get(strings.ToLower(strings.TrimSpace(key))); ok {
		return e, nil
	}
	return Entry{}, fmt.Errorf("%w: %q", ErrUnknownFood, key)
}

// GetOrUnidentified never fails; unknown keys map to Unidentified.
func (c *Catalog) GetOrUnidentified(key string) Entry {
	if e, ok := c.Get(key); ok {
		return e
	}
	return Unidentified
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Catalog) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Entries returns all entries sorted by key.
func (c *Catalog) Entries() []Entry {
	keys := c.Keys()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (c *Catalog) ByCategory(cat models.FoodCategory) []Entry {
	var out []Entry
	for _, e := range c.Entries() {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// Match finds the entry whose keyword equals the label, case-insensitively.
// Exact matches win over a keyword appearing as whole words in the label.
func (c *Catalog) Match(label string) (Entry, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return Entry{}, false
	}
	entries := c.Entries()
	for _, e := range entries {
		for _, kw := range e.Keywords {
			if strings.ToLower(kw) == l {
				return e, true
			}
		}
	}
	padded := " " + strings.Join(strings.Fields(l), " ") + " "
	for _, e := range entries {
		for _, kw := range e.Keywords {
			if strings.Contains(padded, " "+strings.ToLower(kw)+" ") {
				return e, true
			}
		}
	}
	return Entry{}, false
}
