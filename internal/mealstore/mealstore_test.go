package mealstore

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"mcp-glucose-log/internal/events"
	"mcp-glucose-log/internal/models"
	"mcp-glucose-log/internal/storage"
)

type recorder struct {
	mu      sync.Mutex
	signals []events.Signal
}

func (r *recorder) Publish(sig events.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
}

func ptr(v float64) *float64 { return &v }

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLog(t *testing.T) (*MealLog, *storage.SQLiteStorage, *recorder) {
	t.Helper()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "meals.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage error: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	rec := &recorder{}
	l, err := Open(context.Background(), st, rec, WithClock(func() time.Time { return base }))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	return l, st, rec
}

func sampleMeals() []models.Meal {
	nutrition := models.NutritionalInfo{Calories: 320, Carbohydrates: 45, Proteins: 12, Fats: 9, Fiber: 6, GlycemicIndex: models.GIMedium, PortionSize: 200}
	return []models.Meal{
		{Name: "Avena", Type: models.Breakfast, Portions: []string{"1 taza"}, Timestamp: base.Add(-26 * time.Hour), GlucoseLevel: ptr(95), TotalCarbs: ptr(30)},
		{Name: "Tacos", Type: models.Lunch, Portions: []string{}, Timestamp: base.Add(-2 * time.Hour), GlucoseBefore: ptr(100), GlucoseAfter: ptr(160), GlucoseLevel: ptr(160), Nutrition: &nutrition, IsAIAnalyzed: true, Source: models.SourcePhoto},
		{Name: "Manzana", Type: models.Snack, Timestamp: base.Add(-time.Hour), TotalCarbs: ptr(25)},
	}
}

func TestAddAndReloadIsIdentical(t *testing.T) {
	ctx := context.Background()
	l, st, rec := newTestLog(t)

	for _, m := range sampleMeals() {
		if _, err := l.Add(ctx, m); err != nil {
			t.Fatalf("Add(%s) error: %v", m.Name, err)
		}
	}

	all := l.All()
	if len(all) != 3 || all[0].Name != "Manzana" || all[2].Name != "Avena" {
		t.Fatalf("All() order = %v", names(all))
	}
	for _, m := range all {
		if m.ID == "" || m.CreatedAt.IsZero() {
			t.Errorf("meal %s missing id or created_at", m.Name)
		}
	}
	if len(rec.signals) != 1 || rec.signals[0] != events.NewAIDataAdded {
		t.Errorf("signals = %v, want one new_ai_data_added", rec.signals)
	}

	reopened, err := Open(ctx, st, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if !reflect.DeepEqual(reopened.All(), all) {
		t.Errorf("reloaded list differs:\n got %+v\nwant %+v", reopened.All(), all)
	}
}

func names(meals []models.Meal) []string {
	out := make([]string, len(meals))
	for i, m := range meals {
		out[i] = m.Name
	}
	return out
}

func TestAddRejectsInvalid(t *testing.T) {
	l, _, _ := newTestLog(t)
	_, err := l.Add(context.Background(), models.Meal{Name: "x", Type: "brunch"})
	if !errors.Is(err, models.ErrInvalidMealType) {
		t.Errorf("Add error = %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("invalid meal was stored")
	}
}

func TestRemoveDeletesExactlyOne(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newTestLog(t)

	var ids []string
	for _, m := range sampleMeals() {
		added, err := l.Add(ctx, m)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, added.ID)
	}

	if err := l.Remove(ctx, ids[1]); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if got := names(l.All()); !reflect.DeepEqual(got, []string{"Manzana", "Avena"}) {
		t.Errorf("after Remove = %v", got)
	}
	if _, err := l.Get(ids[1]); !errors.Is(err, ErrMealNotFound) {
		t.Errorf("Get removed meal error = %v", err)
	}
	if err := l.Remove(ctx, ids[1]); !errors.Is(err, ErrMealNotFound) {
		t.Errorf("second Remove error = %v", err)
	}

	reopened, err := Open(ctx, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Len() != 2 {
		t.Errorf("persisted %d meals, want 2", reopened.Len())
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLog(t)

	added, err := l.Add(ctx, sampleMeals()[0])
	if err != nil {
		t.Fatal(err)
	}
	added.Name = "Avena con fresas"
	added.GlucoseAfter = ptr(130)
	updated, err := l.Update(ctx, added)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !updated.CreatedAt.Equal(added.CreatedAt) || updated.Source != models.SourceManual {
		t.Errorf("Update changed audit fields: %+v", updated)
	}
	got, _ := l.Get(added.ID)
	if got.Name != "Avena con fresas" || *got.GlucoseAfter != 130 {
		t.Errorf("Get after Update = %+v", got)
	}

	if _, err := l.Update(ctx, models.Meal{ID: "missing", Name: "x", Type: models.Snack, Timestamp: base}); !errors.Is(err, ErrMealNotFound) {
		t.Errorf("Update(missing) error = %v", err)
	}
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLog(t)
	for _, m := range sampleMeals() {
		if _, err := l.Add(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"all", Query{}, []string{"Manzana", "Tacos", "Avena"}},
		{"on date", OnDate(base), []string{"Manzana", "Tacos"}},
		{"range", Query{From: base.Add(-3 * time.Hour), To: base.Add(-time.Hour)}, []string{"Tacos"}},
		{"type", Query{Type: models.Breakfast}, []string{"Avena"}},
		{"ai only", Query{AIOnly: true}, []string{"Tacos"}},
		{"with glucose", Query{WithGlucose: true}, []string{"Tacos", "Avena"}},
		{"limit", Query{WithGlucose: true, Limit: 1}, []string{"Tacos"}},
		{"no match", Query{Type: models.Lunch, From: base.Add(-time.Hour)}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := names(l.Find(tt.query)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Find = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLog(t)
	empty := l.Summary(Query{})
	if empty.Count != 0 || empty.AverageGlucose != 0 || empty.DominantGlycemicIndex != "" || empty.GlycemicDistribution[models.GIMedium] != 0 {
		t.Errorf("empty Summary = %+v", empty)
	}
	for _, m := range sampleMeals() {
		if _, err := l.Add(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	want := Summary{
		Count:                 3,
		GlucoseCount:          2,
		AverageGlucose:        127.5,
		MinGlucose:            95,
		MaxGlucose:            160,
		CarbCount:             3,
		TotalCarbs:            100,
		AverageCarbs:          100.0 / 3,
		MaxCarbs:              45,
		AIMeals:               1,
		AIPercentage:          100.0 / 3,
		AICalories:            320,
		AverageCalories:       320,
		TotalProteins:         12,
		AverageProteins:       12,
		TotalFats:             9,
		TotalFiber:            6,
		GlycemicDistribution:  map[models.GlycemicIndex]int{models.GILow: 0, models.GIMedium: 1, models.GIHigh: 0},
		DominantGlycemicIndex: models.GIMedium,
		TypeDistribution:      map[models.MealType]int{models.Breakfast: 1, models.Lunch: 1, models.Dinner: 0, models.Snack: 1},
	}
	if s := l.Summary(Query{Limit: 1}); !reflect.DeepEqual(s, want) {
		t.Errorf("Summary = %+v\nwant %+v", s, want)
	}

	today := l.Summary(OnDate(base))
	if today.Count != 2 || today.TypeDistribution[models.Breakfast] != 0 || today.MinGlucose != 160 {
		t.Errorf("Summary(OnDate) = %+v", today)
	}
}

func TestDominantGlycemicIndex(t *testing.T) {
	meal := func(gi models.GlycemicIndex) models.Meal {
		return models.Meal{Type: models.Snack, IsAIAnalyzed: true, Nutrition: &models.NutritionalInfo{GlycemicIndex: gi}}
	}
	tests := []struct {
		name  string
		meals []models.Meal
		want  models.GlycemicIndex
	}{
		{"none", nil, ""},
		{"majority", []models.Meal{meal(models.GIHigh), meal(models.GILow), meal(models.GIHigh)}, models.GIHigh},
		{"tie prefers lower", []models.Meal{meal(models.GIHigh), meal(models.GIMedium)}, models.GIMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.meals).DominantGlycemicIndex; got != tt.want {
				t.Errorf("DominantGlycemicIndex = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddFromAnalysis(t *testing.T) {
	ctx := context.Background()
	l, _, rec := newTestLog(t)

	res := &models.FoodAnalysisResult{
		FoodName:   "Pizza",
		Category:   models.CategoryFastFood,
		Confidence: 0.9,
		Nutrition:  models.NutritionalInfo{Calories: 285, Carbohydrates: 36, Proteins: 12, Fats: 10, GlycemicIndex: models.GIMedium, PortionSize: 100},
	}
	m, err := l.AddFromAnalysis(ctx, res, models.Dinner, 200, "https://photos.example/p.jpg")
	if err != nil {
		t.Fatalf("AddFromAnalysis error: %v", err)
	}
	if !m.IsAIAnalyzed || m.PhotoURL == "" || m.Nutrition.Carbohydrates != 72 || *m.TotalCarbs != 72 {
		t.Errorf("AddFromAnalysis = %+v", m)
	}
	if len(rec.signals) != 1 {
		t.Errorf("signals = %v", rec.signals)
	}
}

func TestCorruptDataStartsEmpty(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "corrupt.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := st.Put(ctx, storage.KeyMeals, []byte(`{"not":"a list"}`)); err != nil {
		t.Fatal(err)
	}

	l, err := Open(ctx, st, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestClearAndExport(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLog(t)
	if _, err := l.Add(ctx, sampleMeals()[2]); err != nil {
		t.Fatal(err)
	}
	data, err := l.ExportJSON()
	if err != nil || len(data) == 0 || data[0] != '[' {
		t.Fatalf("ExportJSON = %s, %v", data, err)
	}
	if err := l.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len after Clear = %d", l.Len())
	}
}
