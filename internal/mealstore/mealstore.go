// internal/mealstore/mealstore.go
package mealstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mcp-glucose-log/internal/events"
	"mcp-glucose-log/internal/models"
	"mcp-glucose-log/internal/storage"
)

var ErrMealNotFound = errors.New("meal not found")

type Publisher interface {
	Publish(sig events.Signal)
}

// MealLog holds the meal list in memory and rewrites the whole list under
// storage.KeyMeals on every mutation. Memory changes only after the write
// succeeds.
type MealLog struct {
	mu    sync.RWMutex
	store storage.Store
	bus   Publisher
	meals []models.Meal
	now   func() time.Time
}

type Option func(*MealLog)

func WithClock(now func() time.Time) Option {
	return func(l *MealLog) { l.now = now }
}

// Open loads the saved list. Undecodable data is logged and replaced by an
// empty list on the next write. bus may be nil.
func Open(ctx context.Context, store storage.Store, bus Publisher, opts ...Option) (*MealLog, error) {
	l := &MealLog{
		store: store,
		bus:   bus,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	var meals []models.Meal
	_, err := storage.LoadJSON(ctx, store, storage.KeyMeals, &meals)
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("failed to load meals: %w", err)
		}
		log.Warn().Err(err).Msg("stored meals are corrupt, starting with an empty log")
		meals = nil
	}
	l.meals = meals
	sortNewestFirst(l.meals)

	return l, nil
}

func sortNewestFirst(meals []models.Meal) {
	sort.SliceStable(meals, func(i, j int) bool {
		return meals[i].Timestamp.After(meals[j].Timestamp)
	})
}

func normalize(m *models.Meal) {
	m.Timestamp = m.Timestamp.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
}

// commit persists next and swaps it in. Caller holds the write lock.
func (l *MealLog) commit(ctx context.Context, next []models.Meal) error {
	if err := storage.SaveJSON(ctx, l.store, storage.KeyMeals, next); err != nil {
		return fmt.Errorf("failed to save meals: %w", err)
	}
	l.meals = next
	return nil
}

func (l *MealLog) publish(sig events.Signal) {
	if l.bus != nil {
		l.bus.Publish(sig)
	}
}

func (l *MealLog) indexOf(id string) int {
	for i := range l.meals {
		if l.meals[i].ID == id {
			return i
		}
	}
	return -1
}

// Add assigns an id and audit times, validates and stores m.
func (l *MealLog) Add(ctx context.Context, m models.Meal) (models.Meal, error) {
	now := l.now()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}
	if m.Source == "" {
		m.Source = models.SourceManual
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	normalize(&m)

	if err := m.Validate(); err != nil {
		return models.Meal{}, err
	}

	l.mu.Lock()
	if l.indexOf(m.ID) >= 0 {
		l.mu.Unlock()
		return models.Meal{}, fmt.Errorf("%w: duplicate id %s", models.ErrInvalidMeal, m.ID)
	}
	next := make([]models.Meal, 0, len(l.meals)+1)
	next = append(next, l.meals...)
	next = append(next, m)
	sortNewestFirst(next)
	err := l.commit(ctx, next)
	l.mu.Unlock()
	if err != nil {
		return models.Meal{}, err
	}

	log.Info().Str("id", m.ID).Str("name", m.Name).Str("type", string(m.Type)).Msg("meal logged")
	if m.IsAIAnalyzed {
		l.publish(events.NewAIDataAdded)
	}
	return m, nil
}

// AddFromAnalysis stores an accepted classification result as a meal.
func (l *MealLog) AddFromAnalysis(ctx context.Context, res *models.FoodAnalysisResult, mealType models.MealType, portionGrams float64, photoURL string) (models.Meal, error) {
	m, err := models.MealFromAnalysis(res, mealType, portionGrams, l.now())
	if err != nil {
		return models.Meal{}, err
	}
	m.PhotoURL = photoURL
	return l.Add(ctx, *m)
}

// Update replaces the meal with the same id, keeping its creation time.
func (l *MealLog) Update(ctx context.Context, m models.Meal) (models.Meal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(m.ID)
	if i < 0 {
		return models.Meal{}, fmt.Errorf("%w: %s", ErrMealNotFound, m.ID)
	}
	m.CreatedAt = l.meals[i].CreatedAt
	m.UpdatedAt = l.now()
	if m.Source == "" {
		m.Source = l.meals[i].Source
	}
	normalize(&m)
	if err := m.Validate(); err != nil {
		return models.Meal{}, err
	}

	next := make([]models.Meal, len(l.meals))
	copy(next, l.meals)
	next[i] = m
	sortNewestFirst(next)
	if err := l.commit(ctx, next); err != nil {
		return models.Meal{}, err
	}
	return m, nil
}

// Remove deletes exactly the meal with the given id.
func (l *MealLog) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrMealNotFound, id)
	}
	next := make([]models.Meal, 0, len(l.meals)-1)
	next = append(next, l.meals[:i]...)
	next = append(next, l.meals[i+1:]...)
	if err := l.commit(ctx, next); err != nil {
		return err
	}
	log.Info().Str("id", id).Msg("meal removed")
	return nil
}

func (l *MealLog) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(ctx, []models.Meal{})
}

func (l *MealLog) Get(id string) (models.Meal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(id); i >= 0 {
		return l.meals[i], nil
	}
	return models.Meal{}, fmt.Errorf("%w: %s", ErrMealNotFound, id)
}

func (l *MealLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.meals)
}

// All returns a copy of the log, newest first.
func (l *MealLog) All() []models.Meal {
	return l.Find(Query{})
}

// Query selects meals. Zero fields do not filter.
type Query struct {
	From        time.Time // inclusive
	To          time.Time // exclusive
	Type        models.MealType
	AIOnly      bool
	WithGlucose bool
	Limit       int
}

// OnDate selects the meals on day's calendar date in day's location.
func OnDate(day time.Time) Query {
	y, mo, d := day.Date()
	start := time.Date(y, mo, d, 0, 0, 0, 0, day.Location())
	return Query{From: start, To: start.AddDate(0, 0, 1)}
}

func (q Query) matches(m *models.Meal) bool {
	switch {
	case !q.From.IsZero() && m.Timestamp.Before(q.From):
		return false
	case !q.To.IsZero() && !m.Timestamp.Before(q.To):
		return false
	case q.Type != "" && m.Type != q.Type:
		return false
	case q.AIOnly && !m.IsAIAnalyzed:
		return false
	case q.WithGlucose && m.GlucoseLevel == nil:
		return false
	}
	return true
}

// Find returns the matching meals, newest first, at most q.Limit of them
// when Limit is positive.
func (l *MealLog) Find(q Query) []models.Meal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Meal, 0)
	for i := range l.meals {
		if !q.matches(&l.meals[i]) {
			continue
		}
		out = append(out, l.meals[i])
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

// Summary aggregates every meal q selects, ignoring q.Limit.
func (l *MealLog) Summary(q Query) Summary {
	q.Limit = 0
	return Summarize(l.Find(q))
}

// ExportJSON renders the full log, newest first.
func (l *MealLog) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(l.All(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export meals: %w", err)
	}
	return data, nil
}
