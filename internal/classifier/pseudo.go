// internal/classifier/pseudo.go
package classifier

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"mcp-glucose-log/internal/catalog"
	"mcp-glucose-log/internal/insights"
	"mcp-glucose-log/internal/models"
)

const DefaultDelay = 2 * time.Second

var dominantColors = []string{"brown", "green", "red", "yellow", "orange"}

// visualProfile is synthetic: only the aspect ratio comes from the image.
type visualProfile struct {
	dominantColor string
	brightness    float64
	saturation    float64
	aspectRatio   float64
	complexity    float64
	roundness     float64
}

// Pseudo is the placeholder classifier. It never inspects pixels; it draws a
// random profile and walks a fixed branch table over the catalog keys.
type Pseudo struct {
	catalog *catalog.Catalog
	delay   time.Duration
	now     func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

type PseudoOption func(*Pseudo)

func WithDelay(d time.Duration) PseudoOption {
	return func(p *Pseudo) { p.delay = d }
}

func WithRand(r *rand.Rand) PseudoOption {
	return func(p *Pseudo) { p.rnd = r }
}

func NewPseudo(c *catalog.Catalog, opts ...PseudoOption) *Pseudo {
	p := &Pseudo{
		catalog: c,
		delay:   DefaultDelay,
		now:     time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pseudo) Name() string { return "pseudo" }

func (p *Pseudo) Classify(ctx context.Context, img Image) (*models.FoodAnalysisResult, error) {
	aspect, err := img.AspectRatio()
	if err != nil {
		return nil, err
	}

	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	profile := p.randomProfile(aspect)
	group := foodGroup(profile)
	key := group[p.rnd.Intn(len(group))]
	p.mu.Unlock()

	entry := p.catalog.GetOrUnidentified(key)
	return &models.FoodAnalysisResult{
		FoodName:   entry.Name,
		Category:   entry.Category,
		Confidence: entry.Confidence,
		Nutrition:  entry.Nutrition,
		Insights:   insights.Generate(entry.Nutrition, entry.Category),
		Timestamp:  p.now().UTC(),
		Source:     p.Name(),
	}, nil
}

func (p *Pseudo) uniform(lo, hi float64) float64 {
	return lo + p.rnd.Float64()*(hi-lo)
}

func (p *Pseudo) randomProfile(aspect float64) visualProfile {
	return visualProfile{
		dominantColor: dominantColors[p.rnd.Intn(len(dominantColors))],
		brightness:    p.uniform(0.2, 0.9),
		saturation:    p.uniform(0.3, 0.8),
		aspectRatio:   aspect,
		complexity:    p.uniform(0.2, 0.9),
		roundness:     p.uniform(0.1, 0.8),
	}
}

// foodGroup is the branch table; the first matching rule wins and fast food
// is the catch-all.
func foodGroup(v visualProfile) []string {
	switch {
	case v.saturation > 0.6 && v.roundness > 0.6:
		return []string{"apple", "orange", "banana"}
	case v.dominantColor == "green" && v.complexity > 0.5:
		return []string{"broccoli", "salad"}
	case v.dominantColor == "brown" && v.aspectRatio < 1.5:
		return []string{"chicken", "beef", "salmon"}
	case v.brightness > 0.6 && v.complexity < 0.4:
		return []string{"rice", "pasta", "bread"}
	case v.complexity > 0.4 && v.complexity < 0.7:
		return []string{"tacos", "quesadillas"}
	case v.saturation > 0.4 && v.complexity > 0.6:
		return []string{"cake", "ice_cream"}
	default:
		return []string{"burger", "pizza", "fries"}
	}
}
