// internal/classifier/chain.go
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"mcp-glucose-log/internal/models"
)

// Chain tries classifiers in order and returns the first success. Decode
// errors and context cancellation stop the chain early since no later
// classifier can do better.
type Chain struct {
	classifiers []Classifier
}

func NewChain(classifiers ...Classifier) *Chain {
	return &Chain{classifiers: classifiers}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Classify(ctx context.Context, img Image) (*models.FoodAnalysisResult, error) {
	errs := []error{ErrAllFailed}
	for _, cl := range c.classifiers {
		res, err := cl.Classify(ctx, img)
		if err == nil {
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrImageDecode) {
			return nil, err
		}
		log.Warn().Err(err).Str("classifier", cl.Name()).Msg("classifier failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", cl.Name(), err))
	}
	return nil, errors.Join(errs...)
}
