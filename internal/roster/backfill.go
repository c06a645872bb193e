package roster

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadsight/backend/internal/models"
	"github.com/leadsight/backend/internal/scoring"
)

// ProbabilitySink persists a freshly computed probability. Failures are
// logged and never block the batch.
type ProbabilitySink interface {
	SaveProbability(ctx context.Context, id string, probability float64) error
}

// Backfill fills missing probabilities for one page of customers, persists
// them, then materializes the 0-100 score and category for the whole page.
type Backfill struct {
	Scorer  scoring.Client
	Sink    ProbabilitySink
	Logger  zerolog.Logger
	Timeout time.Duration
}

// Run processes customers strictly in input order, one scorer call at a
// time. A failed item keeps a nil probability and the batch continues. The
// returned slice is a copy; the input is never mutated.
func (b *Backfill) Run(ctx context.Context, customers []models.Customer) []models.Customer {
	out := make([]models.Customer, len(customers))
	copy(out, customers)

	for i := range out {
		if out[i].Probability != nil {
			continue
		}

		predicted, latencyMs, err := b.score(ctx, out[i])
		if err != nil {
			b.Logger.Error().Err(err).Str("customer_id", out[i].ID).Msg("scoring failed")
			continue
		}
		out[i].Probability = &predicted
		b.Logger.Debug().
			Str("customer_id", out[i].ID).
			Float64("predicted", predicted).
			Int64("latency_ms", latencyMs).
			Msg("probability scored")

		if err := b.persist(ctx, out[i].ID, predicted); err != nil {
			// The page keeps the computed value for this session; the next
			// full refresh will score the customer again.
			b.Logger.Error().Err(err).Str("customer_id", out[i].ID).Msg("probability save failed")
		}
	}

	for i := range out {
		materialize(&out[i])
	}
	return out
}

func (b *Backfill) score(ctx context.Context, c models.Customer) (float64, int64, error) {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	return b.Scorer.Score(ctx, c)
}

func (b *Backfill) persist(ctx context.Context, id string, probability float64) error {
	if b.Sink == nil {
		return nil
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	return b.Sink.SaveProbability(ctx, id, probability)
}

// materialize converts the raw [0,1] probability into the rounded percentage
// the dashboard consumes and derives the category from it. Customers still
// missing a probability stay unscored and uncategorized.
func materialize(c *models.Customer) {
	if c.Probability == nil {
		c.Score = nil
		c.Category = ""
		return
	}
	score := int(math.Round(*c.Probability * 100))
	c.Score = &score
	if score > 50 {
		c.Category = models.CategoryPriority
	} else {
		c.Category = models.CategoryNonPriority
	}
}
