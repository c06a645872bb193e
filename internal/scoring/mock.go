package scoring

import (
	"context"
	"time"

	"github.com/leadsight/backend/internal/models"
	"github.com/leadsight/backend/internal/utils"
)

// MockClient produces deterministic probabilities from the customer id so
// local runs without a model service still exercise the full backfill path.
type MockClient struct {
	ModelVersion string
}

func (m MockClient) Score(ctx context.Context, c models.Customer) (float64, int64, error) {
	start := time.Now()
	h := utils.HashStringToUint64(c.ID)
	predicted := float64(h%1000) / 1000.0
	return predicted, time.Since(start).Milliseconds(), nil
}
