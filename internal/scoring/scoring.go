package scoring

import (
	"context"
	"fmt"

	"github.com/leadsight/backend/internal/models"
)

// Client is the subscription-probability oracle. Score returns the predicted
// probability in [0,1] together with the call latency in milliseconds.
type Client interface {
	Score(ctx context.Context, c models.Customer) (float64, int64, error)
}

// Error is the structured failure the client returns when the scoring
// service answers with an unusable payload or status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("scoring: %s (status %d)", e.Message, e.Status)
	}
	return "scoring: " + e.Message
}

// Features flattens a customer into the key set the model expects. The
// renaming is fixed by the model contract; three keys carry literal dots.
func Features(c models.Customer) map[string]any {
	return map[string]any{
		"age":            c.Age,
		"job":            c.Job,
		"marital":        c.Marital,
		"education":      c.Education,
		"default":        c.Default,
		"housing":        c.Housing,
		"loan":           c.Loan,
		"contact":        c.Contact,
		"month":          c.Month,
		"day_of_week":    c.Day,
		"duration":       c.Duration,
		"campaign":       c.Campaign,
		"pdays":          c.PDays,
		"previous":       c.Previous,
		"poutcome":       c.POutcome,
		"emp.var.rate":   c.EmpVarRate,
		"cons.price.idx": c.ConsPriceIdx,
		"cons.conf.idx":  c.ConsConfIdx,
		"euribor3m":      c.Euribor3m,
		"nr.employed":    c.NrEmployed,
		"balance":        c.Balance,
	}
}
