package roster

import (
	"sort"

	"github.com/leadsight/backend/internal/models"
)

// AssignRanks numbers a page of customers by score, continuous across pages:
// rank = (page-1)*pageSize + position in the score-descending order + 1. The
// returned slice keeps the caller's element order; only the rank annotation
// reflects the sorted position. Unscored customers rank below every scored
// one, ties keep input order.
func AssignRanks(customers []models.Customer, page, pageSize int) []models.Customer {
	out := make([]models.Customer, len(customers))
	copy(out, customers)
	if len(out) == 0 {
		return out
	}
	if page < 1 {
		page = 1
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := out[order[a]], out[order[b]]
		if ca.Scored() != cb.Scored() {
			return ca.Scored()
		}
		if !ca.Scored() {
			return false
		}
		return *ca.Score > *cb.Score
	})

	offset := (page - 1) * pageSize
	for pos, idx := range order {
		out[idx].OriginalRank = offset + pos + 1
	}
	return out
}
