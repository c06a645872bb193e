package filter

import (
	"sort"
	"strings"

	"github.com/leadsight/backend/internal/models"
)

// Apply returns the customers satisfying every active criterion of the spec.
// Criteria combine with AND; the chosen buckets of one multi-select criterion
// combine with OR. The input slice is never mutated.
func Apply(customers []models.Customer, spec Spec) []models.Customer {
	out := make([]models.Customer, 0, len(customers))
	for _, c := range customers {
		if matches(c, spec) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c models.Customer, spec Spec) bool {
	if len(spec.Categories) > 0 {
		if c.Category == "" || !containsString(spec.Categories, c.Category) {
			return false
		}
	}

	if len(spec.ProbabilityRanges) > 0 {
		if !c.Scored() {
			return false
		}
		inRange := false
		for _, r := range spec.ProbabilityRanges {
			if r.Contains(*c.Score) {
				inRange = true
				break
			}
		}
		if !inRange {
			return false
		}
	}

	if len(spec.AgeRanges) > 0 {
		inRange := false
		for _, r := range spec.AgeRanges {
			if r.Contains(c.Age) {
				inRange = true
				break
			}
		}
		if !inRange {
			return false
		}
	}

	if spec.HasDeposit != "" && !strings.EqualFold(c.Deposit, string(spec.HasDeposit)) {
		return false
	}
	if spec.HasLoan != "" && !strings.EqualFold(c.Loan, string(spec.HasLoan)) {
		return false
	}

	// An active balance sort doubles as a membership rule: zero-balance
	// customers drop out of the result entirely.
	if spec.BalanceSort != "" && c.Balance == 0 {
		return false
	}

	return true
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// SortByRank orders a copy of the input by score, descending for highest and
// ascending for lowest. Unscored customers sort below every scored one. An
// empty direction returns a copy in the original order. The sort is stable:
// equal scores keep their input order.
func SortByRank(customers []models.Customer, rank Direction) []models.Customer {
	out := make([]models.Customer, len(customers))
	copy(out, customers)
	if rank == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessByScore(out[i], out[j], rank)
	})
	return out
}

func lessByScore(a, b models.Customer, dir Direction) bool {
	if a.Scored() != b.Scored() {
		return a.Scored()
	}
	if !a.Scored() {
		return false
	}
	if dir == DirectionLowest {
		return *a.Score < *b.Score
	}
	return *a.Score > *b.Score
}

func lessByBalance(a, b models.Customer, dir Direction) bool {
	if dir == DirectionLowest {
		return a.Balance < b.Balance
	}
	return a.Balance > b.Balance
}

// SortBySpec applies the composite ordering described by the spec's sort
// priority: the first sort-capable key is the primary ordering, the next
// breaks its ties, and so on. Membership rules (including the zero-balance
// exclusion) are applied first via Apply.
func SortBySpec(customers []models.Customer, spec Spec) []models.Customer {
	out := Apply(customers, spec)
	keys := spec.SortKeys()
	if len(keys) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range keys {
			switch k {
			case KeyRank:
				if lessByScore(out[i], out[j], spec.Rank) {
					return true
				}
				if lessByScore(out[j], out[i], spec.Rank) {
					return false
				}
			case KeyBalanceSort:
				if lessByBalance(out[i], out[j], spec.BalanceSort) {
					return true
				}
				if lessByBalance(out[j], out[i], spec.BalanceSort) {
					return false
				}
			}
		}
		return false
	})
	return out
}
