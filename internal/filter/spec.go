package filter

import (
	"encoding/json"
	"fmt"

	"github.com/leadsight/backend/internal/models"
)

// Key identifies one criterion of a Spec. The JSON names match what the
// dashboard sends in the serialized "filters" query parameter.
type Key string

const (
	KeyRank              Key = "rank"
	KeyProbabilityRanges Key = "probabilityRanges"
	KeyCategories        Key = "categories"
	KeyAgeRanges         Key = "ageRanges"
	KeyBalanceSort       Key = "balanceSort"
	KeyHasDeposit        Key = "hasDeposit"
	KeyHasLoan           Key = "hasLoan"
)

// criterionKeys is the canonical key order, used when a submitted
// sortPriority omits active criteria.
var criterionKeys = []Key{
	KeyRank,
	KeyProbabilityRanges,
	KeyCategories,
	KeyAgeRanges,
	KeyBalanceSort,
	KeyHasDeposit,
	KeyHasLoan,
}

type Direction string

const (
	DirectionHighest Direction = "highest"
	DirectionLowest  Direction = "lowest"
)

type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

// ProbabilityRange is a half-open score bucket, lower-inclusive. The labels
// are the ones the filter panel renders.
type ProbabilityRange string

const (
	ProbUnder10 ProbabilityRange = "<10%"
	Prob10To30  ProbabilityRange = "10%-30%"
	Prob30To50  ProbabilityRange = "30%-50%"
	Prob50To70  ProbabilityRange = "50%-70%"
	Prob70To90  ProbabilityRange = "70%-90%"
	ProbOver90  ProbabilityRange = ">90%"
)

// Contains reports bucket membership for a 0-100 score.
func (r ProbabilityRange) Contains(score int) bool {
	switch r {
	case ProbUnder10:
		return score < 10
	case Prob10To30:
		return score >= 10 && score < 30
	case Prob30To50:
		return score >= 30 && score < 50
	case Prob50To70:
		return score >= 50 && score < 70
	case Prob70To90:
		return score >= 70 && score < 90
	case ProbOver90:
		return score >= 90
	default:
		return false
	}
}

type AgeRange string

const (
	AgeUnder30 AgeRange = "<30 yo"
	Age30To50  AgeRange = "30-50 yo"
	Age50To70  AgeRange = "50-70 yo"
	AgeOver70  AgeRange = ">70 yo"
)

func (r AgeRange) Contains(age int) bool {
	switch r {
	case AgeUnder30:
		return age < 30
	case Age30To50:
		return age >= 30 && age < 50
	case Age50To70:
		return age >= 50 && age < 70
	case AgeOver70:
		return age >= 70
	default:
		return false
	}
}

// Spec is a declarative filter/sort description. Zero value means "no
// constraints". A Spec is immutable once handed to the engine or roster.
type Spec struct {
	Rank              Direction          `json:"rank,omitempty"`
	ProbabilityRanges []ProbabilityRange `json:"probabilityRanges,omitempty"`
	Categories        []string           `json:"categories,omitempty"`
	AgeRanges         []AgeRange         `json:"ageRanges,omitempty"`
	BalanceSort       Direction          `json:"balanceSort,omitempty"`
	HasDeposit        YesNo              `json:"hasDeposit,omitempty"`
	HasLoan           YesNo              `json:"hasLoan,omitempty"`

	// SortPriority lists criterion keys in first-activation order. Only keys
	// active at submission time survive Parse.
	SortPriority []Key `json:"sortPriority,omitempty"`
}

// ValidationError reports a label or enum value outside its closed domain.
// Unknown labels are rejected here instead of silently matching nothing.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("filter: unknown %s value %q", e.Field, e.Value)
}

// Parse decodes the serialized filters payload and validates every value
// against its domain. An empty payload yields the all-unset Spec.
func Parse(raw []byte) (Spec, error) {
	var s Spec
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Spec{}, fmt.Errorf("filter: decode spec: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	s.SortPriority = s.normalizedPriority()
	return s, nil
}

func (s Spec) Validate() error {
	if s.Rank != "" && s.Rank != DirectionHighest && s.Rank != DirectionLowest {
		return &ValidationError{Field: "rank", Value: string(s.Rank)}
	}
	if s.BalanceSort != "" && s.BalanceSort != DirectionHighest && s.BalanceSort != DirectionLowest {
		return &ValidationError{Field: "balanceSort", Value: string(s.BalanceSort)}
	}
	if s.HasDeposit != "" && s.HasDeposit != Yes && s.HasDeposit != No {
		return &ValidationError{Field: "hasDeposit", Value: string(s.HasDeposit)}
	}
	if s.HasLoan != "" && s.HasLoan != Yes && s.HasLoan != No {
		return &ValidationError{Field: "hasLoan", Value: string(s.HasLoan)}
	}
	for _, r := range s.ProbabilityRanges {
		switch r {
		case ProbUnder10, Prob10To30, Prob30To50, Prob50To70, Prob70To90, ProbOver90:
		default:
			return &ValidationError{Field: "probabilityRanges", Value: string(r)}
		}
	}
	for _, r := range s.AgeRanges {
		switch r {
		case AgeUnder30, Age30To50, Age50To70, AgeOver70:
		default:
			return &ValidationError{Field: "ageRanges", Value: string(r)}
		}
	}
	for _, c := range s.Categories {
		if c != models.CategoryPriority && c != models.CategoryNonPriority {
			return &ValidationError{Field: "categories", Value: c}
		}
	}
	for _, k := range s.SortPriority {
		if !knownKey(k) {
			return &ValidationError{Field: "sortPriority", Value: string(k)}
		}
	}
	return nil
}

func knownKey(k Key) bool {
	for _, known := range criterionKeys {
		if k == known {
			return true
		}
	}
	return false
}

func (s Spec) active(k Key) bool {
	switch k {
	case KeyRank:
		return s.Rank != ""
	case KeyProbabilityRanges:
		return len(s.ProbabilityRanges) > 0
	case KeyCategories:
		return len(s.Categories) > 0
	case KeyAgeRanges:
		return len(s.AgeRanges) > 0
	case KeyBalanceSort:
		return s.BalanceSort != ""
	case KeyHasDeposit:
		return s.HasDeposit != ""
	case KeyHasLoan:
		return s.HasLoan != ""
	default:
		return false
	}
}

// ActiveCount counts the criteria that impose a constraint; empty slices do
// not count.
func (s Spec) ActiveCount() int {
	n := 0
	for _, k := range criterionKeys {
		if s.active(k) {
			n++
		}
	}
	return n
}

// normalizedPriority keeps the submitted activation order, dropping inactive
// and duplicate keys, then appends active keys the caller never listed in
// canonical order so the result is deterministic.
func (s Spec) normalizedPriority() []Key {
	seen := map[Key]bool{}
	var out []Key
	for _, k := range s.SortPriority {
		if s.active(k) && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range criterionKeys {
		if s.active(k) && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// SortKeys returns the sort-capable subsequence of SortPriority. Only rank
// and balanceSort order results; every other criterion is membership only.
func (s Spec) SortKeys() []Key {
	var out []Key
	for _, k := range s.normalizedPriority() {
		if k == KeyRank || k == KeyBalanceSort {
			out = append(out, k)
		}
	}
	return out
}
