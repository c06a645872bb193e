package models

import "time"

const (
	CategoryPriority    = "Priority"
	CategoryNonPriority = "Non-Priority"
)

// Customer mirrors one bank-marketing campaign record. Probability is the raw
// model output in [0,1] and stays nil until backfilled; Score, Category and
// OriginalRank are derived per page by the roster and never persisted. Only
// the materialized 0-100 score goes over the wire, under the "probability"
// key; the raw float is internal.
type Customer struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Age          int      `json:"age"`
	Job          string   `json:"job"`
	Marital      string   `json:"marital"`
	Education    string   `json:"education"`
	Default      string   `json:"default"`
	Housing      string   `json:"housing"`
	Loan         string   `json:"loan"`
	Deposit      string   `json:"deposit"`
	Contact      string   `json:"contact"`
	Month        string   `json:"month"`
	Day          string   `json:"day"`
	Duration     int      `json:"duration"`
	Campaign     int      `json:"campaign"`
	PDays        int      `json:"pdays"`
	Previous     int      `json:"previous"`
	POutcome     string   `json:"poutcome"`
	EmpVarRate   float64  `json:"emp_var_rate"`
	ConsPriceIdx float64  `json:"cons_price_idx"`
	ConsConfIdx  float64  `json:"cons_conf_idx"`
	Euribor3m    float64  `json:"euribor3m"`
	NrEmployed   float64  `json:"nr_employed"`
	Balance      int      `json:"balance"`
	Probability  *float64 `json:"-"`
	Score        *int     `json:"probability,omitempty"`
	Category     string   `json:"category,omitempty"`
	OriginalRank int      `json:"originalRank,omitempty"`
}

// Scored reports whether the customer carries a materialized 0-100 score.
func (c Customer) Scored() bool {
	return c.Score != nil
}

type Note struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Sales      string    `json:"sales"`
	CreatedAt  time.Time `json:"created_at"`
}
