package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadsight/backend/internal/filter"
	"github.com/leadsight/backend/internal/models"
	"github.com/leadsight/backend/internal/roster"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const customerColumns = `id, name, age, job, marital, education, "default", housing, loan, deposit,
	contact, month, day, duration, campaign, pdays, previous, poutcome,
	emp_var_rate, cons_price_idx, cons_conf_idx, euribor3m, nr_employed, balance, probability`

// FetchPage serves the roster's paginated customer query, pushing search and
// the active filter criteria down into SQL. It implements roster.CustomerSource.
func (s *Store) FetchPage(ctx context.Context, req roster.PageRequest) (roster.PageResult, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 10
	}

	var args []any
	var wheres []string

	if q := strings.TrimSpace(req.Search); q != "" {
		args = append(args, "%"+q+"%")
		wheres = append(wheres, fmt.Sprintf("(name ILIKE $%d OR id ILIKE $%d)", len(args), len(args)))
	}
	args, wheres = appendFilterWheres(args, wheres, req.Filters)

	whereClause := ""
	if len(wheres) > 0 {
		whereClause = " WHERE " + strings.Join(wheres, " AND ")
	}

	var totalItems int
	if err := s.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers"+whereClause, args...).Scan(&totalItems); err != nil {
		return roster.PageResult{}, err
	}
	totalPages := (totalItems + req.PageSize - 1) / req.PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	query := "SELECT " + customerColumns + " FROM customers" + whereClause +
		orderClause(req.Filters) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return roster.PageResult{}, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Age, &c.Job, &c.Marital, &c.Education, &c.Default, &c.Housing, &c.Loan, &c.Deposit,
			&c.Contact, &c.Month, &c.Day, &c.Duration, &c.Campaign, &c.PDays, &c.Previous, &c.POutcome,
			&c.EmpVarRate, &c.ConsPriceIdx, &c.ConsConfIdx, &c.Euribor3m, &c.NrEmployed, &c.Balance, &c.Probability,
		); err != nil {
			return roster.PageResult{}, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return roster.PageResult{}, err
	}

	return roster.PageResult{
		Customers:  customers,
		TotalPages: totalPages,
		TotalItems: totalItems,
		Page:       req.Page,
	}, nil
}

// appendFilterWheres translates the spec's membership criteria into SQL. The
// stored probability is a [0,1] float; bucket and category predicates work on
// its rounded percentage, matching the materialized view.
func appendFilterWheres(args []any, wheres []string, spec filter.Spec) ([]any, []string) {
	if spec.HasDeposit != "" {
		args = append(args, strings.ToLower(string(spec.HasDeposit)))
		wheres = append(wheres, fmt.Sprintf("LOWER(deposit) = $%d", len(args)))
	}
	if spec.HasLoan != "" {
		args = append(args, strings.ToLower(string(spec.HasLoan)))
		wheres = append(wheres, fmt.Sprintf("LOWER(loan) = $%d", len(args)))
	}
	if spec.BalanceSort != "" {
		wheres = append(wheres, "balance <> 0")
	}

	if len(spec.AgeRanges) > 0 {
		var ors []string
		for _, r := range spec.AgeRanges {
			switch r {
			case filter.AgeUnder30:
				ors = append(ors, "age < 30")
			case filter.Age30To50:
				ors = append(ors, "(age >= 30 AND age < 50)")
			case filter.Age50To70:
				ors = append(ors, "(age >= 50 AND age < 70)")
			case filter.AgeOver70:
				ors = append(ors, "age >= 70")
			}
		}
		if len(ors) > 0 {
			wheres = append(wheres, "("+strings.Join(ors, " OR ")+")")
		}
	}

	if len(spec.ProbabilityRanges) > 0 {
		var ors []string
		for _, r := range spec.ProbabilityRanges {
			switch r {
			case filter.ProbUnder10:
				ors = append(ors, scorePred("< 10"))
			case filter.Prob10To30:
				ors = append(ors, scoreBetween(10, 30))
			case filter.Prob30To50:
				ors = append(ors, scoreBetween(30, 50))
			case filter.Prob50To70:
				ors = append(ors, scoreBetween(50, 70))
			case filter.Prob70To90:
				ors = append(ors, scoreBetween(70, 90))
			case filter.ProbOver90:
				ors = append(ors, scorePred(">= 90"))
			}
		}
		if len(ors) > 0 {
			wheres = append(wheres, "probability IS NOT NULL AND ("+strings.Join(ors, " OR ")+")")
		}
	}

	if len(spec.Categories) > 0 {
		var ors []string
		for _, c := range spec.Categories {
			switch c {
			case models.CategoryPriority:
				ors = append(ors, scorePred("> 50"))
			case models.CategoryNonPriority:
				ors = append(ors, scorePred("<= 50"))
			}
		}
		if len(ors) > 0 {
			wheres = append(wheres, "probability IS NOT NULL AND ("+strings.Join(ors, " OR ")+")")
		}
	}

	return args, wheres
}

func scorePred(cond string) string {
	return "ROUND(probability::numeric * 100) " + cond
}

func scoreBetween(lo, hi int) string {
	return fmt.Sprintf("(ROUND(probability::numeric * 100) >= %d AND ROUND(probability::numeric * 100) < %d)", lo, hi)
}

// orderClause builds the composite ORDER BY from the spec's sort priority so
// server-side ordering matches what the engine would do in memory.
func orderClause(spec filter.Spec) string {
	var cols []string
	for _, k := range spec.SortKeys() {
		switch k {
		case filter.KeyRank:
			if spec.Rank == filter.DirectionLowest {
				cols = append(cols, "probability ASC NULLS LAST")
			} else {
				cols = append(cols, "probability DESC NULLS LAST")
			}
		case filter.KeyBalanceSort:
			if spec.BalanceSort == filter.DirectionLowest {
				cols = append(cols, "balance ASC")
			} else {
				cols = append(cols, "balance DESC")
			}
		}
	}
	cols = append(cols, "id ASC")
	return " ORDER BY " + strings.Join(cols, ", ")
}

// SaveProbability persists a scored probability. It implements
// roster.ProbabilitySink.
func (s *Store) SaveProbability(ctx context.Context, id string, probability float64) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE customers SET probability = $1 WHERE id = $2`, probability, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) InsertCustomer(ctx context.Context, c models.Customer) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO customers (`+customerColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
	`, c.ID, c.Name, c.Age, c.Job, c.Marital, c.Education, c.Default, c.Housing, c.Loan, c.Deposit,
		c.Contact, c.Month, c.Day, c.Duration, c.Campaign, c.PDays, c.Previous, c.POutcome,
		c.EmpVarRate, c.ConsPriceIdx, c.ConsConfIdx, c.Euribor3m, c.NrEmployed, c.Balance, c.Probability)
	return err
}

func (s *Store) ListNotes(ctx context.Context) ([]models.Note, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, customer_id, title, body, sales, created_at FROM notes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.Title, &n.Body, &n.Sales, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// InsertNote creates a note for an existing customer. The existence check and
// the insert run in one transaction; a missing customer yields ErrNotFound.
func (s *Store) InsertNote(ctx context.Context, n models.Note) (string, error) {
	var id string
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, n.CustomerID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return tx.QueryRow(ctx, `
			INSERT INTO notes (customer_id, title, body, sales, created_at)
			VALUES ($1,$2,$3,$4,$5) RETURNING id
		`, n.CustomerID, n.Title, n.Body, n.Sales, n.CreatedAt).Scan(&id)
	})
	return id, err
}

func (s *Store) UpdateNote(ctx context.Context, id, title, body string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE notes SET title = $1, body = $2 WHERE id = $3`, title, body, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
