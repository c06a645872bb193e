package roster

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/leadsight/backend/internal/filter"
	"github.com/leadsight/backend/internal/models"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// PageRequest is the query sent to the customer source.
type PageRequest struct {
	Page     int
	PageSize int
	Search   string
	Filters  filter.Spec
}

// PageResult is one page of raw customer records plus pagination totals.
type PageResult struct {
	Customers  []models.Customer
	TotalPages int
	TotalItems int
	Page       int
}

// CustomerSource serves paginated customer queries.
type CustomerSource interface {
	FetchPage(ctx context.Context, req PageRequest) (PageResult, error)
}

// Snapshot is the materialized page the roster exposes to callers.
type Snapshot struct {
	State      State             `json:"state"`
	Customers  []models.Customer `json:"customers"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
	TotalItems int               `json:"totalItems"`
}

// Roster owns the current page of customers and runs the refresh cycle:
// fetch, backfill, rank, commit. One instance per process, built by main and
// injected where needed. Each parameter change starts a new cycle; a cycle
// commits only if no newer cycle has started since (last request wins).
type Roster struct {
	source   CustomerSource
	backfill *Backfill
	logger   zerolog.Logger

	mu         sync.Mutex
	generation uint64
	state      State

	page     int
	pageSize int
	search   string
	filters  filter.Spec

	customers  []models.Customer
	totalPages int
	totalItems int
}

func New(source CustomerSource, backfill *Backfill, pageSize int, logger zerolog.Logger) *Roster {
	if pageSize < 1 {
		pageSize = 10
	}
	return &Roster{
		source:   source,
		backfill: backfill,
		logger:   logger,
		state:    StateIdle,
		page:     1,
		pageSize: pageSize,
	}
}

// Refresh re-runs the current query.
func (r *Roster) Refresh(ctx context.Context) error {
	return r.cycle(ctx, func() {})
}

// SetPage moves to the given page (clamped to 1) and refreshes.
func (r *Roster) SetPage(ctx context.Context, page int) error {
	return r.cycle(ctx, func() {
		if page < 1 {
			page = 1
		}
		r.page = page
	})
}

// SetPageSize changes the page size and resets to the first page.
func (r *Roster) SetPageSize(ctx context.Context, size int) error {
	return r.cycle(ctx, func() {
		if size < 1 {
			size = 1
		}
		r.pageSize = size
		r.page = 1
	})
}

// SetSearch changes the search text and resets to the first page.
func (r *Roster) SetSearch(ctx context.Context, text string) error {
	return r.cycle(ctx, func() {
		r.search = text
		r.page = 1
	})
}

// SetFilters swaps the active filter spec and resets to the first page.
func (r *Roster) SetFilters(ctx context.Context, spec filter.Spec) error {
	return r.cycle(ctx, func() {
		r.filters = spec
		r.page = 1
	})
}

// Query applies a full parameter set in one cycle. The HTTP layer uses this
// so one request maps to one fetch.
func (r *Roster) Query(ctx context.Context, page, pageSize int, search string, spec filter.Spec) error {
	return r.cycle(ctx, func() {
		if page < 1 {
			page = 1
		}
		if pageSize < 1 {
			pageSize = 1
		}
		r.page = page
		r.pageSize = pageSize
		r.search = search
		r.filters = spec
	})
}

// Snapshot returns the current materialized page. The customers slice is a
// copy; callers cannot mutate roster state through it.
func (r *Roster) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	customers := make([]models.Customer, len(r.customers))
	copy(customers, r.customers)
	return Snapshot{
		State:      r.state,
		Customers:  customers,
		Page:       r.page,
		PageSize:   r.pageSize,
		TotalPages: r.totalPages,
		TotalItems: r.totalItems,
	}
}

// cycle runs one fetch cycle: apply the mutation, bump the generation so any
// in-flight cycle becomes stale, fetch and enrich without holding the lock,
// then commit only if still the newest cycle.
func (r *Roster) cycle(ctx context.Context, mutate func()) error {
	r.mu.Lock()
	mutate()
	r.generation++
	gen := r.generation
	r.state = StateLoading
	req := PageRequest{Page: r.page, PageSize: r.pageSize, Search: r.search, Filters: r.filters}
	r.mu.Unlock()

	result, err := r.source.FetchPage(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			r.fail(gen)
			return ctx.Err()
		}
		// Degrade to an empty page rather than surfacing the failure.
		r.logger.Error().Err(err).Int("page", req.Page).Msg("customer fetch failed")
		result = PageResult{TotalPages: 1, TotalItems: 0, Page: req.Page}
	}

	customers := r.backfill.Run(ctx, result.Customers)
	customers = AssignRanks(customers, result.Page, req.PageSize)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		// A newer cycle superseded this one; drop the results.
		r.logger.Debug().Uint64("generation", gen).Msg("stale cycle discarded")
		return nil
	}
	r.customers = customers
	r.totalPages = result.TotalPages
	r.totalItems = result.TotalItems
	if result.Page > 0 {
		r.page = result.Page
	}
	r.state = StateReady
	return nil
}

func (r *Roster) fail(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen == r.generation {
		r.state = StateError
	}
}
