package roster

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/leadsight/backend/internal/models"
)

type fakeScorer struct {
	mu      sync.Mutex
	calls   []string
	results map[string]float64
	fail    map[string]bool
}

func (f *fakeScorer) Score(ctx context.Context, c models.Customer) (float64, int64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c.ID)
	f.mu.Unlock()
	if f.fail[c.ID] {
		return 0, 0, errors.New("model unavailable")
	}
	return f.results[c.ID], 1, nil
}

type fakeSink struct {
	saved map[string]float64
	fail  bool
}

func (f *fakeSink) SaveProbability(ctx context.Context, id string, probability float64) error {
	if f.fail {
		return errors.New("db down")
	}
	if f.saved == nil {
		f.saved = map[string]float64{}
	}
	f.saved[id] = probability
	return nil
}

func TestBackfillScoresOnlyMissing(t *testing.T) {
	have := 0.8
	scorer := &fakeScorer{results: map[string]float64{"b": 0.3}}
	sink := &fakeSink{}
	b := &Backfill{Scorer: scorer, Sink: sink, Logger: zerolog.Nop()}

	out := b.Run(context.Background(), []models.Customer{
		{ID: "a", Probability: &have},
		{ID: "b"},
	})

	if len(scorer.calls) != 1 || scorer.calls[0] != "b" {
		t.Fatalf("expected one scorer call for b, got %v", scorer.calls)
	}
	if out[1].Probability == nil || *out[1].Probability != 0.3 {
		t.Fatalf("expected b backfilled with 0.3, got %+v", out[1].Probability)
	}
	if sink.saved["b"] != 0.3 {
		t.Fatalf("expected b persisted, got %+v", sink.saved)
	}
	if _, ok := sink.saved["a"]; ok {
		t.Fatalf("already scored customer must not be re-persisted")
	}
}

func TestBackfillIdempotent(t *testing.T) {
	scorer := &fakeScorer{results: map[string]float64{"a": 0.6}}
	b := &Backfill{Scorer: scorer, Sink: &fakeSink{}, Logger: zerolog.Nop()}

	out := b.Run(context.Background(), []models.Customer{{ID: "a"}})
	out = b.Run(context.Background(), out)

	if len(scorer.calls) != 1 {
		t.Fatalf("second run must make zero scorer calls, got %v", scorer.calls)
	}
	if out[0].Score == nil || *out[0].Score != 60 {
		t.Fatalf("expected score 60, got %+v", out[0].Score)
	}
}

func TestBackfillSequentialOrder(t *testing.T) {
	scorer := &fakeScorer{results: map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3}}
	b := &Backfill{Scorer: scorer, Logger: zerolog.Nop()}

	b.Run(context.Background(), []models.Customer{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	if len(scorer.calls) != 3 || scorer.calls[0] != "a" || scorer.calls[1] != "b" || scorer.calls[2] != "c" {
		t.Fatalf("expected calls in input order, got %v", scorer.calls)
	}
}

func TestBackfillFailedItemSkipped(t *testing.T) {
	scorer := &fakeScorer{
		results: map[string]float64{"a": 0.9, "c": 0.2},
		fail:    map[string]bool{"b": true},
	}
	b := &Backfill{Scorer: scorer, Sink: &fakeSink{}, Logger: zerolog.Nop()}

	out := b.Run(context.Background(), []models.Customer{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	if out[0].Probability == nil || out[2].Probability == nil {
		t.Fatalf("surviving items must be scored")
	}
	if out[1].Probability != nil {
		t.Fatalf("failed item must keep nil probability")
	}
	if out[1].Score != nil || out[1].Category != "" {
		t.Fatalf("failed item must stay unscored and uncategorized, got %+v", out[1])
	}
	if len(scorer.calls) != 3 {
		t.Fatalf("batch must continue past a failure, got calls %v", scorer.calls)
	}
}

func TestBackfillKeepsLocalValueWhenPersistFails(t *testing.T) {
	scorer := &fakeScorer{results: map[string]float64{"a": 0.42}}
	b := &Backfill{Scorer: scorer, Sink: &fakeSink{fail: true}, Logger: zerolog.Nop()}

	out := b.Run(context.Background(), []models.Customer{{ID: "a"}})
	if out[0].Probability == nil || *out[0].Probability != 0.42 {
		t.Fatalf("persist failure must not discard the scored value, got %+v", out[0].Probability)
	}
	if out[0].Score == nil || *out[0].Score != 42 {
		t.Fatalf("expected score 42, got %+v", out[0].Score)
	}
}

func TestBackfillMaterializesScoreAndCategory(t *testing.T) {
	scorer := &fakeScorer{results: map[string]float64{
		"lo":   0.504, // rounds to 50, still non-priority
		"edge": 0.514, // rounds to 51, priority
		"hi":   0.999,
	}}
	b := &Backfill{Scorer: scorer, Logger: zerolog.Nop()}

	out := b.Run(context.Background(), []models.Customer{{ID: "lo"}, {ID: "edge"}, {ID: "hi"}})

	if *out[0].Score != 50 || out[0].Category != models.CategoryNonPriority {
		t.Fatalf("0.504 rounds to 50 and is non-priority, got %d %s", *out[0].Score, out[0].Category)
	}
	if *out[1].Score != 51 || out[1].Category != models.CategoryPriority {
		t.Fatalf("expected 51/priority, got %d %s", *out[1].Score, out[1].Category)
	}
	if *out[2].Score != 100 || out[2].Category != models.CategoryPriority {
		t.Fatalf("expected 100/priority, got %d %s", *out[2].Score, out[2].Category)
	}
}

func TestBackfillInputNotMutated(t *testing.T) {
	scorer := &fakeScorer{results: map[string]float64{"a": 0.7}}
	b := &Backfill{Scorer: scorer, Logger: zerolog.Nop()}

	in := []models.Customer{{ID: "a"}}
	_ = b.Run(context.Background(), in)
	if in[0].Probability != nil || in[0].Score != nil {
		t.Fatalf("input slice must not be mutated, got %+v", in[0])
	}
}
