package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leadsight/backend/internal/models"
)

func TestScoreStatusEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/nasabah/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","data":{"predicted":0.73}}`))
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL}
	got, _, err := c.Score(context.Background(), models.Customer{ID: "c1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.73 {
		t.Fatalf("expected 0.73, got %f", got)
	}
}

func TestScoreMessageEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Prediction success","data":0.41}`))
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL}
	got, _, err := c.Score(context.Background(), models.Customer{ID: "c1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.41 {
		t.Fatalf("expected 0.41, got %f", got)
	}
}

func TestScoreBarePredicted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predicted":0.12}`))
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL}
	got, _, err := c.Score(context.Background(), models.Customer{ID: "c1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.12 {
		t.Fatalf("expected 0.12, got %f", got)
	}
}

func TestScoreUnknownShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","value":1}`))
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL}
	_, _, err := c.Score(context.Background(), models.Customer{ID: "c1"})
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected scoring.Error, got %v", err)
	}
	if serr.Status != http.StatusOK {
		t.Fatalf("unexpected status in error: %d", serr.Status)
	}
}

func TestScoreServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"model not loaded"}`))
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL}
	_, _, err := c.Score(context.Background(), models.Customer{ID: "c1"})
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected scoring.Error, got %v", err)
	}
	if serr.Status != http.StatusInternalServerError || serr.Message != "model not loaded" {
		t.Fatalf("unexpected error detail: %+v", serr)
	}
}

func TestScoreSendsRenamedFeatures(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"status":"success","data":{"predicted":0.5}}`))
	}))
	defer srv.Close()

	c := HTTPClient{BaseURL: srv.URL}
	cust := models.Customer{ID: "c1", Age: 41, Day: "mon", EmpVarRate: -1.8, NrEmployed: 5099.1}
	if _, _, err := c.Score(context.Background(), cust); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payload["day_of_week"] != "mon" {
		t.Fatalf("expected day_of_week=mon, got %v", payload["day_of_week"])
	}
	if payload["emp.var.rate"] != -1.8 {
		t.Fatalf("expected emp.var.rate=-1.8, got %v", payload["emp.var.rate"])
	}
	if payload["nr.employed"] != 5099.1 {
		t.Fatalf("expected nr.employed=5099.1, got %v", payload["nr.employed"])
	}
	if _, ok := payload["id"]; ok {
		t.Fatalf("customer id must not be sent to the model")
	}
	if _, ok := payload["day"]; ok {
		t.Fatalf("raw day key must be renamed")
	}
}

func TestHTTPClientSharedDefault(t *testing.T) {
	a := HTTPClient{BaseURL: "http://model-a"}
	b := HTTPClient{BaseURL: "http://model-b"}
	if a.httpClient() != a.httpClient() || a.httpClient() != b.httpClient() {
		t.Fatalf("nil Client must resolve to the shared default client")
	}

	own := &http.Client{}
	c := HTTPClient{Client: own}
	if c.httpClient() != own {
		t.Fatalf("explicit client must win over the default")
	}
}

func TestMockClientDeterministic(t *testing.T) {
	m := MockClient{ModelVersion: "mock-v1"}
	a1, _, err := m.Score(context.Background(), models.Customer{ID: "cust-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, _, _ := m.Score(context.Background(), models.Customer{ID: "cust-1"})

	if a1 != a2 {
		t.Fatalf("expected deterministic prediction, got %f and %f", a1, a2)
	}
	if a1 < 0 || a1 >= 1 {
		t.Fatalf("prediction out of range: %f", a1)
	}
}
