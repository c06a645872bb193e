package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/leadsight/backend/internal/models"
)

type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

// defaultClient backs every HTTPClient with a nil Client so repeated calls
// share one connection pool.
var defaultClient = &http.Client{Timeout: 15 * time.Second}

func (h HTTPClient) httpClient() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return defaultClient
}

// envelope covers the response shapes the model service has been observed to
// return. Data may be an object holding "predicted", or a bare number.
type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Predicted *float64        `json:"predicted"`
	Data      json.RawMessage `json:"data"`
}

func (h HTTPClient) Score(ctx context.Context, c models.Customer) (float64, int64, error) {
	b, _ := json.Marshal(Features(c))
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/nasabah/", bytes.NewBuffer(b))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient().Do(req)
	if err != nil {
		return 0, time.Since(start).Milliseconds(), err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, time.Since(start).Milliseconds(), &Error{Status: resp.StatusCode, Message: "undecodable response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = "model service error"
		}
		return 0, time.Since(start).Milliseconds(), &Error{Status: resp.StatusCode, Message: msg}
	}

	predicted, ok := env.resolve()
	if !ok {
		return 0, time.Since(start).Milliseconds(), &Error{Status: resp.StatusCode, Message: "unexpected response format"}
	}
	return predicted, time.Since(start).Milliseconds(), nil
}

// resolve extracts the predicted probability from whichever envelope shape
// the service used: a status envelope, a message-based success envelope, or
// a bare predicted field.
func (e envelope) resolve() (float64, bool) {
	success := e.Status == "success" ||
		(e.Message != "" && strings.Contains(strings.ToLower(e.Message), "success"))

	if v, ok := e.dataPredicted(); ok {
		return v, true
	}
	if e.Predicted != nil {
		return *e.Predicted, true
	}
	if success {
		// Some deployments return the probability as the data value itself.
		var bare float64
		if len(e.Data) > 0 && json.Unmarshal(e.Data, &bare) == nil {
			return bare, true
		}
	}
	return 0, false
}

func (e envelope) dataPredicted() (float64, bool) {
	if len(e.Data) == 0 {
		return 0, false
	}
	var inner struct {
		Predicted *float64 `json:"predicted"`
	}
	if err := json.Unmarshal(e.Data, &inner); err != nil || inner.Predicted == nil {
		return 0, false
	}
	return *inner.Predicted, true
}
