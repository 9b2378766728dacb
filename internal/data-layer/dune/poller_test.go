package dune

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeDune struct {
	states      []State
	rows        string
	executionID string
	statusCalls atomic.Int32
	params      map[string]any
	apiKey      string
}

func (f *fakeDune) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	json200 := func(w http.ResponseWriter) { w.Header().Set("Content-Type", "application/json") }
	mux.HandleFunc("POST /query/{id}/execute", func(w http.ResponseWriter, r *http.Request) {
		json200(w)
		f.apiKey = r.Header.Get("X-Dune-Api-Key")
		var body struct {
			Params map[string]any `json:"query_parameters"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.params = body.Params
		_ = json.NewEncoder(w).Encode(map[string]string{
			"execution_id": f.executionID,
			"state":        string(StatePending),
		})
	})
	mux.HandleFunc("GET /execution/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		json200(w)
		n := int(f.statusCalls.Add(1)) - 1
		state := f.states[len(f.states)-1]
		if n < len(f.states) {
			state = f.states[n]
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"state": string(state)})
	})
	mux.HandleFunc("GET /execution/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		if got := r.PathValue("id"); got != f.executionID {
			t.Errorf("results for %q, want %q", got, f.executionID)
		}
		json200(w)
		_, _ = w.Write([]byte(f.rows))
	})
	return mux
}

func newTestPoller(t *testing.T, f *fakeDune, attempts int) *Poller {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewPoller(NewClient(srv.URL, "secret"), time.Millisecond, attempts, zerolog.Nop())
}

const priceRows = `{"state":"QUERY_STATE_COMPLETED","result":{
	"rows":[{"day":"2024-05-01","price":3012.5}],
	"metadata":{"column_names":["day","price"]}}}`

func TestPollerRunCompleted(t *testing.T) {
	f := &fakeDune{
		executionID: "01HX",
		states:      []State{StatePending, StateExecuting, StateCompleted},
		rows:        priceRows,
	}
	p := newTestPoller(t, f, 5)

	res, err := p.Run(context.Background(), Query{Name: "price", ID: 42, Params: map[string]any{"days": 7}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Rows) != 1 || res.Columns[1] != "price" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := f.statusCalls.Load(); got != 3 {
		t.Errorf("status calls = %d, want 3", got)
	}
	if f.apiKey != "secret" {
		t.Errorf("api key header = %q", f.apiKey)
	}
	if f.params["days"] != float64(7) {
		t.Errorf("query_parameters = %v", f.params)
	}
}

func TestPollerRunFailedState(t *testing.T) {
	f := &fakeDune{executionID: "x", states: []State{StateExecuting, StateFailed}}
	p := newTestPoller(t, f, 5)

	_, err := p.Run(context.Background(), Query{ID: 1})
	if !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("err = %v, want ErrQueryFailed", err)
	}
}

func TestPollerRunTimeout(t *testing.T) {
	f := &fakeDune{executionID: "x", states: []State{StateExecuting}}
	p := newTestPoller(t, f, 4)

	_, err := p.Run(context.Background(), Query{ID: 1})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if got := f.statusCalls.Load(); got != 4 {
		t.Errorf("status calls = %d, want 4", got)
	}
}

func TestPollerQueryOverridesAttempts(t *testing.T) {
	f := &fakeDune{executionID: "x", states: []State{StatePending}}
	p := newTestPoller(t, f, 5)

	_, err := p.Run(context.Background(), Query{ID: 1, MaxAttempts: 2})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if got := f.statusCalls.Load(); got != 2 {
		t.Errorf("status calls = %d, want 2", got)
	}
}

func TestPollerRunNoExecutionID(t *testing.T) {
	f := &fakeDune{states: []State{StateCompleted}}
	p := newTestPoller(t, f, 5)

	_, err := p.Run(context.Background(), Query{ID: 1})
	if !errors.Is(err, ErrNoExecutionID) {
		t.Fatalf("err = %v, want ErrNoExecutionID", err)
	}
	if f.statusCalls.Load() != 0 {
		t.Error("status polled without an execution id")
	}
}

func TestPollerRunNoRows(t *testing.T) {
	f := &fakeDune{
		executionID: "x",
		states:      []State{StateCompleted},
		rows:        `{"result":{"rows":[],"metadata":{"column_names":[]}}}`,
	}
	p := newTestPoller(t, f, 5)

	_, err := p.Run(context.Background(), Query{ID: 1})
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("err = %v, want ErrNoRows", err)
	}
}

func TestPollerRunContextCancel(t *testing.T) {
	f := &fakeDune{executionID: "x", states: []State{StatePending}}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()
	p := NewPoller(NewClient(srv.URL, ""), time.Hour, 5, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Run(ctx, Query{ID: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Run did not return promptly after cancellation")
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid API key"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad").Execute(context.Background(), 1, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "invalid API key" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestPollerValue(t *testing.T) {
	f := &fakeDune{executionID: "x", states: []State{StateCompleted}, rows: priceRows}
	p := newTestPoller(t, f, 5)

	v, err := Value(context.Background(), p, EthPrice, nil)
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != 3012.5 {
		t.Errorf("Value() = %v, want 3012.5", v)
	}
}

func TestPollerFirstRow(t *testing.T) {
	f := &fakeDune{executionID: "x", states: []State{StateCompleted}, rows: priceRows}
	p := newTestPoller(t, f, 5)

	row, columns, err := p.FirstRow(context.Background(), EthPrice.Query(nil))
	if err != nil {
		t.Fatalf("FirstRow() error = %v", err)
	}
	if row.String("day") != "2024-05-01" || len(columns) != 2 {
		t.Errorf("FirstRow() = %v, %v", row, columns)
	}
}
