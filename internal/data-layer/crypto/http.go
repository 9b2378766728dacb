// Package crypto holds thin clients for the blockchain data vendors and node
// RPC endpoints the explorer reads from. Each client returns vendor data mapped
// to model types and reports failures as errors; none of them substitutes values.
package crypto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrNotFound is returned when the vendor has no record for the requested id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for identifiers the vendor cannot look up.
	ErrInvalidInput = errors.New("invalid input")
)

// StatusError is a non-2xx answer from a vendor API.
type StatusError struct {
	Vendor     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("%s: http %d: %s", e.Vendor, e.StatusCode, body)
}

func newRestClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(20 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)
}

// checkResponse folds the transport error and the HTTP status into one error.
func checkResponse(vendor string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", vendor, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s: %w", vendor, ErrNotFound)
	}
	if resp.IsError() {
		return &StatusError{Vendor: vendor, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// getJSON issues a GET and decodes the body into out regardless of the
// Content-Type the vendor sends.
func getJSON(ctx context.Context, vendor string, req *resty.Request, path string, out any) error {
	resp, err := req.SetContext(ctx).Get(path)
	if err := checkResponse(vendor, resp, err); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", vendor, path, err)
	}
	return nil
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// jsonRPC is a JSON-RPC 2.0 endpoint shared by the Ethereum and Solana clients.
type jsonRPC struct {
	name        string
	client      *resty.Client
	rateLimiter <-chan time.Time
}

func newJSONRPC(name, rpcURL, apiKey string, every time.Duration) *jsonRPC {
	client := newRestClient(rpcURL).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	r := &jsonRPC{name: name, client: client}
	if every > 0 {
		r.rateLimiter = time.Tick(every)
	}
	return r
}

func (r *jsonRPC) wait(ctx context.Context) error {
	if r.rateLimiter == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.rateLimiter:
		return nil
	}
}

// rpcCall invokes method and decodes the result into out. A null result is
// reported as ErrNotFound.
func (r *jsonRPC) rpcCall(ctx context.Context, method string, params []any, out any) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	if params == nil {
		params = []any{}
	}
	body := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}
	var res struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("")
	if err := checkResponse(r.name, resp, err); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return fmt.Errorf("%s %s: decode: %w", r.name, method, err)
	}
	if res.Error != nil {
		return fmt.Errorf("%s %s: %w", r.name, method, res.Error)
	}
	if len(res.Result) == 0 || string(res.Result) == "null" {
		return fmt.Errorf("%s %s: %w", r.name, method, ErrNotFound)
	}
	if err := json.Unmarshal(res.Result, out); err != nil {
		return fmt.Errorf("%s %s: decode result: %w", r.name, method, err)
	}
	return nil
}

// numString holds a number that a vendor may send either as a JSON number or
// as a string. Null and empty values decode to "".
type numString string

func (n *numString) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*n = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = numString(str)
		return nil
	}
	*n = numString(s)
	return nil
}

func (n numString) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}
