// Package dune talks to the Dune Analytics execution API: a query is submitted,
// its execution polled until it settles, and the result rows fetched separately.
package dune

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// State is the lifecycle state of a query execution.
type State string

const (
	StatePending   State = "QUERY_STATE_PENDING"
	StateExecuting State = "QUERY_STATE_EXECUTING"
	StateCompleted State = "QUERY_STATE_COMPLETED"
	StateFailed    State = "QUERY_STATE_FAILED"
	StateCancelled State = "QUERY_STATE_CANCELLED"
	StateExpired   State = "QUERY_STATE_EXPIRED"
)

// Terminal reports whether the execution will not change state anymore.
func (s State) Terminal() bool {
	return s == StateCompleted || s.Failed()
}

// Failed reports whether the execution ended without results.
func (s State) Failed() bool {
	return s == StateFailed || s == StateCancelled || s == StateExpired
}

// Row is one result row keyed by column name.
type Row map[string]any

// Result holds the rows of a completed execution in column order.
type Result struct {
	ExecutionID string
	State       State
	Columns     []string
	Rows        []Row
}

// Executor is the subset of the Dune API the poller needs.
type Executor interface {
	Execute(ctx context.Context, queryID int, params map[string]any) (string, error)
	Status(ctx context.Context, executionID string) (State, error)
	Results(ctx context.Context, executionID string) (*Result, error)
}

type Client struct {
	client *resty.Client
}

func NewClient(baseURL, apiKey string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second)
	if apiKey != "" {
		client.SetHeader("X-Dune-Api-Key", apiKey)
	}
	return &Client{client: client}
}

func (c *Client) Execute(ctx context.Context, queryID int, params map[string]any) (string, error) {
	body := map[string]any{}
	if len(params) > 0 {
		body["query_parameters"] = params
	}

	var res struct {
		ExecutionID string `json:"execution_id"`
		State       State  `json:"state"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("query_id", strconv.Itoa(queryID)).
		SetBody(body).
		SetResult(&res).
		Post("/query/{query_id}/execute")
	if err != nil {
		return "", fmt.Errorf("execute query %d: %w", queryID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("execute query %d: %w", queryID, apiError(resp))
	}
	if res.ExecutionID == "" {
		return "", ErrNoExecutionID
	}
	return res.ExecutionID, nil
}

func (c *Client) Status(ctx context.Context, executionID string) (State, error) {
	var res struct {
		State State `json:"state"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("execution_id", executionID).
		SetResult(&res).
		Get("/execution/{execution_id}/status")
	if err != nil {
		return "", fmt.Errorf("execution %s status: %w", executionID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("execution %s status: %w", executionID, apiError(resp))
	}
	return res.State, nil
}

func (c *Client) Results(ctx context.Context, executionID string) (*Result, error) {
	var res struct {
		ExecutionID string `json:"execution_id"`
		State       State  `json:"state"`
		Result      struct {
			Rows     []Row `json:"rows"`
			Metadata struct {
				ColumnNames []string `json:"column_names"`
			} `json:"metadata"`
		} `json:"result"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("execution_id", executionID).
		SetResult(&res).
		Get("/execution/{execution_id}/results")
	if err != nil {
		return nil, fmt.Errorf("execution %s results: %w", executionID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("execution %s results: %w", executionID, apiError(resp))
	}
	return &Result{
		ExecutionID: executionID,
		State:       res.State,
		Columns:     res.Result.Metadata.ColumnNames,
		Rows:        res.Result.Rows,
	}, nil
}

func apiError(resp *resty.Response) error {
	e := &APIError{StatusCode: resp.StatusCode()}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		e.Message = body.Error
	}
	return e
}
