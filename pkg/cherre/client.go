// Package cherre extracts recorder, assessor, and owner records from the
// Cherre GraphQL API with pagination and retry.
package cherre

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/nedl-data/nedl-etl/config"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

// Client executes GraphQL queries against the Cherre API. Non-200 responses
// and transport failures retry up to the configured maximum; server errors
// back off harder than the rest.
type Client struct {
	httpClient *http.Client
	logger     ectologger.Logger
	url        string
	apiKey     string
	pageSize   int
	maxRetries int

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

func NewClient(cfg config.Config, logger ectologger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.CherreRequestTimeout},
		logger:     logger,
		url:        cfg.CherreAPIURL,
		apiKey:     cfg.CherreAPIKey,
		pageSize:   cfg.CherrePageSize,
		maxRetries: cfg.CherreMaxRetries,
		sleep:      time.Sleep,
	}
}

const (
	serverErrorBackoff = 5 * time.Second
	defaultBackoff     = 1 * time.Second
)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Query posts a GraphQL query and decodes the data payload into dest.
// GraphQL-level errors do not retry; they indicate a bad query, not a
// transient failure.
func (c *Client) Query(ctx context.Context, query string, dest any) error {
	ctx, span := tracing.StartSpan(ctx, "cherre.Client.Query")
	defer span.End()

	log := c.logger.WithContext(ctx)

	var lastErr error
	lastStatus := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBackoff
			if lastStatus == http.StatusInternalServerError {
				backoff = serverErrorBackoff
			}
			log.WithFields(map[string]any{
				"attempt": attempt,
				"max":     c.maxRetries,
				"backoff": backoff.String(),
			}).Warn("Retrying Cherre query")
			c.sleep(backoff)
		}

		result, status, err := c.post(ctx, query)
		if err != nil {
			lastErr = err
			lastStatus = status
			continue
		}

		if len(result.Errors) > 0 {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "graphql error: %s", result.Errors[0].Message)
		}

		if err := json.Unmarshal(result.Data, dest); err != nil {
			return fmt.Errorf("failed to decode graphql data: %w", err)
		}
		return nil
	}

	return lastErr
}

func (c *Client) post(ctx context.Context, query string) (*graphQLResponse, int, error) {
	body, err := json.Marshal(graphQLRequest{Query: query})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("cherre request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, resp.StatusCode, httperror.NewHTTPErrorf(resp.StatusCode, "cherre returned HTTP %d: %s", resp.StatusCode, payload)
	}

	var result graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode graphql response: %w", err)
	}
	return &result, resp.StatusCode, nil
}

// fetchPages pulls pageSize rows at a time from the named table until an
// empty page, decoding each page into T.
func fetchPages[T any](ctx context.Context, c *Client, table string, buildQuery func(limit, offset int) string) ([]T, error) {
	var all []T
	offset := 0
	for {
		page, err := fetchOne[T](ctx, c, table, buildQuery(c.pageSize, offset))
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		offset += c.pageSize
	}
}

// fetchOne runs a single query and decodes the named table's rows into T.
// A missing table key in the response decodes as an empty page.
func fetchOne[T any](ctx context.Context, c *Client, table, query string) ([]T, error) {
	var envelope map[string]json.RawMessage
	if err := c.Query(ctx, query, &envelope); err != nil {
		return nil, err
	}

	raw, ok := envelope[table]
	if !ok {
		return nil, nil
	}

	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", table, err)
	}
	return rows, nil
}
