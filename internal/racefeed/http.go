package racefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/umastats/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request and returns the status and body.
func (c *HTTPClient) Get(ctx context.Context, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Send performs a request with a JSON body and returns the status and body.
func (c *HTTPClient) Send(ctx context.Context, method, target string, body any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// putTables uploads the winners and bans of the plan.
func putTables(ctx context.Context, config *Config, plan *Plan) error {
	client := newHTTPClient(config.Timeout)
	put := func(kind string, table map[string][]string) error {
		for tournament, names := range table {
			target := config.BaseURL + "/tournaments/" + url.PathEscape(tournament) + "/" + kind
			status, body, err := client.Send(ctx, http.MethodPut, target, names)
			if err != nil {
				return err
			}
			if status != StatusOK {
				return fmt.Errorf("PUT %s: status %d: %s", target, status, body)
			}
		}
		return nil
	}
	if err := put("winners", plan.Winners); err != nil {
		return err
	}
	if err := put("bans", plan.Bans); err != nil {
		return err
	}
	logger.Get().Info(ctx, "reference tables uploaded",
		logger.Int("winners", len(plan.Winners)),
		logger.Int("bans", len(plan.Bans)),
	)
	return nil
}

// submitRows posts rows in batches using a pool of workers.
func submitRows(ctx context.Context, config *Config, rows []Row, stats *Stats) error {
	log := logger.Get().Named("submit")
	log.Info(ctx, "submitting rows",
		logger.Int("rows", len(rows)),
		logger.Int("batchSize", config.BatchSize),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config.Timeout)
	target := config.BaseURL + "/races"

	var submitted, accepted, duplicate, failed, failedRequests atomic.Int64

	batches := make(chan []Row, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				ack, err := submitBatch(ctx, client, target, batch)
				submitted.Add(int64(len(batch)))
				if err != nil {
					failed.Add(int64(len(batch)))
					failedRequests.Add(1)
					if config.Verbose {
						log.Warn(ctx, "batch failed", logger.Error(err))
					}
					continue
				}
				accepted.Add(int64(ack.Accepted))
				duplicate.Add(int64(ack.Duplicates))
			}
		}()
	}

	go func() {
		defer close(batches)
		for start := 0; start < len(rows); start += config.BatchSize {
			end := min(start+config.BatchSize, len(rows))
			select {
			case <-ctx.Done():
				return
			case batches <- rows[start:end]:
			}
		}
	}()
	wg.Wait()

	stats.RowsSubmitted += int(submitted.Load())
	stats.RowsAccepted += int(accepted.Load())
	stats.RowsDuplicate += int(duplicate.Load())
	stats.RowsFailed += int(failed.Load())
	stats.RequestsFailed += int(failedRequests.Load())

	log.Info(ctx, "row submission completed",
		logger.Int("accepted", int(accepted.Load())),
		logger.Int("duplicate", int(duplicate.Load())),
		logger.Int("failed", int(failed.Load())),
	)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

// submitBatch posts one batch and decodes the acknowledgement.
func submitBatch(ctx context.Context, client *HTTPClient, target string, batch []Row) (AckResponse, error) {
	status, body, err := client.Send(ctx, http.MethodPost, target, map[string]any{"rows": batch})
	if err != nil {
		return AckResponse{}, err
	}
	if status != StatusAccepted && status != StatusOK {
		return AckResponse{}, fmt.Errorf("status %d: %s", status, body)
	}
	var ack AckResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return AckResponse{}, fmt.Errorf("failed to decode ack: %w", err)
	}
	return ack, nil
}
