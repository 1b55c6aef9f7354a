// Package engine — HTTP-клиент внешнего workflow-движка.
//
// Клиент реализует executor.Engine: запуск DAG одним синхронным
// POST-запросом. Движок сам разворачивает DAG в шаги; ядру важен
// только итоговый результат запуска.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Minute

// runRequest — тело запроса на запуск DAG.
type runRequest struct {
	Tenant string `json:"tenant"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// runResponse — результат запуска DAG.
type runResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client — HTTP-клиент движка.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент движка. timeout <= 0 — дефолт 5 минут.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ExecuteWorkflow запускает DAG и дожидается результата.
func (c *Client) ExecuteWorkflow(ctx context.Context, dagPath, tenant string, dryRun bool) (map[string]any, error) {
	body, err := json.Marshal(runRequest{Tenant: tenant, DryRun: dryRun})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/dags/%s/runs", c.baseURL, dagPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return nil, fmt.Errorf("engine error: HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("engine error %s: %s", er.Error.Code, er.Error.Message)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rr runResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var result map[string]any
	if len(rr.Data) > 0 {
		if err := json.Unmarshal(rr.Data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode run result: %w", err)
		}
	}
	return result, nil
}
