package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ApprovalResponse — одна подпись checkpoint'а.
type ApprovalResponse struct {
	User string         `json:"user"`
	At   string         `json:"at"`
	Data map[string]any `json:"data,omitempty"`
}

// CheckpointResponse — checkpoint из API.
type CheckpointResponse struct {
	ID              string             `json:"id"`
	DagRunID        string             `json:"dag_run_id"`
	TaskID          string             `json:"task_id"`
	Tenant          string             `json:"tenant"`
	Prompt          string             `json:"prompt,omitempty"`
	RequiredRole    string             `json:"required_role,omitempty"`
	RequiredSigners []string           `json:"required_signers,omitempty"`
	MinSignatures   int                `json:"min_signatures,omitempty"`
	Status          string             `json:"status"`
	Approvals       []ApprovalResponse `json:"approvals,omitempty"`
	RejectedBy      string             `json:"rejected_by,omitempty"`
	RejectReason    string             `json:"reject_reason,omitempty"`
	CreatedAt       string             `json:"created_at"`
	ExpiresAt       string             `json:"expires_at,omitempty"`
}

// JobResponse — job из API.
type JobResponse struct {
	ID         string         `json:"id"`
	DagPath    string         `json:"dag_path"`
	Tenant     string         `json:"tenant"`
	ScheduleID string         `json:"schedule_id"`
	Status     string         `json:"status"`
	EnqueuedAt string         `json:"enqueued_at"`
	StartedAt  string         `json:"started_at,omitempty"`
	FinishedAt string         `json:"finished_at,omitempty"`
	Attempts   int            `json:"attempts"`
	MaxRetries int            `json:"max_retries"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// JobStatsResponse — количество jobs по статусам.
type JobStatsResponse struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Retry   int `json:"retry"`
}

// --- Request types ---

// ApproveRequest — approve checkpoint'а.
type ApproveRequest struct {
	User string         `json:"user"`
	Data map[string]any `json:"data,omitempty"`
}

// RejectRequest — reject checkpoint'а.
type RejectRequest struct {
	User   string `json:"user"`
	Reason string `json:"reason"`
}

// SignRequest — подпись checkpoint'а.
type SignRequest struct {
	User string         `json:"user"`
	Data map[string]any `json:"data,omitempty"`
}

// ListCheckpointsOpts — параметры фильтрации checkpoints.
type ListCheckpointsOpts struct {
	Tenant string
	Status string
}

// ListJobsOpts — параметры фильтрации jobs.
type ListJobsOpts struct {
	Status string
	Limit  int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для relay API.
type Client struct {
	baseURL    string
	role       string
	httpClient *http.Client
}

// NewClient создаёт клиент для API. role уходит в каждый запрос
// заголовком X-Relay-Role.
func NewClient(baseURL, role string) *Client {
	return &Client{
		baseURL: baseURL,
		role:    role,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Checkpoints ---

// ListCheckpoints возвращает checkpoints с фильтрацией.
func (c *Client) ListCheckpoints(opts ListCheckpointsOpts) ([]CheckpointResponse, error) {
	params := url.Values{}
	if opts.Tenant != "" {
		params.Set("tenant", opts.Tenant)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}

	var checkpoints []CheckpointResponse
	err := c.list("/api/v1/checkpoints", params, &checkpoints)
	return checkpoints, err
}

// GetCheckpoint возвращает checkpoint по ID.
func (c *Client) GetCheckpoint(id string) (*CheckpointResponse, error) {
	var cp CheckpointResponse
	err := c.get("/api/v1/checkpoints/"+id, &cp)
	return &cp, err
}

// ApproveCheckpoint одобряет checkpoint.
func (c *Client) ApproveCheckpoint(id string, req ApproveRequest) (*CheckpointResponse, error) {
	var cp CheckpointResponse
	err := c.post("/api/v1/checkpoints/"+id+"/approve", req, &cp)
	return &cp, err
}

// RejectCheckpoint отклоняет checkpoint.
func (c *Client) RejectCheckpoint(id string, req RejectRequest) (*CheckpointResponse, error) {
	var cp CheckpointResponse
	err := c.post("/api/v1/checkpoints/"+id+"/reject", req, &cp)
	return &cp, err
}

// SignCheckpoint добавляет подпись к multi-sign checkpoint'у.
func (c *Client) SignCheckpoint(id string, req SignRequest) (*CheckpointResponse, error) {
	var cp CheckpointResponse
	err := c.post("/api/v1/checkpoints/"+id+"/sign", req, &cp)
	return &cp, err
}

// --- Jobs ---

// ListJobs возвращает jobs в заданном статусе.
func (c *Client) ListJobs(opts ListJobsOpts) ([]JobResponse, error) {
	params := url.Values{}
	params.Set("status", opts.Status)
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var jobs []JobResponse
	err := c.list("/api/v1/jobs", params, &jobs)
	return jobs, err
}

// JobStats возвращает количество jobs по статусам.
func (c *Client) JobStats() (*JobStatsResponse, error) {
	var stats JobStatsResponse
	err := c.get("/api/v1/jobs/stats", &stats)
	return &stats, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.role != "" {
		req.Header.Set("X-Relay-Role", c.role)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
