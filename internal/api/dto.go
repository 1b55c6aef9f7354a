package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// Checkpoint DTOs

// CreateCheckpointRequest — запрос на создание checkpoint.
type CreateCheckpointRequest struct {
	ID       string `json:"id"`
	DagRunID string `json:"dag_run_id"`
	TaskID   string `json:"task_id"`
	Tenant   string `json:"tenant"`
	Prompt   string `json:"prompt,omitempty"`

	RequiredRole    string   `json:"required_role,omitempty"`
	RequiredSigners []string `json:"required_signers,omitempty"`
	MinSignatures   int      `json:"min_signatures,omitempty"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ApproveCheckpointRequest — запрос на approve.
type ApproveCheckpointRequest struct {
	User string         `json:"user"`
	Data map[string]any `json:"data,omitempty"`
}

// RejectCheckpointRequest — запрос на reject.
type RejectCheckpointRequest struct {
	User   string `json:"user"`
	Reason string `json:"reason"`
}

// SignCheckpointRequest — запрос на sign (multi-sign режим).
type SignCheckpointRequest struct {
	User string         `json:"user"`
	Data map[string]any `json:"data,omitempty"`
}

// ApprovalResponse — одна подпись в ответе.
type ApprovalResponse struct {
	User string         `json:"user"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data,omitempty"`
}

// CheckpointResponse — ответ с checkpoint.
type CheckpointResponse struct {
	ID       string `json:"id"`
	DagRunID string `json:"dag_run_id"`
	TaskID   string `json:"task_id"`
	Tenant   string `json:"tenant"`
	Prompt   string `json:"prompt,omitempty"`

	RequiredRole    string   `json:"required_role,omitempty"`
	RequiredSigners []string `json:"required_signers,omitempty"`
	MinSignatures   int      `json:"min_signatures,omitempty"`

	Status       string             `json:"status"`
	Approvals    []ApprovalResponse `json:"approvals,omitempty"`
	RejectedBy   string             `json:"rejected_by,omitempty"`
	RejectReason string             `json:"reject_reason,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CheckpointFromDomain конвертирует domain.Checkpoint в CheckpointResponse.
func CheckpointFromDomain(cp domain.Checkpoint) CheckpointResponse {
	approvals := make([]ApprovalResponse, len(cp.Approvals))
	for i, a := range cp.Approvals {
		approvals[i] = ApprovalResponse{User: a.User, At: a.At, Data: a.Data}
	}

	return CheckpointResponse{
		ID:              cp.ID,
		DagRunID:        cp.DagRunID,
		TaskID:          cp.TaskID,
		Tenant:          cp.Tenant,
		Prompt:          cp.Prompt,
		RequiredRole:    string(cp.RequiredRole),
		RequiredSigners: cp.RequiredSigners,
		MinSignatures:   cp.MinSignatures,
		Status:          string(cp.Status),
		Approvals:       approvals,
		RejectedBy:      cp.RejectedBy,
		RejectReason:    cp.RejectReason,
		CreatedAt:       cp.CreatedAt,
		ExpiresAt:       cp.ExpiresAt,
	}
}

// Job DTOs

// JobResponse — ответ с job.
type JobResponse struct {
	ID         uuid.UUID      `json:"id"`
	DagPath    string         `json:"dag_path"`
	Tenant     string         `json:"tenant"`
	ScheduleID string         `json:"schedule_id"`
	Status     string         `json:"status"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Attempts   int            `json:"attempts"`
	MaxRetries int            `json:"max_retries"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j domain.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		DagPath:    j.WorkflowRef,
		Tenant:     j.Tenant,
		ScheduleID: j.ScheduleID,
		Status:     string(j.Status),
		EnqueuedAt: j.EnqueuedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Attempts:   j.Attempts,
		MaxRetries: j.MaxRetries,
		Result:     j.Result,
		Error:      j.Error,
	}
}

// JobStatsResponse — количество jobs по статусам.
type JobStatsResponse struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Retry   int `json:"retry"`
}
