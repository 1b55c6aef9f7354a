package api

import (
	"encoding/json"
	"net/http"

	"github.com/kmabbott81/relay-sub001/internal/checkpoint"
	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// HeaderRole — заголовок с ролью вызывающего.
const HeaderRole = "X-Relay-Role"

// ListCheckpoints возвращает список checkpoints с фильтрацией.
// GET /api/v1/checkpoints?tenant=...&status=...
func (h *Handler) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")

	var status domain.CheckpointStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status = domain.ParseCheckpointStatus(s)
		if status == "" {
			BadRequest(w, "invalid status")
			return
		}
	}

	checkpoints, err := h.store.List(r.Context(), tenant, status)
	if HandleCheckpointError(w, h.logger, err) {
		return
	}

	result := make([]CheckpointResponse, len(checkpoints))
	for i, cp := range checkpoints {
		result[i] = CheckpointFromDomain(cp)
	}

	List(w, result, len(result))
}

// CreateCheckpoint создаёт новый checkpoint.
// POST /api/v1/checkpoints
func (h *Handler) CreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.ID == "" || req.DagRunID == "" || req.Tenant == "" {
		BadRequest(w, "id, dag_run_id and tenant are required")
		return
	}

	var role domain.Role
	if req.RequiredRole != "" {
		role = domain.ParseRole(req.RequiredRole)
		if role == "" {
			BadRequest(w, "invalid required_role")
			return
		}
	}

	cp, err := h.store.Create(r.Context(), checkpoint.CreateParams{
		ID:              req.ID,
		DagRunID:        req.DagRunID,
		TaskID:          req.TaskID,
		Tenant:          req.Tenant,
		Prompt:          req.Prompt,
		RequiredRole:    role,
		RequiredSigners: req.RequiredSigners,
		MinSignatures:   req.MinSignatures,
		ExpiresAt:       req.ExpiresAt,
	})
	if HandleCheckpointError(w, h.logger, err) {
		return
	}

	Created(w, CheckpointFromDomain(*cp))
}

// GetCheckpoint возвращает checkpoint по ID.
// GET /api/v1/checkpoints/{id}
func (h *Handler) GetCheckpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := h.store.Get(r.Context(), r.PathValue("id"))
	if HandleCheckpointError(w, h.logger, err) {
		return
	}

	Success(w, CheckpointFromDomain(*cp))
}

// ApproveCheckpoint одобряет checkpoint (single-approval режим).
// POST /api/v1/checkpoints/{id}/approve
func (h *Handler) ApproveCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req ApproveCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.User == "" {
		BadRequest(w, "user is required")
		return
	}

	role, ok := callerRole(w, r)
	if !ok {
		return
	}

	cp, err := h.store.Approve(r.Context(), r.PathValue("id"), req.User, role, req.Data)
	if HandleCheckpointError(w, h.logger, err) {
		return
	}

	Success(w, CheckpointFromDomain(*cp))
}

// RejectCheckpoint отклоняет checkpoint.
// POST /api/v1/checkpoints/{id}/reject
func (h *Handler) RejectCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req RejectCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.User == "" {
		BadRequest(w, "user is required")
		return
	}

	role, ok := callerRole(w, r)
	if !ok {
		return
	}

	cp, err := h.store.Reject(r.Context(), r.PathValue("id"), req.User, role, req.Reason)
	if HandleCheckpointError(w, h.logger, err) {
		return
	}

	Success(w, CheckpointFromDomain(*cp))
}

// SignCheckpoint добавляет подпись (multi-sign режим).
// POST /api/v1/checkpoints/{id}/sign
func (h *Handler) SignCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req SignCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.User == "" {
		BadRequest(w, "user is required")
		return
	}

	cp, err := h.store.Sign(r.Context(), r.PathValue("id"), req.User, req.Data)
	if HandleCheckpointError(w, h.logger, err) {
		return
	}

	Success(w, CheckpointFromDomain(*cp))
}

// callerRole извлекает роль вызывающего из заголовка X-Relay-Role.
// При отсутствии или неизвестной роли пишет 400 и возвращает false.
func callerRole(w http.ResponseWriter, r *http.Request) (domain.Role, bool) {
	v := r.Header.Get(HeaderRole)
	if v == "" {
		BadRequest(w, "missing "+HeaderRole+" header")
		return "", false
	}

	role := domain.ParseRole(v)
	if role == "" {
		BadRequest(w, "unknown role: "+v)
		return "", false
	}
	return role, true
}
