package api

import (
	"net/http"
	"strconv"

	"github.com/kmabbott81/relay-sub001/internal/domain"
)

// ListJobs возвращает jobs в заданном статусе.
// GET /api/v1/jobs?status=...&limit=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	statusStr := r.URL.Query().Get("status")
	if statusStr == "" {
		BadRequest(w, "status is required")
		return
	}

	status := domain.ParseJobStatus(statusStr)
	if status == "" {
		BadRequest(w, "invalid status")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	jobs, err := h.queue.List(r.Context(), status, limit)
	if HandleQueueError(w, h.logger, err) {
		return
	}

	result := make([]JobResponse, len(jobs))
	for i, job := range jobs {
		result[i] = JobFromDomain(job)
	}

	List(w, result, len(result))
}

// JobStats возвращает количество jobs по статусам.
// GET /api/v1/jobs/stats
func (h *Handler) JobStats(w http.ResponseWriter, r *http.Request) {
	var stats JobStatsResponse

	counts := []struct {
		status domain.JobStatus
		dst    *int
	}{
		{domain.JobStatusPending, &stats.Pending},
		{domain.JobStatusRunning, &stats.Running},
		{domain.JobStatusSuccess, &stats.Success},
		{domain.JobStatusFailed, &stats.Failed},
		{domain.JobStatusRetry, &stats.Retry},
	}

	for _, c := range counts {
		n, err := h.queue.Count(r.Context(), c.status)
		if HandleQueueError(w, h.logger, err) {
			return
		}
		*c.dst = n
	}

	Success(w, stats)
}
