package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Checkpoints
	mux.Handle("GET /api/v1/checkpoints", chain(http.HandlerFunc(h.ListCheckpoints)))
	mux.Handle("POST /api/v1/checkpoints", chain(http.HandlerFunc(h.CreateCheckpoint)))
	mux.Handle("GET /api/v1/checkpoints/{id}", chain(http.HandlerFunc(h.GetCheckpoint)))
	mux.Handle("POST /api/v1/checkpoints/{id}/approve", chain(http.HandlerFunc(h.ApproveCheckpoint)))
	mux.Handle("POST /api/v1/checkpoints/{id}/reject", chain(http.HandlerFunc(h.RejectCheckpoint)))
	mux.Handle("POST /api/v1/checkpoints/{id}/sign", chain(http.HandlerFunc(h.SignCheckpoint)))

	// Jobs
	mux.Handle("GET /api/v1/jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /api/v1/jobs/stats", chain(http.HandlerFunc(h.JobStats)))
}
