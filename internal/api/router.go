// Package api exposes extraction, transactions, advice, profiles and batch jobs
// over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/finsense/internal/api/handlers"
	"github.com/dvloznov/finsense/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers the router mounts.
type Handlers struct {
	Transactions *handlers.TransactionsHandler
	Advice       *handlers.AdviceHandler
	Profile      *handlers.ProfileHandler
	Jobs         *handlers.JobsHandler

	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

// NewRouter registers every endpoint and wraps the mux in the middleware chain.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/extract", h.Transactions.Extract)
	mux.HandleFunc("GET /api/transactions", h.Transactions.ListTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", h.Transactions.DeleteTransaction)

	mux.HandleFunc("POST /api/insights", h.Advice.Insights)
	mux.HandleFunc("POST /api/recommendations", h.Advice.Recommendations)

	mux.HandleFunc("GET /api/profile", h.Profile.GetProfile)
	mux.HandleFunc("PUT /api/profile", h.Profile.PutProfile)

	mux.HandleFunc("POST /api/jobs", h.Jobs.CreateJob)
	mux.HandleFunc("GET /api/jobs", h.Jobs.ListJobs)
	mux.HandleFunc("GET /api/jobs/summary", h.Jobs.Summary)
	mux.HandleFunc("GET /api/jobs/{id}", h.Jobs.GetJob)

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	// Apply middleware
	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.User(
				middleware.Logger(log)(
					middleware.CORS(mux),
				),
			),
		),
	)
}
