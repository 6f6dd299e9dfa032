package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("POST /v1/messages", h.EnqueueMessage)
	mux.HandleFunc("GET /v1/messages", h.ListMessages)
	mux.HandleFunc("POST /v1/messages/{id}/retry", h.ForceRetry)
	mux.HandleFunc("DELETE /v1/messages/failed", h.PurgeFailed)

	mux.HandleFunc("POST /v1/dispatch/run", h.RunDispatchPass)

	mux.HandleFunc("POST /v1/notifications", h.CreateNotification)

	mux.HandleFunc("GET /v1/scheduler/status", h.SchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("POST /v1/scheduler/stop", h.SchedulerStop)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("notification-outbox"))
	})

	return mux
}
