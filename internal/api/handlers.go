package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LeventeLantos/notification-outbox/internal/engine"
	"github.com/LeventeLantos/notification-outbox/internal/model"
	"github.com/LeventeLantos/notification-outbox/internal/notification"
	"github.com/LeventeLantos/notification-outbox/internal/scheduler"
	"github.com/LeventeLantos/notification-outbox/internal/store"
)

type Handler struct {
	engine *engine.Engine
	store  store.OutboxStore
	sched  *scheduler.Scheduler
	sink   notification.Sink
}

func NewHandler(e *engine.Engine, st store.OutboxStore, s *scheduler.Scheduler, sink notification.Sink) *Handler {
	return &Handler{engine: e, store: st, sched: s, sink: sink}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type enqueueRequest struct {
	Destination string     `json:"destination"`
	Payload     string     `json:"payload"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

func (h *Handler) EnqueueMessage(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Destination == "" || req.Payload == "" {
		http.Error(w, "destination and payload are required", http.StatusBadRequest)
		return
	}

	msg, err := h.store.Enqueue(r.Context(), req.Destination, req.Payload, req.ScheduledAt)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": msg.ID})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	var status *model.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		status = &st
	}

	items, err := h.store.List(r.Context(), status, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) RunDispatchPass(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RunDispatchPass(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) ForceRetry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}

	if err := h.engine.ForceRetry(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "message not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) PurgeFailed(w http.ResponseWriter, r *http.Request) {
	purged, err := h.engine.PurgeFailed(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purged": purged})
}

type createNotificationRequest struct {
	UserID int64  `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.UserID == 0 || req.Title == "" {
		http.Error(w, "userId and title are required", http.StatusBadRequest)
		return
	}

	n, err := h.sink.Create(r.Context(), req.UserID, req.Title, req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, n)
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
