package httpapi

import (
	"encoding/json"
	"net/http"

	"booksync/internal/queue"
	"booksync/internal/syncer"
)

// SyncHandler accepts synchronization requests and puts them on the queue.
// Validation of the ISBN itself happens in the consumer; the handler only
// rejects bodies it cannot enqueue at all.
type SyncHandler struct {
	q *queue.Queue
}

func NewSyncHandler(q *queue.Queue) *SyncHandler {
	return &SyncHandler{q: q}
}

func (h *SyncHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req syncer.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.ISBN == "" {
		JSONError(w, http.StatusBadRequest, "bad_request", "isbn is required")
		return
	}

	body, err := json.Marshal(req)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "server_error", "could not encode request")
		return
	}

	id, ok := h.q.Enqueue(body)
	if !ok {
		JSONError(w, http.StatusServiceUnavailable, "shutting_down", "service is shutting down")
		return
	}

	JSONSuccess(w, http.StatusAccepted, map[string]string{
		"message_id": id,
		"isbn":       req.ISBN,
	}, nil)
}
