package notifier

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"prepdeck/dbtypes"
)

// ScheduleEvent is the payload the trigger infrastructure posts for
// every write to the schedules collection.  Before is nil on create,
// After is nil on delete.
type ScheduleEvent struct {
	DocumentID string            `json:"documentId"`
	Before     *dbtypes.Schedule `json:"before"`
	After      *dbtypes.Schedule `json:"after"`
}

// Handler adapts write events delivered over HTTP into Process calls.
// It answers 200 for every well-formed event, whatever the notification
// outcome, so the trigger infrastructure never retries on our account.
type Handler struct {
	notifier *Notifier
}

func NewHandler(n *Notifier) *Handler {
	return &Handler{notifier: n}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqBody, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	event := &ScheduleEvent{}
	if err := json.Unmarshal(reqBody, event); err != nil {
		http.Error(w, fmt.Sprintf("bad request: invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if event.DocumentID == "" {
		http.Error(w, "bad request: missing documentId", http.StatusBadRequest)
		return
	}

	result := h.notifier.Process(r.Context(), time.Now(), event.DocumentID, event.Before, event.After)

	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	respBody, err := json.Marshal(struct {
		Outcome Outcome `json:"outcome"`
		Reason  string  `json:"reason,omitempty"`
	}{Outcome: result.Outcome, Reason: result.Reason})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Write(respBody)
}
