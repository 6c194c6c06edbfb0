package notifier

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerRejectsNonPost(t *testing.T) {
	h := NewHandler(New(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/events/schedules", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Got status %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandlerRejectsBadJSON(t *testing.T) {
	h := NewHandler(New(nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/events/schedules", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlerAnswersOKForDeleteEvent(t *testing.T) {
	h := NewHandler(New(nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/events/schedules", strings.NewReader(`{"documentId": "20240115", "before": {"id": 20240115}, "after": null}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Got status %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), string(Skipped)) {
		t.Fatalf("Got body %q, want a skipped outcome", rec.Body.String())
	}
}

func TestHandlerRejectsMissingDocumentID(t *testing.T) {
	h := NewHandler(New(nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/events/schedules", strings.NewReader(`{"before": null, "after": null}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
