package forecast

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
)

// Handler exposes the estimator as an HTTP GET endpoint for on-demand
// recomputation outside the nightly schedule.
type Handler struct {
	estimator *Estimator
}

func NewHandler(e *Estimator) *Handler {
	return &Handler{estimator: e}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tracer := otel.Tracer("prepdeck/forecast")
	ctx, span := tracer.Start(r.Context(), "Forecast Compute")
	defer span.End()

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.estimator.RunOnce(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Manual forecast run failed", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Write([]byte("ok"))
}
