// Package api is the HTTP boundary of the recommendation service. It
// decodes inbound wire payloads into the untyped rows the store expects,
// clamps query parameters before they reach the core, and encodes results
// back out. The core has no failure modes of its own, so handlers only
// ever report boundary-level errors.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/recsd/internal/engine"
	"github.com/kalambet/recsd/internal/metrics"
	"github.com/kalambet/recsd/internal/store"
)

const maxIngestBodySize = 10 << 20 // 10MB

// Deps holds everything the handlers need. Token is optional: when empty,
// the admin routes are left open (local development default).
type Deps struct {
	Store    *store.EventStore
	Engine   *engine.Engine
	Token    string
	DefaultK int
	MaxK     int
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/ingest/events", handleIngest(deps))
	r.Get("/recommendations", handleRecommendations(deps))
	r.Get("/stats", handleStats(deps))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/admin/reset", handleReset(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"ok": true})
}

// handleIngest accepts a JSON array of loosely-typed event rows. A body
// that is not a JSON array counts as zero events, not as an error: the
// ingest contract never fails on malformed input.
func handleIngest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxIngestBodySize)
		defer r.Body.Close()

		metrics.IngestBatchesTotal.Inc()

		var batch []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			writeJSON(w, map[string]any{"received": 0})
			return
		}

		accepted := deps.Store.Ingest(batch)
		metrics.EventsAcceptedTotal.Add(float64(accepted))
		metrics.EventsRejectedTotal.Add(float64(len(batch) - accepted))

		slog.Debug("ingested events", "received", len(batch), "accepted", accepted)
		writeJSON(w, map[string]any{"received": accepted})
	}
}

func handleRecommendations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := engine.Query{
			UserID:    r.URL.Query().Get("userId"),
			ProductID: r.URL.Query().Get("productId"),
			K:         clampK(r.URL.Query().Get("k"), deps.DefaultK, deps.MaxK),
		}

		start := time.Now()
		items := deps.Engine.Recommend(q)
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())

		result := "ok"
		if len(items) == 0 {
			result = "empty"
			items = []engine.Recommendation{}
		}
		metrics.RecommendRequestsTotal.WithLabelValues(result).Inc()

		slog.Debug("served recommendations",
			"userId", q.UserID, "productId", q.ProductID, "k", q.K, "items", len(items))
		writeJSON(w, map[string]any{"items": items})
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, deps.Store.Stats())
	}
}

func handleReset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		deps.Store.Reset()
		slog.Info("event store reset")
		writeJSON(w, map[string]any{"ok": true})
	}
}

// clampK parses the k query parameter leniently: absent or unparsable
// values fall back to the default, out-of-range values are clamped to
// [1, maxK]. The core assumes k is already valid.
func clampK(raw string, defaultK, maxK int) int {
	k := defaultK
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			k = parsed
		}
	}
	if k < 1 {
		k = 1
	}
	if k > maxK {
		k = maxK
	}
	return k
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
