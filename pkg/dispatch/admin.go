package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pcarana/rdap-server/pkg/policy"
	"github.com/pcarana/rdap-server/pkg/storage"
)

const readinessTimeout = 2 * time.Second

// PolicyReloader is the part of policy.Store the admin routes use.
type PolicyReloader interface {
	Current() *policy.Tables
	Reload() error
}

// Admin serves operational endpoints on the admin listener.
type Admin struct {
	store    storage.RecordStore
	policies PolicyReloader
	metrics  http.Handler
	logger   zerolog.Logger
}

// NewAdmin builds the admin endpoints. metrics may be nil.
func NewAdmin(store storage.RecordStore, policies PolicyReloader, metrics http.Handler, logger zerolog.Logger) *Admin {
	return &Admin{
		store:    store,
		policies: policies,
		metrics:  metrics,
		logger:   logger.With().Str("component", "admin").Logger(),
	}
}

// Routes returns the admin router.
func (a *Admin) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", a.health)
	r.Get("/ready", a.ready)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics)
	}
	r.Get("/policy", a.policy)
	r.Post("/policy/reload", a.reload)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *Admin) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Admin) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Record store not ready")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type policySummary struct {
	Generation int64          `json:"generation"`
	LoadedAt   time.Time      `json:"loaded_at"`
	Types      map[string]int `json:"types"`
}

func summarize(tables *policy.Tables) policySummary {
	summary := policySummary{
		Generation: tables.Generation(),
		LoadedAt:   tables.LoadedAt(),
		Types:      make(map[string]int),
	}
	for _, objectType := range tables.Types() {
		t, _ := tables.Table(objectType)
		summary.Types[objectType] = t.Len()
	}
	return summary
}

func (a *Admin) policy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, summarize(a.policies.Current()))
}

func (a *Admin) reload(w http.ResponseWriter, _ *http.Request) {
	if err := a.policies.Reload(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      err.Error(),
			"generation": a.policies.Current().Generation(),
		})
		return
	}
	writeJSON(w, http.StatusOK, summarize(a.policies.Current()))
}
