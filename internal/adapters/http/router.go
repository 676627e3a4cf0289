package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/herohuhu666/wanwu/internal/application"
	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/herohuhu666/wanwu/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 12 << 20

type Handler struct {
	services application.Services
	log      zerolog.Logger
}

// NewRouter serves the JSON API. uploadsDir, when set, is exposed under /uploads/.
func NewRouter(services application.Services, log zerolog.Logger, uploadsDir string) http.Handler {
	h := &Handler{services: services, log: log.With().Str("component", "http").Logger()}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.recoverer)
	r.Use(h.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", promhttp.Handler())
	if uploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/profile/login", h.handleLogin)
		api.Post("/profile/logout", h.handleLogout)
		api.Get("/profile", h.handleProfile)
		api.Put("/profile/membership", h.handleMembership)

		api.Get("/merit", h.handleMerit)
		api.Post("/merit/add", h.handleAddMerit)
		api.Post("/merit/consume", h.handleConsumeMerit)

		api.Get("/daily", h.handleDaily)
		api.Post("/daily", h.handleSubmitDaily)

		api.Get("/insights", h.handleInsightHistory)
		api.Post("/insights", h.handleAddInsight)
		api.Get("/insights/availability", h.handleInsightAvailability)

		api.Get("/rituals", h.handleRitualHistory)
		api.Get("/rituals/open", h.handleOpenRituals)
		api.Post("/rituals", h.handleBeginRitual)
		api.Post("/rituals/cast", h.handleCastRitual)
		api.Post("/rituals/decide", h.handleDecide)
		api.Post("/rituals/{id}/shake", h.handleShakeRitual)
		api.Get("/archives", h.handleArchives)
		api.Get("/hexagrams", h.handleHexagrams)
		api.Get("/hexagrams/{id}", h.handleHexagram)
		api.Get("/state/export", h.handleExport)

		api.Get("/guardian", h.handleGuardianStatus)
		api.Post("/guardian/checkin", h.handleGuardianCheckIn)
		api.Post("/energy", h.handleUpdateEnergy)

		api.Get("/destiny/today", h.handleToday)
		api.Get("/destiny/forecast", h.handleForecast)

		api.Post("/qwen/chat", h.handleChat)
		api.Post("/qwen/vision", h.handleVision)
		api.Post("/qwen/divination", h.handleDivination)
	})

	return r
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.log.Error().
					Interface("panic", rec).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("path", r.URL.Path).
					Msg("handler panicked")
				writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		metrics.ObserveRequest("http", routeLabel(r.Method, route), started)
		h.log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("took", time.Since(started)).
			Msg("request")
	})
}

var knownMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodDelete: true, http.MethodHead: true,
}

// routeLabel keeps the metric label set bounded: unmatched paths and
// unusual methods collapse to "unknown".
func routeLabel(method, pattern string) string {
	if pattern == "" || !knownMethods[method] {
		return "unknown"
	}
	return method + " " + pattern
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrAlreadyCheckedIn), errors.Is(err, domain.ErrInsufficientMerit):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrHexagramGeneration):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotReady):
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError || status == http.StatusUnprocessableEntity {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// decode reads a JSON body; an empty body leaves v untouched when optional is set.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
