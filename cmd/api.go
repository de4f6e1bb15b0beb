package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/openfinreg/corep-assistant/internal/corpus"
	"github.com/openfinreg/corep-assistant/internal/model"
	"github.com/openfinreg/corep-assistant/internal/pipeline"
)

// queryRequest is the POST /api/query payload. Context is an optional opaque
// mapping echoed back in the result metadata.
type queryRequest struct {
	Question   string         `json:"question"`
	TemplateID string         `json:"template_id"`
	Context    map[string]any `json:"context,omitempty"`
}

// newAPIHandler builds the HTTP API over an initialized pipeline. store may
// be nil; health then reports service status without corpus stats.
func newAPIHandler(p *pipeline.Pipeline, registry *model.Registry, store *corpus.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "ok", "templates": registry.IDs()}
		if store != nil {
			if stats, err := store.Stats(r.Context()); err == nil {
				resp["corpus"] = stats
			} else {
				zap.L().Warn("health: corpus stats unavailable", zap.Error(err))
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/api/templates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"templates": registry.IDs()})
	})

	r.Get("/api/templates/{id}", func(w http.ResponseWriter, r *http.Request) {
		schema := registry.Get(chi.URLParam(r, "id"))
		if schema == nil {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"template_id": schema.ID,
			"name":        schema.Name,
			"description": schema.Description,
			"fields":      schema.Fields,
		})
	})

	r.Post("/api/query", func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := p.ProcessQuery(r.Context(), req.Question, req.TemplateID, req.Context)
		if err != nil {
			switch {
			case pipeline.IsCallerInput(err):
				writeError(w, http.StatusBadRequest, err.Error())
			case pipeline.IsExtraction(err):
				zap.L().Error("query extraction failed", zap.Error(err))
				writeError(w, http.StatusBadGateway, "field extraction failed")
			default:
				zap.L().Error("query failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, result)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
