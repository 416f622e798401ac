// Package server exposes the DBML translator and its collaborators over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tordrt/schemaforge/internal/export"
	"github.com/tordrt/schemaforge/internal/formatter"
	"github.com/tordrt/schemaforge/internal/render"
	"github.com/tordrt/schemaforge/internal/schema"
)

const (
	APIPrefix = "/api"

	// maxBodyBytes bounds request bodies; schemas are small text documents
	maxBodyBytes = 4 << 20
)

// API serves diagram rendering, DBML translation and SQL export
type API struct {
	Renderer render.Renderer
	Exporter export.Exporter
	Logger   *log.Logger
}

// New creates a new API instance
func New(renderer render.Renderer, exporter export.Exporter, logger *log.Logger) *API {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &API{Renderer: renderer, Exporter: exporter, Logger: logger}
}

// Register attaches handlers to the given mux
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+APIPrefix+"/svg", a.handleSVG)
	mux.HandleFunc("POST "+APIPrefix+"/dbml", a.handleDBML)
	mux.HandleFunc("POST "+APIPrefix+"/sql/{engine}", a.handleSQL)
}

// Handler returns the API wrapped with request ID and logging middleware
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.Register(mux)
	return a.withRequestLog(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *API) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		a.Logger.Printf("%s %s %s %d %s", requestID, r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}

func (a *API) handleSVG(w http.ResponseWriter, r *http.Request) {
	var req render.SVGRequest
	if err := decodeJSON(r, &req); err != nil || req.DBML == "" {
		writeError(w, http.StatusBadRequest, "dbml is required")
		return
	}

	svg, err := a.Renderer.Render(r.Context(), req.DBML)
	if err != nil {
		a.Logger.Printf("render failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to render diagram")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

func (a *API) handleDBML(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read schema")
		return
	}

	s, err := schema.Parse(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schema document")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, formatter.ToDBML(s))
}

func (a *API) handleSQL(w http.ResponseWriter, r *http.Request) {
	engine, err := export.ParseEngine(r.PathValue("engine"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req render.SVGRequest
	if err := decodeJSON(r, &req); err != nil || req.DBML == "" {
		writeError(w, http.StatusBadRequest, "dbml is required")
		return
	}

	sql, ok := export.ToSQL(r.Context(), a.Exporter, a.Logger, req.DBML, engine)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "could not export")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sql)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(render.ErrorResponse{Error: msg})
}
