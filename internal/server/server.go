// Package server exposes the extraction pipeline and record store
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/progscout/progscout/internal/config"
	"github.com/progscout/progscout/internal/export"
	"github.com/progscout/progscout/internal/extractor"
	"github.com/progscout/progscout/internal/monitoring"
	"github.com/progscout/progscout/internal/store"
	"github.com/progscout/progscout/internal/utils"
	"github.com/progscout/progscout/pkg/api"
)

// Server hosts the HTTP API.
type Server struct {
	client  *api.Client
	metrics *monitoring.Metrics
	logger  utils.Logger
	cfg     config.ServerConfig

	httpServer *http.Server
}

// New creates a server around an initialized client.
func New(client *api.Client, metrics *monitoring.Metrics, logger utils.Logger, cfg config.ServerConfig) *Server {
	if logger == nil {
		logger = utils.NewLogger()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	s := &Server{
		client:  client,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Routes builds the request router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/extract", s.handleExtract).Methods("POST")
	v1.HandleFunc("/programs", s.handleList).Methods("GET")
	v1.HandleFunc("/programs", s.handleSave).Methods("POST")
	v1.HandleFunc("/programs/{id}", s.handleRemove).Methods("DELETE")
	v1.HandleFunc("/tier", s.handleGetTier).Methods("GET")
	v1.HandleFunc("/tier", s.handleSetTier).Methods("PUT")
	v1.HandleFunc("/export", s.handleExport).Methods("GET")

	return rateLimitMiddleware(r)
}

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("http server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func rateLimitMiddleware(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(50), 100)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if _, err := s.client.List(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req api.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "url is required")
		return
	}

	start := time.Now()
	var record *api.ProgramRecord
	var err error
	if req.HTML != "" {
		record, err = s.client.ExtractHTML(req.URL, req.HTML)
	} else {
		record, err = s.client.Capture(r.Context(), req.URL)
	}
	s.metrics.ObserveExtraction(start, err)
	if err != nil {
		s.writeExtractionError(w, err)
		return
	}

	saved := false
	if req.Save {
		stored, err := s.client.Save(r.Context(), *record)
		s.metrics.ObserveStoreOp("add", start, err)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		record = &stored
		saved = true
		s.updateSavedGauge(r.Context())
	}

	writeJSON(w, http.StatusOK, api.ExtractResponse{Record: record, Saved: saved})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	records, err := s.client.List(r.Context())
	s.metrics.ObserveStoreOp("list", start, err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if records == nil {
		records = []api.ProgramRecord{}
	}
	writeJSON(w, http.StatusOK, api.ListResponse{Programs: records, Total: len(records)})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req api.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}
	if req.Record.Title == "" || req.Record.Institution == "" {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "title and institution are required")
		return
	}

	start := time.Now()
	stored, err := s.client.Save(r.Context(), req.Record)
	s.metrics.ObserveStoreOp("add", start, err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.updateSavedGauge(r.Context())
	writeJSON(w, http.StatusCreated, api.SaveResponse{Record: stored})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	start := time.Now()
	err := s.client.Remove(r.Context(), id)
	s.metrics.ObserveStoreOp("remove", start, err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.updateSavedGauge(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTier(w http.ResponseWriter, r *http.Request) {
	tier, err := s.client.Tier(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	records, err := s.client.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TierResponse{Tier: tier, SavedCount: len(records)})
}

func (s *Server) handleSetTier(w http.ResponseWriter, r *http.Request) {
	var req api.TierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	tier := store.TierState{IsPremium: req.Premium, MaxFreeRecords: req.MaxFreeRecords}
	start := time.Now()
	err := s.client.SetTier(r.Context(), tier)
	s.metrics.ObserveStoreOp("set_tier", start, err)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	updated, err := s.client.Tier(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TierResponse{Tier: updated})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.FormatCSV
	if name := r.URL.Query().Get("format"); name != "" {
		parsed, err := export.ParseFormat(name)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		format = parsed
	}
	if format == export.FormatXLSX {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "xlsx export is file-based; use the CLI")
		return
	}

	records, err := s.client.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	switch format {
	case export.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="programs.json"`)
		export.WriteJSON(w, records)
	default:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="programs.csv"`)
		export.WriteCSV(w, records)
	}
}

func (s *Server) updateSavedGauge(ctx context.Context) {
	if records, err := s.client.List(ctx); err == nil {
		s.metrics.RecordsSaved.Set(float64(len(records)))
	}
}

func (s *Server) writeExtractionError(w http.ResponseWriter, err error) {
	if errors.Is(err, extractor.ErrMissingRequiredField) {
		s.writeError(w, http.StatusUnprocessableEntity, "EXTRACTION_FAILED", err.Error())
		return
	}
	s.writeError(w, http.StatusBadGateway, "FETCH_FAILED", err.Error())
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		status := http.StatusInternalServerError
		switch storeErr.Code {
		case store.CodeDuplicateRecord:
			status = http.StatusConflict
		case store.CodeQuotaExceeded:
			status = http.StatusForbidden
		case store.CodeStoreUnavailable:
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, string(storeErr.Code), storeErr.Message)
		return
	}
	s.writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.logger.WithFields(map[string]interface{}{
		"status": status,
		"code":   code,
	}).Warnf("request failed: %s", message)
	writeJSON(w, status, api.ErrorResponse{Error: api.ErrorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Fprintf(w, `{"error":{"code":"ENCODING","message":"failed to encode response"}}`)
	}
}
