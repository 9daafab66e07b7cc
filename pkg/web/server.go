package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/encap-analyzer/pkg/analysis"
	"github.com/ritzau/encap-analyzer/pkg/logging"
	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/pubsub"
)

//go:embed static/*
var staticFiles embed.FS

// AnalyzeFunc starts a new analysis run
type AnalyzeFunc func(ctx context.Context, reason string) error

// UnitSummary is one row of /api/units
type UnitSummary struct {
	Unit       model.UnitID `json:"unit"`
	Name       string       `json:"name"`
	Analyzed   int          `json:"analyzed"`
	Candidates int          `json:"candidates"`
	Error      string       `json:"error,omitempty"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher

	mu      sync.RWMutex
	report  *model.Report
	analyze AnalyzeFunc
	life    context.Context // cancelled when the server shuts down
}

// NewServer creates a new web server
func NewServer() *Server {
	s := &Server{
		router:    mux.NewRouter(),
		publisher: pubsub.NewAnalysisPublisher(),
		life:      context.Background(),
	}
	s.setupRoutes()
	return s
}

// SetAnalyzeFunc sets the function triggered by POST /api/analyze
func (s *Server) SetAnalyzeFunc(fn AnalyzeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyze = fn
}

// SetReport stores the latest report and announces it to subscribers
func (s *Server) SetReport(report *model.Report) {
	s.mu.Lock()
	s.report = report
	s.mu.Unlock()

	summary := pubsub.ReportSummary{
		RunID:      report.RunID,
		Units:      len(report.Units),
		Candidates: report.CandidateCount(),
		Fixed:      report.Fixed,
	}
	if err := s.publisher.Publish(pubsub.TopicReport, "complete", summary); err != nil {
		logging.Warn("failed to publish report", "error", err)
	}
}

// Report returns the latest report, nil before the first run completes
func (s *Server) Report() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// PublishStatus publishes an analysis status event
func (s *Server) PublishStatus(state, message string, step, total int) error {
	status := pubsub.AnalysisStatus{
		State:   state,
		Message: message,
		Step:    step,
		Total:   total,
	}
	return s.publisher.Publish(pubsub.TopicAnalysisStatus, state, status)
}

// PublishProgress publishes a per-symbol progress event
func (s *Server) PublishProgress(p analysis.Progress) error {
	return s.publisher.Publish(pubsub.TopicProgress, string(p.Phase), p)
}

// Handler returns the HTTP handler with request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	// API routes - more specific routes must come first
	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/units", s.handleUnits).Methods("GET")
	s.router.HandleFunc("/api/analyze", s.handleAnalyze).Methods("POST")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("failed to load static files", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

var topics = map[string]bool{
	pubsub.TopicAnalysisStatus: true,
	pubsub.TopicProgress:       true,
	pubsub.TopicReport:         true,
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !topics[topic] {
		http.Error(w, fmt.Sprintf("Unknown topic: %s", topic), http.StatusNotFound)
		return
	}

	// Create subscription
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	// Stream events until the client goes away
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "error writing SSE event", "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.Report()
	if report == nil {
		http.Error(w, "Report not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	units := []UnitSummary{}
	if report := s.Report(); report != nil {
		for _, ur := range report.Units {
			units = append(units, UnitSummary{
				Unit:       ur.Unit,
				Name:       ur.Name,
				Analyzed:   ur.Analyzed,
				Candidates: len(ur.Candidates),
				Error:      ur.Error,
			})
		}
	}
	json.NewEncoder(w).Encode(units)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	analyze, life := s.analyze, s.life
	s.mu.RUnlock()

	if analyze == nil {
		http.Error(w, "Analysis not available", http.StatusServiceUnavailable)
		return
	}

	// The run outlives the request but not the server
	requestID := logging.GetRequestID(r.Context())
	go func() {
		ctx := logging.WithRequestID(life, requestID)
		if err := analyze(ctx, "requested via API"); err != nil {
			logging.ErrorContext(ctx, "requested analysis failed", "error", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// Start serves HTTP on port until ctx is done
func (s *Server) Start(ctx context.Context, port int) error {
	s.mu.Lock()
	s.life = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.publisher.Close()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
