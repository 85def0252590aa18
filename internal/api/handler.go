package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// Server provides the HTTP API used by the MCP server and operators
type Server struct {
	keywords *usecase.KeywordUsecase
	reports  *usecase.ReportUsecase
	addr     string
	validate *validator.Validate
	log      zerolog.Logger

	// requests per minute per client IP on /api
	rateLimit int
}

// NewServer creates a new API server
func NewServer(keywords *usecase.KeywordUsecase, reports *usecase.ReportUsecase, addr string) *Server {
	return &Server{
		keywords:  keywords,
		reports:   reports,
		addr:      addr,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       logging.Component("API"),
		rateLimit: 60,
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.Limit(s.rateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

		r.Get("/keywords", s.handleListKeywords)
		r.Post("/keywords", s.handleAddKeyword)
		r.Delete("/keywords/{keyword}", s.handleRemoveKeyword)

		r.Get("/reports/keyword/{keyword}", s.handleReportByKeyword)
		r.Get("/reports/date/{date}", s.handleReportByDate)
		r.Get("/reports/chat/{chat}", s.handleReportByChat)
		r.Post("/reports/daily", s.handleDailySummary)
		r.Post("/reports/trend", s.handleTrendReport)

		r.Get("/stats", s.handleStats)
	})
	return r
}

// Serve implements suture.Service
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn().Err(err).Msg("HTTP server shutdown")
		}
		return ctx.Err()
	}
}

func (s *Server) String() string {
	return "api-server"
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// ============ Keyword Handlers ============

// AddKeywordRequest is the body of POST /api/keywords
type AddKeywordRequest struct {
	Keyword string `json:"keyword" validate:"required,max=200"`
}

func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"keywords": s.keywords.List()})
}

func (s *Server) handleAddKeyword(w http.ResponseWriter, r *http.Request) {
	var req AddKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	kw, ok := s.keywords.Add(req.Keyword)
	if !ok {
		s.writeError(w, http.StatusConflict, domain.ErrInvalidKeyword)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "keyword": kw})
}

func (s *Server) handleRemoveKeyword(w http.ResponseWriter, r *http.Request) {
	kw, ok := s.keywords.Remove(chi.URLParam(r, "keyword"))
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("keyword not found: "+kw))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "keyword": kw})
}

// ============ Report Handlers ============

// DetailResponse is the result of a keyword, date or chat report
type DetailResponse struct {
	Kind    string            `json:"kind"`
	Value   string            `json:"value"`
	Entries []domain.LogEntry `json:"entries"`
	Sent    bool              `json:"sent"`
	Message string            `json:"message,omitempty"`
}

func (s *Server) handleReportByKeyword(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.ByKeyword(r.Context(), chi.URLParam(r, "keyword"))
	s.writeDetail(w, report, err)
}

func (s *Server) handleReportByDate(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.ByDate(r.Context(), chi.URLParam(r, "date"))
	s.writeDetail(w, report, err)
}

func (s *Server) handleReportByChat(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.ByChat(r.Context(), chi.URLParam(r, "chat"))
	s.writeDetail(w, report, err)
}

func (s *Server) writeDetail(w http.ResponseWriter, report *usecase.DetailReport, err error) {
	status := http.StatusOK
	switch {
	case errors.Is(err, usecase.ErrInvalidDate):
		status = http.StatusBadRequest
	case err != nil && report == nil:
		s.writeError(w, http.StatusInternalServerError, err)
		return
	case err != nil:
		// entries were found but delivery failed
		status = http.StatusBadGateway
	}

	resp := DetailResponse{
		Kind:    report.Kind,
		Value:   report.Value,
		Entries: report.Entries,
		Sent:    report.Sent,
		Message: report.Reply,
	}
	if resp.Entries == nil {
		resp.Entries = []domain.LogEntry{}
	}
	s.writeJSON(w, status, resp)
}

// SummaryResponse is the result of POST /api/reports/daily
type SummaryResponse struct {
	Sent          bool   `json:"sent"`
	Count         int    `json:"count"`
	NextSummaryIn string `json:"next_summary_in"`
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	result, err := s.reports.SendDailySummary(r.Context(), true)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SummaryResponse{
		Sent:          result.Sent,
		Count:         result.Count,
		NextSummaryIn: result.Wait.Round(time.Second).String(),
	})
}

// TrendResponse is the result of POST /api/reports/trend
type TrendResponse struct {
	Empty    bool     `json:"empty"`
	Keywords []string `json:"keywords"`
	Days     []string `json:"days"`
	Total    int      `json:"total"`
}

func (s *Server) handleTrendReport(w http.ResponseWriter, r *http.Request) {
	result, err := s.reports.SendTrendReport(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	resp := TrendResponse{Empty: result.Empty, Keywords: result.Matrix.Keywords, Days: []string{}}
	for _, d := range result.Matrix.Days {
		resp.Days = append(resp.Days, d.Format("2006-01-02"))
	}
	if resp.Keywords == nil {
		resp.Keywords = []string{}
	}
	resp.Total = result.Matrix.Total()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
