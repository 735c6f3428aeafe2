// internal/api/handler.go
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"starred-digest/internal/model"
	"starred-digest/internal/render"
	"starred-digest/internal/report"
)

// ReportStore is the read side of the report archive.
type ReportStore interface {
	Dates() ([]string, error)
	Load(day string) (model.Report, error)
	Latest() (string, model.Report, error)
	Markdown(day string) ([]byte, error)
	Recent(n int) ([]model.Report, error)
}

// FeedConfig describes the feeds served by the API.
type FeedConfig struct {
	Days int
	render.FeedOptions
}

// Handler is the container for API dependencies.
type Handler struct {
	reports ReportStore
	feed    FeedConfig
	logger  *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(reports ReportStore, feed FeedConfig, logger *slog.Logger) http.Handler {
	h := &Handler{
		reports: reports,
		feed:    feed,
		logger:  logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/reports", h.listReports)
		r.Get("/reports/latest", h.getLatestReport)
		r.Get("/reports/{date}", h.getReport)
		r.Get("/reports/{date}/digest.md", h.getDigest)
		r.Get("/feed.rss", h.getRSS)
		r.Get("/feed.json", h.getJSONFeed)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listReports lists the days with a stored report, newest first.
// GET /v1/reports
func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	days, err := h.reports.Dates()
	if err != nil {
		h.logger.Error("Failed to list reports", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if days == nil {
		days = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"dates": days})
}

// getLatestReport returns the newest report.
// GET /v1/reports/latest
func (h *Handler) getLatestReport(w http.ResponseWriter, r *http.Request) {
	_, rep, err := h.reports.Latest()
	if err != nil {
		h.reportError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rep)
}

// getReport returns the report of one day.
// GET /v1/reports/{date}
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	day, ok := dateParam(w, r)
	if !ok {
		return
	}
	rep, err := h.reports.Load(day)
	if err != nil {
		h.reportError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rep)
}

// getDigest returns the Markdown digest of one day.
// GET /v1/reports/{date}/digest.md
func (h *Handler) getDigest(w http.ResponseWriter, r *http.Request) {
	day, ok := dateParam(w, r)
	if !ok {
		return
	}
	md, err := h.reports.Markdown(day)
	if err != nil {
		h.reportError(w, err)
		return
	}
	respondWithBody(w, http.StatusOK, "text/markdown; charset=utf-8", md)
}

// getRSS renders the recent reports as RSS 2.0.
// GET /v1/feed.rss
func (h *Handler) getRSS(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, "application/rss+xml; charset=utf-8", render.RSS)
}

// getJSONFeed renders the recent reports as a JSON Feed.
// GET /v1/feed.json
func (h *Handler) getJSONFeed(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, "application/feed+json; charset=utf-8", render.JSONFeed)
}

func (h *Handler) serveFeed(w http.ResponseWriter, contentType string, build func([]model.Report, render.FeedOptions) (string, error)) {
	reports, err := h.reports.Recent(h.feed.Days)
	if err != nil {
		h.logger.Error("Failed to load recent reports", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	doc, err := build(reports, h.feed.FeedOptions)
	if err != nil {
		h.logger.Error("Failed to render feed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithBody(w, http.StatusOK, contentType, []byte(doc))
}

func (h *Handler) reportError(w http.ResponseWriter, err error) {
	if errors.Is(err, report.ErrReportNotFound) {
		respondWithError(w, http.StatusNotFound, "Report not found")
		return
	}
	h.logger.Error("Failed to read report", "error", err)
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}

func dateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	day := chi.URLParam(r, "date")
	if _, err := time.Parse(report.DateLayout, day); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid 'date' parameter. Must be YYYY-MM-DD.")
		return "", false
	}
	return day, true
}
