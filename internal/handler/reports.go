package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/brewdesk-pos/api/internal/service"
)

// ReportsServicer defines the service methods needed by report handlers.
// Satisfied by *service.ReportsService; narrow interface for testability.
type ReportsServicer interface {
	XReport(ctx context.Context, shiftID uuid.UUID) (*service.ShiftReport, error)
	ZReport(ctx context.Context, shiftID uuid.UUID) (*service.ShiftReport, error)
	Daily(ctx context.Context, date time.Time) (*service.DailyReport, error)
	Monthly(ctx context.Context, year int, month time.Month) (*service.MonthlyReport, error)
}

// ReportsHandler handles reconciliation report endpoints.
type ReportsHandler struct {
	svc ReportsServicer
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(svc ReportsServicer) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/shifts/{id}/x", h.XReport)
	r.Get("/shifts/{id}/z", h.ZReport)
	r.Get("/daily", h.Daily)
	r.Get("/monthly", h.Monthly)
}

// --- Handlers ---

// XReport handles GET /reports/shifts/{id}/x: a mid-shift snapshot.
func (h *ReportsHandler) XReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	report, err := h.svc.XReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shift not found"})
			return
		}
		writeServiceError(w, err, "x report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ZReport handles GET /reports/shifts/{id}/z: the end-of-shift report with
// the cash reconciliation. The shift must already be closed.
func (h *ReportsHandler) ZReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	report, err := h.svc.ZReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shift not found"})
			return
		}
		writeServiceError(w, err, "z report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Daily handles GET /reports/daily?date=YYYY-MM-DD. Defaults to today.
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if s := r.URL.Query().Get("date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
		date = t
	}

	report, err := h.svc.Daily(r.Context(), date)
	if err != nil {
		writeServiceError(w, err, "daily report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Monthly handles GET /reports/monthly?year=YYYY&month=M. Defaults to the
// current month.
func (h *ReportsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year := now.Year()
	month := now.Month()

	if s := r.URL.Query().Get("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 2000 || v > 2200 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year"})
			return
		}
		year = v
	}
	if s := r.URL.Query().Get("month"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 12 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid month"})
			return
		}
		month = time.Month(v)
	}

	report, err := h.svc.Monthly(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, err, "monthly report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
