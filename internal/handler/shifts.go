package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/middleware"
	"github.com/brewdesk-pos/api/internal/service"
)

// ShiftServicer defines the service methods needed by shift handlers.
// Satisfied by *service.ShiftService; narrow interface for testability.
type ShiftServicer interface {
	Open(ctx context.Context, input service.OpenShiftInput) (database.Shift, error)
	Close(ctx context.Context, input service.CloseShiftInput) (database.Shift, error)
}

// ShiftStore defines the database methods needed by shift read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ShiftStore interface {
	GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	GetOpenShift(ctx context.Context) (database.Shift, error)
	ListShifts(ctx context.Context, arg database.ListShiftsParams) ([]database.Shift, error)
	ListShiftActivities(ctx context.Context, shiftID uuid.UUID) ([]database.ShiftActivity, error)
}

// ShiftHandler handles shift endpoints.
type ShiftHandler struct {
	svc   ShiftServicer
	store ShiftStore
}

// NewShiftHandler creates a new ShiftHandler.
func NewShiftHandler(svc ShiftServicer, store ShiftStore) *ShiftHandler {
	return &ShiftHandler{svc: svc, store: store}
}

// RegisterRoutes registers shift endpoints on the given Chi router.
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/open", h.Open)
	r.Get("/current", h.Current)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/close", h.Close)
	r.Get("/{id}/activities", h.Activities)
}

// --- Request / Response types ---

type openShiftRequest struct {
	OpeningCash string `json:"opening_cash"`
}

type closeShiftRequest struct {
	ClosingCash string `json:"closing_cash"`
	Notes       string `json:"notes"`
}

type shiftResponse struct {
	ID             uuid.UUID  `json:"id"`
	Status         string     `json:"status"`
	OpenedBy       uuid.UUID  `json:"opened_by"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedBy       *string    `json:"closed_by"`
	ClosedAt       *time.Time `json:"closed_at"`
	OpeningCash    string     `json:"opening_cash"`
	ClosingCash    *string    `json:"closing_cash"`
	Notes          *string    `json:"notes"`
	CashSales      string     `json:"cash_sales"`
	CardSales      string     `json:"card_sales"`
	TotalSales     string     `json:"total_sales"`
	OrdersCount    int32      `json:"orders_count"`
	WriteOffsTotal string     `json:"write_offs_total"`
	SuppliesTotal  string     `json:"supplies_total"`
}

type shiftActivityResponse struct {
	ID           uuid.UUID       `json:"id"`
	ShiftID      uuid.UUID       `json:"shift_id"`
	ActivityType string          `json:"activity_type"`
	Details      json.RawMessage `json:"details"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toShiftResponse(s database.Shift) shiftResponse {
	resp := shiftResponse{
		ID:             s.ID,
		Status:         s.Status,
		OpenedBy:       s.OpenedBy,
		OpenedAt:       s.OpenedAt,
		OpeningCash:    numericToString(s.OpeningCash),
		CashSales:      numericToString(s.CashSales),
		CardSales:      numericToString(s.CardSales),
		TotalSales:     numericToString(s.TotalSales),
		OrdersCount:    s.OrdersCount,
		WriteOffsTotal: numericToString(s.WriteOffsTotal),
		SuppliesTotal:  numericToString(s.SuppliesTotal),
	}
	if s.ClosedBy.Valid {
		v := uuid.UUID(s.ClosedBy.Bytes).String()
		resp.ClosedBy = &v
	}
	if s.ClosedAt.Valid {
		t := s.ClosedAt.Time
		resp.ClosedAt = &t
	}
	if s.ClosingCash.Valid {
		v := numericToString(s.ClosingCash)
		resp.ClosingCash = &v
	}
	if s.Notes.Valid {
		resp.Notes = &s.Notes.String
	}
	return resp
}

func toShiftActivityResponse(a database.ShiftActivity) shiftActivityResponse {
	return shiftActivityResponse{
		ID:           a.ID,
		ShiftID:      a.ShiftID,
		ActivityType: a.ActivityType,
		Details:      json.RawMessage(a.Details),
		CreatedAt:    a.CreatedAt,
	}
}

// --- Handlers ---

// Open handles POST /shifts/open.
func (h *ShiftHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req openShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	openingCash := decimal.Zero
	if req.OpeningCash != "" {
		v, err := decimal.NewFromString(req.OpeningCash)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid opening_cash"})
			return
		}
		openingCash = v
	}

	shift, err := h.svc.Open(r.Context(), service.OpenShiftInput{
		OpenedBy:    claims.UserID,
		OpeningCash: openingCash,
	})
	if err != nil {
		writeServiceError(w, err, "open shift")
		return
	}

	writeData(w, http.StatusCreated, toShiftResponse(shift))
}

// Close handles POST /shifts/{id}/close.
func (h *ShiftHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	var req closeShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	closingCash := decimal.Zero
	if req.ClosingCash != "" {
		v, err := decimal.NewFromString(req.ClosingCash)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid closing_cash"})
			return
		}
		closingCash = v
	}

	shift, err := h.svc.Close(r.Context(), service.CloseShiftInput{
		ShiftID:     id,
		ClosedBy:    claims.UserID,
		ClosingCash: closingCash,
		Notes:       req.Notes,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shift not found"})
			return
		}
		writeServiceError(w, err, "close shift")
		return
	}

	writeData(w, http.StatusOK, toShiftResponse(shift))
}

// List handles GET /shifts.
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	shifts, err := h.store.ListShifts(r.Context(), database.ListShiftsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list shifts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]shiftResponse, len(shifts))
	for i, s := range shifts {
		resp[i] = toShiftResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Current handles GET /shifts/current. Returns 404 when no shift is open.
func (h *ShiftHandler) Current(w http.ResponseWriter, r *http.Request) {
	shift, err := h.store.GetOpenShift(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no open shift"})
			return
		}
		log.Printf("ERROR: get open shift: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

// Get handles GET /shifts/{id}.
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	shift, err := h.store.GetShift(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shift not found"})
			return
		}
		log.Printf("ERROR: get shift: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

// Activities handles GET /shifts/{id}/activities.
func (h *ShiftHandler) Activities(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	if _, err := h.store.GetShift(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shift not found"})
			return
		}
		log.Printf("ERROR: get shift for activities: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	activities, err := h.store.ListShiftActivities(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list shift activities: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]shiftActivityResponse, len(activities))
	for i, a := range activities {
		resp[i] = toShiftActivityResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}
