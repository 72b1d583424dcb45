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

// WriteOffServicer defines the service methods needed by write-off handlers.
// Satisfied by *service.InventoryService; narrow interface for testability.
type WriteOffServicer interface {
	CreateWriteOff(ctx context.Context, input service.CreateWriteOffInput) (*service.WriteOffResult, error)
}

// WriteOffStore defines the database methods needed by write-off read
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type WriteOffStore interface {
	GetWriteOff(ctx context.Context, id uuid.UUID) (database.WriteOff, error)
	ListWriteOffs(ctx context.Context, arg database.ListWriteOffsParams) ([]database.WriteOff, error)
	ListWriteOffItems(ctx context.Context, writeOffID uuid.UUID) ([]database.WriteOffItem, error)
}

// WriteOffHandler handles stock write-off endpoints.
type WriteOffHandler struct {
	svc   WriteOffServicer
	store WriteOffStore
}

// NewWriteOffHandler creates a new WriteOffHandler.
func NewWriteOffHandler(svc WriteOffServicer, store WriteOffStore) *WriteOffHandler {
	return &WriteOffHandler{svc: svc, store: store}
}

// RegisterRoutes registers write-off endpoints on the given Chi router.
func (h *WriteOffHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type writeOffItemRequest struct {
	IngredientSlug string `json:"ingredient_slug"`
	Quantity       string `json:"quantity"`
}

type createWriteOffRequest struct {
	WriteOffType string                `json:"write_off_type"`
	Reason       string                `json:"reason"`
	Items        []writeOffItemRequest `json:"items"`
}

type writeOffItemResponse struct {
	ID             uuid.UUID `json:"id"`
	IngredientSlug string    `json:"ingredient_slug"`
	Quantity       string    `json:"quantity"`
	ItemCost       string    `json:"item_cost"`
}

type writeOffResponse struct {
	ID           uuid.UUID              `json:"id"`
	WriteOffType string                 `json:"write_off_type"`
	Reason       string                 `json:"reason"`
	TotalCost    string                 `json:"total_cost"`
	ShiftID      *string                `json:"shift_id"`
	PerformedBy  uuid.UUID              `json:"performed_by"`
	CreatedAt    time.Time              `json:"created_at"`
	Items        []writeOffItemResponse `json:"items,omitempty"`
	Warnings     []service.StockWarning `json:"warnings,omitempty"`
}

func toWriteOffResponse(wo database.WriteOff) writeOffResponse {
	resp := writeOffResponse{
		ID:           wo.ID,
		WriteOffType: wo.WriteOffType,
		Reason:       wo.Reason,
		TotalCost:    numericToString(wo.TotalCost),
		PerformedBy:  wo.PerformedBy,
		CreatedAt:    wo.CreatedAt,
	}
	if wo.ShiftID.Valid {
		s := uuid.UUID(wo.ShiftID.Bytes).String()
		resp.ShiftID = &s
	}
	return resp
}

func toWriteOffItemResponse(i database.WriteOffItem) writeOffItemResponse {
	return writeOffItemResponse{
		ID:             i.ID,
		IngredientSlug: i.IngredientSlug,
		Quantity:       numericToString(i.Quantity),
		ItemCost:       numericToString(i.ItemCost),
	}
}

// --- Handlers ---

// Create handles POST /write-offs.
func (h *WriteOffHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createWriteOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.WriteOffItemInput, len(req.Items))
	for i, item := range req.Items {
		quantity, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
			return
		}
		items[i] = service.WriteOffItemInput{
			IngredientSlug: item.IngredientSlug,
			Quantity:       quantity,
		}
	}

	result, err := h.svc.CreateWriteOff(r.Context(), service.CreateWriteOffInput{
		WriteOffType: req.WriteOffType,
		Reason:       req.Reason,
		Items:        items,
		PerformedBy:  claims.UserID,
	})
	if err != nil {
		writeServiceError(w, err, "create write-off")
		return
	}

	resp := toWriteOffResponse(result.WriteOff)
	resp.Items = make([]writeOffItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = toWriteOffItemResponse(item)
	}
	resp.Warnings = result.Warnings

	writeData(w, http.StatusCreated, resp)
}

// List handles GET /write-offs.
func (h *WriteOffHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	writeOffs, err := h.store.ListWriteOffs(r.Context(), database.ListWriteOffsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list write-offs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]writeOffResponse, len(writeOffs))
	for i, wo := range writeOffs {
		resp[i] = toWriteOffResponse(wo)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /write-offs/{id}.
func (h *WriteOffHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid write-off ID"})
		return
	}

	writeOff, err := h.store.GetWriteOff(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "write-off not found"})
			return
		}
		log.Printf("ERROR: get write-off: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListWriteOffItems(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list write-off items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toWriteOffResponse(writeOff)
	resp.Items = make([]writeOffItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = toWriteOffItemResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}
