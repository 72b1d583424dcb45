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

// SupplyServicer defines the service methods needed by supply handlers.
// Satisfied by *service.InventoryService; narrow interface for testability.
type SupplyServicer interface {
	CreateSupply(ctx context.Context, input service.CreateSupplyInput) (*service.SupplyResult, error)
	ReceiveSupply(ctx context.Context, supplyID, receivedBy uuid.UUID) (*service.SupplyResult, error)
	CancelSupply(ctx context.Context, supplyID uuid.UUID) (database.Supply, error)
}

// SupplyStore defines the database methods needed by supply read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SupplyStore interface {
	GetSupply(ctx context.Context, id uuid.UUID) (database.Supply, error)
	ListSupplies(ctx context.Context, arg database.ListSuppliesParams) ([]database.Supply, error)
	ListSupplyItems(ctx context.Context, supplyID uuid.UUID) ([]database.SupplyItem, error)
}

// SupplyHandler handles supply delivery endpoints.
type SupplyHandler struct {
	svc   SupplyServicer
	store SupplyStore
}

// NewSupplyHandler creates a new SupplyHandler.
func NewSupplyHandler(svc SupplyServicer, store SupplyStore) *SupplyHandler {
	return &SupplyHandler{svc: svc, store: store}
}

// RegisterRoutes registers supply endpoints on the given Chi router.
func (h *SupplyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/receive", h.Receive)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type supplyItemRequest struct {
	IngredientSlug string `json:"ingredient_slug"`
	Quantity       string `json:"quantity"`
	UnitCost       string `json:"unit_cost"`
}

type createSupplyRequest struct {
	SupplierName string              `json:"supplier_name"`
	Notes        string              `json:"notes"`
	Items        []supplyItemRequest `json:"items"`
}

type supplyItemResponse struct {
	ID             uuid.UUID `json:"id"`
	IngredientSlug string    `json:"ingredient_slug"`
	Quantity       string    `json:"quantity"`
	UnitCost       string    `json:"unit_cost"`
}

type supplyResponse struct {
	ID           uuid.UUID              `json:"id"`
	SupplierName string                 `json:"supplier_name"`
	Status       string                 `json:"status"`
	TotalCost    string                 `json:"total_cost"`
	Notes        *string                `json:"notes"`
	CreatedBy    uuid.UUID              `json:"created_by"`
	CreatedAt    time.Time              `json:"created_at"`
	ReceivedBy   *string                `json:"received_by"`
	ReceivedAt   *time.Time             `json:"received_at"`
	Items        []supplyItemResponse   `json:"items,omitempty"`
	Warnings     []service.StockWarning `json:"warnings,omitempty"`
}

func toSupplyResponse(s database.Supply) supplyResponse {
	resp := supplyResponse{
		ID:           s.ID,
		SupplierName: s.SupplierName,
		Status:       s.Status,
		TotalCost:    numericToString(s.TotalCost),
		CreatedBy:    s.CreatedBy,
		CreatedAt:    s.CreatedAt,
	}
	if s.Notes.Valid {
		resp.Notes = &s.Notes.String
	}
	if s.ReceivedBy.Valid {
		v := uuid.UUID(s.ReceivedBy.Bytes).String()
		resp.ReceivedBy = &v
	}
	if s.ReceivedAt.Valid {
		t := s.ReceivedAt.Time
		resp.ReceivedAt = &t
	}
	return resp
}

func toSupplyItemResponse(i database.SupplyItem) supplyItemResponse {
	return supplyItemResponse{
		ID:             i.ID,
		IngredientSlug: i.IngredientSlug,
		Quantity:       numericToString(i.Quantity),
		UnitCost:       numericToString(i.UnitCost),
	}
}

// --- Handlers ---

// Create handles POST /supplies. The delivery is recorded as a draft; stock
// moves only on receive.
func (h *SupplyHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createSupplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.SupplyItemInput, len(req.Items))
	for i, item := range req.Items {
		quantity, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
			return
		}
		unitCost := decimal.Zero
		if item.UnitCost != "" {
			v, err := decimal.NewFromString(item.UnitCost)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid unit_cost"})
				return
			}
			unitCost = v
		}
		items[i] = service.SupplyItemInput{
			IngredientSlug: item.IngredientSlug,
			Quantity:       quantity,
			UnitCost:       unitCost,
		}
	}

	result, err := h.svc.CreateSupply(r.Context(), service.CreateSupplyInput{
		SupplierName: req.SupplierName,
		Notes:        req.Notes,
		Items:        items,
		CreatedBy:    claims.UserID,
	})
	if err != nil {
		writeServiceError(w, err, "create supply")
		return
	}

	resp := toSupplyResponse(result.Supply)
	resp.Items = make([]supplyItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = toSupplyItemResponse(item)
	}

	writeData(w, http.StatusCreated, resp)
}

// List handles GET /supplies.
func (h *SupplyHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	supplies, err := h.store.ListSupplies(r.Context(), database.ListSuppliesParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list supplies: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]supplyResponse, len(supplies))
	for i, s := range supplies {
		resp[i] = toSupplyResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /supplies/{id}.
func (h *SupplyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supply ID"})
		return
	}

	supply, err := h.store.GetSupply(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "supply not found"})
			return
		}
		log.Printf("ERROR: get supply: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListSupplyItems(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list supply items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toSupplyResponse(supply)
	resp.Items = make([]supplyItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = toSupplyItemResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Receive handles POST /supplies/{id}/receive. Stock and the open shift's
// supply spend move here.
func (h *SupplyHandler) Receive(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supply ID"})
		return
	}

	result, err := h.svc.ReceiveSupply(r.Context(), id, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "supply not found"})
			return
		}
		writeServiceError(w, err, "receive supply")
		return
	}

	resp := toSupplyResponse(result.Supply)
	resp.Items = make([]supplyItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = toSupplyItemResponse(item)
	}
	resp.Warnings = result.Warnings

	writeData(w, http.StatusOK, resp)
}

// Cancel handles POST /supplies/{id}/cancel.
func (h *SupplyHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supply ID"})
		return
	}

	supply, err := h.svc.CancelSupply(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "supply not found"})
			return
		}
		writeServiceError(w, err, "cancel supply")
		return
	}

	writeData(w, http.StatusOK, toSupplyResponse(supply))
}
