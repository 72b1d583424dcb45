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
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/brewdesk-pos/api/internal/database"
)

// IngredientStore defines the database methods needed by ingredient handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type IngredientStore interface {
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	ListLowStockIngredients(ctx context.Context) ([]database.Ingredient, error)
	UpdateIngredient(ctx context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error)
	ListInventoryTransactionsByIngredient(ctx context.Context, arg database.ListInventoryTransactionsParams) ([]database.InventoryTransaction, error)
}

// IngredientHandler handles stock ingredient endpoints.
type IngredientHandler struct {
	store IngredientStore
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(store IngredientStore) *IngredientHandler {
	return &IngredientHandler{store: store}
}

// RegisterRoutes registers ingredient endpoints on the given Chi router.
func (h *IngredientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/low-stock", h.LowStock)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Get("/{id}/transactions", h.Transactions)
}

// --- Request / Response types ---

type createIngredientRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	LegacyCode  *int32 `json:"legacy_code"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
	MinQuantity string `json:"min_quantity"`
	CostPerUnit string `json:"cost_per_unit"`
}

type updateIngredientRequest struct {
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	MinQuantity string `json:"min_quantity"`
	CostPerUnit string `json:"cost_per_unit"`
	IsActive    *bool  `json:"is_active"`
}

type ingredientResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	LegacyCode  *int32    `json:"legacy_code"`
	Unit        string    `json:"unit"`
	Quantity    string    `json:"quantity"`
	MinQuantity string    `json:"min_quantity"`
	CostPerUnit string    `json:"cost_per_unit"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type inventoryTransactionResponse struct {
	ID               uuid.UUID `json:"id"`
	IngredientID     uuid.UUID `json:"ingredient_id"`
	TransactionType  string    `json:"transaction_type"`
	Quantity         string    `json:"quantity"`
	PreviousQuantity string    `json:"previous_quantity"`
	NewQuantity      string    `json:"new_quantity"`
	Reference        string    `json:"reference"`
	ShiftID          *string   `json:"shift_id"`
	CreatedAt        time.Time `json:"created_at"`
}

func toIngredientResponse(i database.Ingredient) ingredientResponse {
	resp := ingredientResponse{
		ID:          i.ID,
		Name:        i.Name,
		Slug:        i.Slug,
		Unit:        i.Unit,
		Quantity:    numericToString(i.Quantity),
		MinQuantity: numericToString(i.MinQuantity),
		CostPerUnit: numericToString(i.CostPerUnit),
		IsActive:    i.IsActive,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
	if i.LegacyCode.Valid {
		code := i.LegacyCode.Int32
		resp.LegacyCode = &code
	}
	return resp
}

func toInventoryTransactionResponse(t database.InventoryTransaction) inventoryTransactionResponse {
	resp := inventoryTransactionResponse{
		ID:               t.ID,
		IngredientID:     t.IngredientID,
		TransactionType:  t.TransactionType,
		Quantity:         numericToString(t.Quantity),
		PreviousQuantity: numericToString(t.PreviousQuantity),
		NewQuantity:      numericToString(t.NewQuantity),
		Reference:        t.Reference,
		CreatedAt:        t.CreatedAt,
	}
	if t.ShiftID.Valid {
		s := uuid.UUID(t.ShiftID.Bytes).String()
		resp.ShiftID = &s
	}
	return resp
}

// --- Handlers ---

// List returns all active ingredients.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.store.ListIngredients(r.Context())
	if err != nil {
		log.Printf("ERROR: list ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = toIngredientResponse(ing)
	}
	writeJSON(w, http.StatusOK, resp)
}

// LowStock returns active ingredients at or below their minimum quantity.
func (h *IngredientHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.store.ListLowStockIngredients(r.Context())
	if err != nil {
		log.Printf("ERROR: list low stock ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = toIngredientResponse(ing)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new ingredient.
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and unit are required"})
		return
	}

	quantity, err := numericFromString(req.Quantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
		return
	}
	minQuantity, err := numericFromString(req.MinQuantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_quantity"})
		return
	}
	costPerUnit, err := numericFromString(req.CostPerUnit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cost_per_unit"})
		return
	}

	legacyCode := pgtype.Int4{}
	if req.LegacyCode != nil {
		legacyCode = pgtype.Int4{Int32: *req.LegacyCode, Valid: true}
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Name)
	}

	ingredient, err := h.store.CreateIngredient(r.Context(), database.CreateIngredientParams{
		Name:        req.Name,
		Slug:        slug,
		LegacyCode:  legacyCode,
		Unit:        req.Unit,
		Quantity:    quantity,
		MinQuantity: minQuantity,
		CostPerUnit: costPerUnit,
	})
	if err != nil {
		log.Printf("ERROR: create ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeData(w, http.StatusCreated, toIngredientResponse(ingredient))
}

// Get returns a single ingredient.
func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	ingredient, err := h.store.GetIngredient(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: get ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toIngredientResponse(ingredient))
}

// Update modifies an ingredient's descriptive fields. Quantities only move
// through supplies, write-offs and sales so the transaction log stays
// complete.
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	var req updateIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and unit are required"})
		return
	}
	minQuantity, err := numericFromString(req.MinQuantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_quantity"})
		return
	}
	costPerUnit, err := numericFromString(req.CostPerUnit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cost_per_unit"})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	ingredient, err := h.store.UpdateIngredient(r.Context(), database.UpdateIngredientParams{
		ID:          id,
		Name:        req.Name,
		Unit:        req.Unit,
		MinQuantity: minQuantity,
		CostPerUnit: costPerUnit,
		IsActive:    isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: update ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeData(w, http.StatusOK, toIngredientResponse(ingredient))
}

// Transactions returns an ingredient's stock movement history, newest first.
func (h *IngredientHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	limit, offset := parsePagination(r)

	transactions, err := h.store.ListInventoryTransactionsByIngredient(r.Context(), database.ListInventoryTransactionsParams{
		IngredientID: id,
		Limit:        int32(limit),
		Offset:       int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list inventory transactions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryTransactionResponse, len(transactions))
	for i, t := range transactions {
		resp[i] = toInventoryTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}
