package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/brewdesk-pos/api/internal/database"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListRecipesByProduct(ctx context.Context, productID uuid.UUID) ([]database.Recipe, error)
	ListRecipeIngredients(ctx context.Context, recipeID uuid.UUID) ([]database.RecipeIngredient, error)
	DeleteRecipesByProduct(ctx context.Context, productID uuid.UUID) error
	CreateRecipe(ctx context.Context, arg database.CreateRecipeParams) (database.Recipe, error)
	CreateRecipeIngredient(ctx context.Context, arg database.CreateRecipeIngredientParams) (database.RecipeIngredient, error)
}

// ProductHandler handles menu product and recipe endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product endpoints on the given Chi router.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/recipes", h.ListRecipes)
	r.Put("/{id}/recipes", h.ReplaceRecipes)
}

// --- Request / Response types ---

type createProductRequest struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	LegacyCode *int32 `json:"legacy_code"`
	BasePrice  string `json:"base_price"`
}

type updateProductRequest struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	BasePrice  string `json:"base_price"`
	IsActive   *bool  `json:"is_active"`
}

type recipeIngredientRequest struct {
	IngredientSlug   string `json:"ingredient_slug"`
	LegacyIngredient *int32 `json:"legacy_ingredient_code"`
	Amount           string `json:"amount"`
}

type recipeRequest struct {
	SizeID      string                    `json:"size_id"`
	SizeName    string                    `json:"size_name"`
	IsDefault   bool                      `json:"is_default"`
	Ingredients []recipeIngredientRequest `json:"ingredients"`
}

type replaceRecipesRequest struct {
	Recipes []recipeRequest `json:"recipes"`
}

type productResponse struct {
	ID         uuid.UUID `json:"id"`
	CategoryID *string   `json:"category_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	LegacyCode *int32    `json:"legacy_code"`
	BasePrice  string    `json:"base_price"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type recipeIngredientResponse struct {
	ID               uuid.UUID `json:"id"`
	IngredientSlug   string    `json:"ingredient_slug"`
	LegacyIngredient *int32    `json:"legacy_ingredient_code"`
	Amount           string    `json:"amount"`
}

type recipeResponse struct {
	ID          uuid.UUID                  `json:"id"`
	SizeID      *string                    `json:"size_id"`
	SizeName    *string                    `json:"size_name"`
	IsDefault   bool                       `json:"is_default"`
	Ingredients []recipeIngredientResponse `json:"ingredients"`
}

type productDetailResponse struct {
	productResponse
	Recipes []recipeResponse `json:"recipes"`
}

func toProductResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		BasePrice: numericToString(p.BasePrice),
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.CategoryID.Valid {
		s := uuid.UUID(p.CategoryID.Bytes).String()
		resp.CategoryID = &s
	}
	if p.LegacyCode.Valid {
		code := p.LegacyCode.Int32
		resp.LegacyCode = &code
	}
	return resp
}

func toRecipeResponse(rec database.Recipe, ingredients []database.RecipeIngredient) recipeResponse {
	resp := recipeResponse{
		ID:          rec.ID,
		IsDefault:   rec.IsDefault,
		Ingredients: make([]recipeIngredientResponse, len(ingredients)),
	}
	if rec.SizeID.Valid {
		resp.SizeID = &rec.SizeID.String
	}
	if rec.SizeName.Valid {
		resp.SizeName = &rec.SizeName.String
	}
	for i, ing := range ingredients {
		ir := recipeIngredientResponse{
			ID:             ing.ID,
			IngredientSlug: ing.IngredientSlug,
			Amount:         numericToString(ing.Amount),
		}
		if ing.LegacyIngredient.Valid {
			code := ing.LegacyIngredient.Int32
			ir.LegacyIngredient = &code
		}
		resp.Ingredients[i] = ir
	}
	return resp
}

// --- Handlers ---

// List returns all active products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	price, err := numericFromString(req.BasePrice)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid base_price"})
		return
	}

	categoryID := pgtype.UUID{}
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		categoryID = pgtype.UUID{Bytes: id, Valid: true}
	}

	legacyCode := pgtype.Int4{}
	if req.LegacyCode != nil {
		legacyCode = pgtype.Int4{Int32: *req.LegacyCode, Valid: true}
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Name)
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		CategoryID: categoryID,
		Name:       req.Name,
		Slug:       slug,
		LegacyCode: legacyCode,
		BasePrice:  price,
	})
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeData(w, http.StatusCreated, toProductResponse(product))
}

// Get returns a product with its recipes and their ingredient lines.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	recipeResps, err := h.recipeResponses(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: load recipes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, productDetailResponse{
		productResponse: toProductResponse(product),
		Recipes:         recipeResps,
	})
}

// ListRecipes returns just the recipes for a product.
func (h *ProductHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.GetProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	recipeResps, err := h.recipeResponses(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: load recipes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, recipeResps)
}

func (h *ProductHandler) recipeResponses(ctx context.Context, productID uuid.UUID) ([]recipeResponse, error) {
	recipes, err := h.store.ListRecipesByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	resps := make([]recipeResponse, len(recipes))
	for i, rec := range recipes {
		ingredients, err := h.store.ListRecipeIngredients(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		resps[i] = toRecipeResponse(rec, ingredients)
	}
	return resps, nil
}

// Update modifies an existing product.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	price, err := numericFromString(req.BasePrice)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid base_price"})
		return
	}

	categoryID := pgtype.UUID{}
	if req.CategoryID != "" {
		cid, err := uuid.Parse(req.CategoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		categoryID = pgtype.UUID{Bytes: cid, Valid: true}
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:         id,
		CategoryID: categoryID,
		Name:       req.Name,
		BasePrice:  price,
		IsActive:   isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: update product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeData(w, http.StatusOK, toProductResponse(product))
}

// Delete soft-deletes a product by setting is_active=false.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.DeactivateProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: deactivate product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReplaceRecipes swaps out a product's full recipe set. Orders taken for a
// product with no recipes still succeed, so a half-finished replace degrades
// to a stock warning rather than a failed sale.
func (h *ProductHandler) ReplaceRecipes(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req replaceRecipesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	for i, rec := range req.Recipes {
		for j, ing := range rec.Ingredients {
			if ing.IngredientSlug == "" && ing.LegacyIngredient == nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error": formatRecipeError(i, j, "ingredient_slug or legacy_ingredient_code is required"),
				})
				return
			}
			if _, err := numericFromString(ing.Amount); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error": formatRecipeError(i, j, "invalid amount"),
				})
				return
			}
		}
	}

	if _, err := h.store.GetProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product for recipe replace: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.store.DeleteRecipesByProduct(r.Context(), id); err != nil {
		log.Printf("ERROR: delete recipes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]recipeResponse, len(req.Recipes))
	for i, rec := range req.Recipes {
		sizeID := pgtype.Text{}
		if rec.SizeID != "" {
			sizeID = pgtype.Text{String: rec.SizeID, Valid: true}
		}
		sizeName := pgtype.Text{}
		if rec.SizeName != "" {
			sizeName = pgtype.Text{String: rec.SizeName, Valid: true}
		}

		created, err := h.store.CreateRecipe(r.Context(), database.CreateRecipeParams{
			ProductID: id,
			SizeID:    sizeID,
			SizeName:  sizeName,
			IsDefault: rec.IsDefault,
		})
		if err != nil {
			log.Printf("ERROR: create recipe: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}

		lines := make([]database.RecipeIngredient, len(rec.Ingredients))
		for j, ing := range rec.Ingredients {
			amount, _ := numericFromString(ing.Amount)
			legacy := pgtype.Int4{}
			if ing.LegacyIngredient != nil {
				legacy = pgtype.Int4{Int32: *ing.LegacyIngredient, Valid: true}
			}
			line, err := h.store.CreateRecipeIngredient(r.Context(), database.CreateRecipeIngredientParams{
				RecipeID:         created.ID,
				IngredientSlug:   ing.IngredientSlug,
				LegacyIngredient: legacy,
				Amount:           amount,
			})
			if err != nil {
				log.Printf("ERROR: create recipe ingredient: %v", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			lines[j] = line
		}
		resp[i] = toRecipeResponse(created, lines)
	}

	writeData(w, http.StatusOK, resp)
}

func formatRecipeError(recipeIdx, ingredientIdx int, msg string) string {
	return "recipes[" + strconv.Itoa(recipeIdx) + "].ingredients[" + strconv.Itoa(ingredientIdx) + "]: " + msg
}
