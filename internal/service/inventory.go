package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/enum"
)

// Stock warning reasons. A warning means a deduction step was skipped, never
// that the parent operation failed.
const (
	WarnProductNotFound    = "product_not_found"
	WarnNoRecipe           = "no_recipe"
	WarnIngredientNotFound = "ingredient_not_found"
)

// StockWarning reports a skipped step during stock adjustment so the caller
// can surface it instead of losing it.
type StockWarning struct {
	Reason     string `json:"reason"`
	Product    string `json:"product,omitempty"`
	Ingredient string `json:"ingredient,omitempty"`
}

// stockStore is the query surface the stock engine needs. *database.Queries
// satisfies it.
type stockStore interface {
	GetProductBySlug(ctx context.Context, slug string) (database.Product, error)
	GetProductByLegacyCode(ctx context.Context, code int32) (database.Product, error)
	ListRecipesByProduct(ctx context.Context, productID uuid.UUID) ([]database.Recipe, error)
	ListRecipeIngredients(ctx context.Context, recipeID uuid.UUID) ([]database.RecipeIngredient, error)
	GetIngredientBySlugForUpdate(ctx context.Context, slug string) (database.Ingredient, error)
	GetIngredientByLegacyCodeForUpdate(ctx context.Context, code int32) (database.Ingredient, error)
	SetIngredientQuantity(ctx context.Context, arg database.SetIngredientQuantityParams) (database.Ingredient, error)
	CreateInventoryTransaction(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error)
}

// deductOrderItems walks the order's items, resolves each product's recipe
// and deducts the recipe ingredients from stock. Unresolvable products,
// recipes or ingredients are skipped with a warning; stock never goes below
// zero but the audit transaction records the full requested deduction.
func deductOrderItems(ctx context.Context, store stockStore, items []database.OrderItem, reference string, shiftID pgtype.UUID) ([]StockWarning, error) {
	warnings := []StockWarning{}
	for _, item := range items {
		product, found, err := resolveProduct(ctx, store, item.ProductSlug, item.LegacyProductCode)
		if err != nil {
			return nil, err
		}
		if !found {
			warnings = append(warnings, StockWarning{Reason: WarnProductNotFound, Product: item.ProductName})
			continue
		}

		recipes, err := store.ListRecipesByProduct(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		if len(recipes) == 0 {
			warnings = append(warnings, StockWarning{Reason: WarnNoRecipe, Product: item.ProductName})
			continue
		}
		recipe := selectRecipe(recipes, item.SizeID)

		recipeIngredients, err := store.ListRecipeIngredients(ctx, recipe.ID)
		if err != nil {
			return nil, err
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		for _, ri := range recipeIngredients {
			ingredient, found, err := resolveIngredient(ctx, store, ri.IngredientSlug, ri.LegacyIngredient)
			if err != nil {
				return nil, err
			}
			if !found {
				warnings = append(warnings, StockWarning{
					Reason:     WarnIngredientNotFound,
					Product:    item.ProductName,
					Ingredient: ri.IngredientSlug,
				})
				continue
			}

			deduct := numericToDecimal(ri.Amount).Mul(qty)
			if err := adjustStock(ctx, store, ingredient, deduct.Neg(), enum.TransactionTypeSale, reference, shiftID); err != nil {
				return nil, err
			}
		}
	}
	return warnings, nil
}

// applySupplyItems adds received quantities to stock and returns the total
// cost of the delivery computed from its line items.
func applySupplyItems(ctx context.Context, store stockStore, items []database.SupplyItem, reference string, shiftID pgtype.UUID) (decimal.Decimal, []StockWarning, error) {
	warnings := []StockWarning{}
	totalCost := decimal.Zero
	for _, item := range items {
		qty := numericToDecimal(item.Quantity)
		if !qty.IsPositive() {
			continue
		}
		totalCost = totalCost.Add(qty.Mul(numericToDecimal(item.UnitCost)))

		ingredient, err := store.GetIngredientBySlugForUpdate(ctx, item.IngredientSlug)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				warnings = append(warnings, StockWarning{Reason: WarnIngredientNotFound, Ingredient: item.IngredientSlug})
				continue
			}
			return decimal.Zero, nil, err
		}
		if err := adjustStock(ctx, store, ingredient, qty, enum.TransactionTypeSupply, reference, shiftID); err != nil {
			return decimal.Zero, nil, err
		}
	}
	return totalCost, warnings, nil
}

// writeOffLine is an applied write-off item with its cost valued at the
// ingredient's current cost per unit.
type writeOffLine struct {
	IngredientSlug string
	Quantity       decimal.Decimal
	Cost           decimal.Decimal
}

func applyWriteOffItems(ctx context.Context, store stockStore, items []WriteOffItemInput, reference string, shiftID pgtype.UUID) ([]writeOffLine, []StockWarning, decimal.Decimal, error) {
	warnings := []StockWarning{}
	lines := []writeOffLine{}
	totalCost := decimal.Zero
	for _, item := range items {
		ingredient, err := store.GetIngredientBySlugForUpdate(ctx, item.IngredientSlug)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				warnings = append(warnings, StockWarning{Reason: WarnIngredientNotFound, Ingredient: item.IngredientSlug})
				continue
			}
			return nil, nil, decimal.Zero, err
		}

		cost := item.Quantity.Mul(numericToDecimal(ingredient.CostPerUnit)).Round(2)
		if err := adjustStock(ctx, store, ingredient, item.Quantity.Neg(), enum.TransactionTypeWriteOff, reference, shiftID); err != nil {
			return nil, nil, decimal.Zero, err
		}
		lines = append(lines, writeOffLine{IngredientSlug: item.IngredientSlug, Quantity: item.Quantity, Cost: cost})
		totalCost = totalCost.Add(cost)
	}
	return lines, warnings, totalCost, nil
}

// adjustStock applies a signed delta to an already-locked ingredient row,
// flooring the result at zero, and appends the audit transaction. The
// transaction keeps the requested delta even when the floor clipped it;
// previous/new quantities tell the real story.
func adjustStock(ctx context.Context, store stockStore, ingredient database.Ingredient, delta decimal.Decimal, txnType, reference string, shiftID pgtype.UUID) error {
	previous := numericToDecimal(ingredient.Quantity)
	newQty := previous.Add(delta)
	if newQty.IsNegative() {
		newQty = decimal.Zero
	}

	if _, err := store.SetIngredientQuantity(ctx, database.SetIngredientQuantityParams{
		ID:       ingredient.ID,
		Quantity: decimalToNumeric(newQty),
	}); err != nil {
		return err
	}
	_, err := store.CreateInventoryTransaction(ctx, database.CreateInventoryTransactionParams{
		IngredientID:     ingredient.ID,
		TransactionType:  txnType,
		Quantity:         decimalToNumeric(delta),
		PreviousQuantity: decimalToNumeric(previous),
		NewQuantity:      decimalToNumeric(newQty),
		Reference:        reference,
		ShiftID:          shiftID,
	})
	return err
}

func resolveProduct(ctx context.Context, store stockStore, slug pgtype.Text, legacyCode pgtype.Int4) (database.Product, bool, error) {
	if slug.Valid && slug.String != "" {
		product, err := store.GetProductBySlug(ctx, slug.String)
		if err == nil {
			return product, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Product{}, false, err
		}
	}
	if legacyCode.Valid {
		product, err := store.GetProductByLegacyCode(ctx, legacyCode.Int32)
		if err == nil {
			return product, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Product{}, false, err
		}
	}
	return database.Product{}, false, nil
}

func resolveIngredient(ctx context.Context, store stockStore, slug string, legacyCode pgtype.Int4) (database.Ingredient, bool, error) {
	if slug != "" {
		ingredient, err := store.GetIngredientBySlugForUpdate(ctx, slug)
		if err == nil {
			return ingredient, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Ingredient{}, false, err
		}
	}
	if legacyCode.Valid {
		ingredient, err := store.GetIngredientByLegacyCodeForUpdate(ctx, legacyCode.Int32)
		if err == nil {
			return ingredient, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Ingredient{}, false, err
		}
	}
	return database.Ingredient{}, false, nil
}

// selectRecipe picks the recipe for an ordered size: exact size match first,
// then the default recipe, then the first one.
func selectRecipe(recipes []database.Recipe, sizeID pgtype.Text) database.Recipe {
	if sizeID.Valid && sizeID.String != "" {
		for _, r := range recipes {
			if r.SizeID.Valid && r.SizeID.String == sizeID.String {
				return r
			}
		}
	}
	for _, r := range recipes {
		if r.IsDefault {
			return r
		}
	}
	return recipes[0]
}
