package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ingredientColumns = `id, name, slug, legacy_code, unit, quantity,
	min_quantity, cost_per_unit, is_active, created_at, updated_at`

func scanIngredient(row interface{ Scan(dest ...interface{}) error }) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.LegacyCode,
		&i.Unit,
		&i.Quantity,
		&i.MinQuantity,
		&i.CostPerUnit,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type CreateIngredientParams struct {
	Name        string
	Slug        string
	LegacyCode  pgtype.Int4
	Unit        string
	Quantity    pgtype.Numeric
	MinQuantity pgtype.Numeric
	CostPerUnit pgtype.Numeric
}

const createIngredient = `
INSERT INTO ingredients (name, slug, legacy_code, unit, quantity, min_quantity, cost_per_unit)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + ingredientColumns

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx, createIngredient,
		arg.Name, arg.Slug, arg.LegacyCode, arg.Unit, arg.Quantity, arg.MinQuantity, arg.CostPerUnit)
	return scanIngredient(row)
}

const getIngredient = `
SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1
`

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredient, id))
}

const getIngredientBySlug = `
SELECT ` + ingredientColumns + ` FROM ingredients WHERE slug = $1
`

func (q *Queries) GetIngredientBySlug(ctx context.Context, slug string) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredientBySlug, slug))
}

const getIngredientBySlugForUpdate = `
SELECT ` + ingredientColumns + ` FROM ingredients WHERE slug = $1 FOR UPDATE
`

// GetIngredientBySlugForUpdate locks the ingredient row so concurrent
// deductions against the same stock serialize instead of clobbering.
func (q *Queries) GetIngredientBySlugForUpdate(ctx context.Context, slug string) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredientBySlugForUpdate, slug))
}

const getIngredientByLegacyCodeForUpdate = `
SELECT ` + ingredientColumns + ` FROM ingredients WHERE legacy_code = $1 FOR UPDATE
`

func (q *Queries) GetIngredientByLegacyCodeForUpdate(ctx context.Context, code int32) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredientByLegacyCodeForUpdate, code))
}

const listIngredients = `
SELECT ` + ingredientColumns + ` FROM ingredients ORDER BY name
`

func (q *Queries) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listIngredients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ingredients []Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, i)
	}
	return ingredients, rows.Err()
}

const listLowStockIngredients = `
SELECT ` + ingredientColumns + `
FROM ingredients
WHERE is_active AND quantity <= min_quantity
ORDER BY name
`

func (q *Queries) ListLowStockIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listLowStockIngredients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ingredients []Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, i)
	}
	return ingredients, rows.Err()
}

type UpdateIngredientParams struct {
	ID          uuid.UUID
	Name        string
	Unit        string
	MinQuantity pgtype.Numeric
	CostPerUnit pgtype.Numeric
	IsActive    bool
}

const updateIngredient = `
UPDATE ingredients
SET name = $2, unit = $3, min_quantity = $4, cost_per_unit = $5,
    is_active = $6, updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

func (q *Queries) UpdateIngredient(ctx context.Context, arg UpdateIngredientParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx, updateIngredient,
		arg.ID, arg.Name, arg.Unit, arg.MinQuantity, arg.CostPerUnit, arg.IsActive)
	return scanIngredient(row)
}

type SetIngredientQuantityParams struct {
	ID       uuid.UUID
	Quantity pgtype.Numeric
}

const setIngredientQuantity = `
UPDATE ingredients SET quantity = $2, updated_at = now() WHERE id = $1
RETURNING ` + ingredientColumns

func (q *Queries) SetIngredientQuantity(ctx context.Context, arg SetIngredientQuantityParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, setIngredientQuantity, arg.ID, arg.Quantity))
}
