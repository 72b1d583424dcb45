package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Categories ---

const categoryColumns = `id, name, slug, sort_order, is_active, created_at`

func scanCategory(row interface{ Scan(dest ...interface{}) error }) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

type CreateCategoryParams struct {
	Name      string
	Slug      string
	SortOrder int32
}

const createCategory = `
INSERT INTO categories (name, slug, sort_order)
VALUES ($1, $2, $3)
RETURNING ` + categoryColumns

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, createCategory, arg.Name, arg.Slug, arg.SortOrder))
}

const getCategory = `
SELECT ` + categoryColumns + ` FROM categories WHERE id = $1
`

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, getCategory, id))
}

const listCategories = `
SELECT ` + categoryColumns + ` FROM categories WHERE is_active ORDER BY sort_order, name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

type UpdateCategoryParams struct {
	ID        uuid.UUID
	Name      string
	SortOrder int32
}

const updateCategory = `
UPDATE categories SET name = $2, sort_order = $3 WHERE id = $1
RETURNING ` + categoryColumns

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, updateCategory, arg.ID, arg.Name, arg.SortOrder))
}

const deactivateCategory = `
UPDATE categories SET is_active = false WHERE id = $1
RETURNING ` + categoryColumns

func (q *Queries) DeactivateCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, deactivateCategory, id))
}

// --- Products ---

const productColumns = `id, category_id, name, slug, legacy_code, base_price,
	is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...interface{}) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.CategoryID,
		&p.Name,
		&p.Slug,
		&p.LegacyCode,
		&p.BasePrice,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

type CreateProductParams struct {
	CategoryID pgtype.UUID
	Name       string
	Slug       string
	LegacyCode pgtype.Int4
	BasePrice  pgtype.Numeric
}

const createProduct = `
INSERT INTO products (category_id, name, slug, legacy_code, base_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + productColumns

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.CategoryID, arg.Name, arg.Slug, arg.LegacyCode, arg.BasePrice)
	return scanProduct(row)
}

const getProduct = `
SELECT ` + productColumns + ` FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const getProductBySlug = `
SELECT ` + productColumns + ` FROM products WHERE slug = $1
`

func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductBySlug, slug))
}

const getProductByLegacyCode = `
SELECT ` + productColumns + ` FROM products WHERE legacy_code = $1
`

func (q *Queries) GetProductByLegacyCode(ctx context.Context, code int32) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductByLegacyCode, code))
}

const listProducts = `
SELECT ` + productColumns + ` FROM products WHERE is_active ORDER BY name
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type UpdateProductParams struct {
	ID         uuid.UUID
	CategoryID pgtype.UUID
	Name       string
	BasePrice  pgtype.Numeric
	IsActive   bool
}

const updateProduct = `
UPDATE products
SET category_id = $2, name = $3, base_price = $4, is_active = $5, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.CategoryID, arg.Name, arg.BasePrice, arg.IsActive)
	return scanProduct(row)
}

const deactivateProduct = `
UPDATE products SET is_active = false, updated_at = now() WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) DeactivateProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, deactivateProduct, id))
}

// --- Recipes ---

type CreateRecipeParams struct {
	ProductID uuid.UUID
	SizeID    pgtype.Text
	SizeName  pgtype.Text
	IsDefault bool
}

const createRecipe = `
INSERT INTO recipes (product_id, size_id, size_name, is_default)
VALUES ($1, $2, $3, $4)
RETURNING id, product_id, size_id, size_name, is_default, created_at
`

func (q *Queries) CreateRecipe(ctx context.Context, arg CreateRecipeParams) (Recipe, error) {
	row := q.db.QueryRow(ctx, createRecipe,
		arg.ProductID, arg.SizeID, arg.SizeName, arg.IsDefault)
	var r Recipe
	err := row.Scan(&r.ID, &r.ProductID, &r.SizeID, &r.SizeName, &r.IsDefault, &r.CreatedAt)
	return r, err
}

type CreateRecipeIngredientParams struct {
	RecipeID         uuid.UUID
	IngredientSlug   string
	LegacyIngredient pgtype.Int4
	Amount           pgtype.Numeric
}

const createRecipeIngredient = `
INSERT INTO recipe_ingredients (recipe_id, ingredient_slug, legacy_ingredient_code, amount)
VALUES ($1, $2, $3, $4)
RETURNING id, recipe_id, ingredient_slug, legacy_ingredient_code, amount
`

func (q *Queries) CreateRecipeIngredient(ctx context.Context, arg CreateRecipeIngredientParams) (RecipeIngredient, error) {
	row := q.db.QueryRow(ctx, createRecipeIngredient,
		arg.RecipeID, arg.IngredientSlug, arg.LegacyIngredient, arg.Amount)
	var ri RecipeIngredient
	err := row.Scan(&ri.ID, &ri.RecipeID, &ri.IngredientSlug, &ri.LegacyIngredient, &ri.Amount)
	return ri, err
}

const listRecipesByProduct = `
SELECT id, product_id, size_id, size_name, is_default, created_at
FROM recipes WHERE product_id = $1 ORDER BY created_at, id
`

func (q *Queries) ListRecipesByProduct(ctx context.Context, productID uuid.UUID) ([]Recipe, error) {
	rows, err := q.db.Query(ctx, listRecipesByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recipes []Recipe
	for rows.Next() {
		var r Recipe
		if err := rows.Scan(&r.ID, &r.ProductID, &r.SizeID, &r.SizeName, &r.IsDefault, &r.CreatedAt); err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

const listRecipeIngredients = `
SELECT id, recipe_id, ingredient_slug, legacy_ingredient_code, amount
FROM recipe_ingredients WHERE recipe_id = $1 ORDER BY id
`

func (q *Queries) ListRecipeIngredients(ctx context.Context, recipeID uuid.UUID) ([]RecipeIngredient, error) {
	rows, err := q.db.Query(ctx, listRecipeIngredients, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ingredients []RecipeIngredient
	for rows.Next() {
		var ri RecipeIngredient
		if err := rows.Scan(&ri.ID, &ri.RecipeID, &ri.IngredientSlug, &ri.LegacyIngredient, &ri.Amount); err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ri)
	}
	return ingredients, rows.Err()
}

const deleteRecipesByProduct = `
DELETE FROM recipes WHERE product_id = $1
`

// DeleteRecipesByProduct removes a product's recipes ahead of a full
// replace; recipe_ingredients cascade.
func (q *Queries) DeleteRecipesByProduct(ctx context.Context, productID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteRecipesByProduct, productID)
	return err
}
