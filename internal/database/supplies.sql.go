package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const supplyColumns = `id, supplier_name, status, total_cost, notes,
	created_by, created_at, received_by, received_at`

func scanSupply(row interface{ Scan(dest ...interface{}) error }) (Supply, error) {
	var s Supply
	err := row.Scan(
		&s.ID,
		&s.SupplierName,
		&s.Status,
		&s.TotalCost,
		&s.Notes,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.ReceivedBy,
		&s.ReceivedAt,
	)
	return s, err
}

type CreateSupplyParams struct {
	SupplierName string
	TotalCost    pgtype.Numeric
	Notes        pgtype.Text
	CreatedBy    uuid.UUID
}

const createSupply = `
INSERT INTO supplies (supplier_name, status, total_cost, notes, created_by)
VALUES ($1, 'draft', $2, $3, $4)
RETURNING ` + supplyColumns

func (q *Queries) CreateSupply(ctx context.Context, arg CreateSupplyParams) (Supply, error) {
	row := q.db.QueryRow(ctx, createSupply,
		arg.SupplierName, arg.TotalCost, arg.Notes, arg.CreatedBy)
	return scanSupply(row)
}

type CreateSupplyItemParams struct {
	SupplyID       uuid.UUID
	IngredientSlug string
	Quantity       pgtype.Numeric
	UnitCost       pgtype.Numeric
}

const createSupplyItem = `
INSERT INTO supply_items (supply_id, ingredient_slug, quantity, unit_cost)
VALUES ($1, $2, $3, $4)
RETURNING id, supply_id, ingredient_slug, quantity, unit_cost
`

func (q *Queries) CreateSupplyItem(ctx context.Context, arg CreateSupplyItemParams) (SupplyItem, error) {
	row := q.db.QueryRow(ctx, createSupplyItem,
		arg.SupplyID, arg.IngredientSlug, arg.Quantity, arg.UnitCost)
	var i SupplyItem
	err := row.Scan(&i.ID, &i.SupplyID, &i.IngredientSlug, &i.Quantity, &i.UnitCost)
	return i, err
}

const getSupply = `
SELECT ` + supplyColumns + ` FROM supplies WHERE id = $1
`

func (q *Queries) GetSupply(ctx context.Context, id uuid.UUID) (Supply, error) {
	return scanSupply(q.db.QueryRow(ctx, getSupply, id))
}

const getSupplyForUpdate = `
SELECT ` + supplyColumns + ` FROM supplies WHERE id = $1 FOR UPDATE
`

// GetSupplyForUpdate locks the supply row so a double receive cannot slip
// between the status check and the update.
func (q *Queries) GetSupplyForUpdate(ctx context.Context, id uuid.UUID) (Supply, error) {
	return scanSupply(q.db.QueryRow(ctx, getSupplyForUpdate, id))
}

const listSupplyItems = `
SELECT id, supply_id, ingredient_slug, quantity, unit_cost
FROM supply_items WHERE supply_id = $1 ORDER BY id
`

func (q *Queries) ListSupplyItems(ctx context.Context, supplyID uuid.UUID) ([]SupplyItem, error) {
	rows, err := q.db.Query(ctx, listSupplyItems, supplyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SupplyItem
	for rows.Next() {
		var i SupplyItem
		if err := rows.Scan(&i.ID, &i.SupplyID, &i.IngredientSlug, &i.Quantity, &i.UnitCost); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type ListSuppliesParams struct {
	Limit  int32
	Offset int32
}

const listSupplies = `
SELECT ` + supplyColumns + ` FROM supplies ORDER BY created_at DESC LIMIT $1 OFFSET $2
`

func (q *Queries) ListSupplies(ctx context.Context, arg ListSuppliesParams) ([]Supply, error) {
	rows, err := q.db.Query(ctx, listSupplies, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var supplies []Supply
	for rows.Next() {
		s, err := scanSupply(rows)
		if err != nil {
			return nil, err
		}
		supplies = append(supplies, s)
	}
	return supplies, rows.Err()
}

type MarkSupplyReceivedParams struct {
	ID         uuid.UUID
	ReceivedBy uuid.UUID
	TotalCost  pgtype.Numeric
}

const markSupplyReceived = `
UPDATE supplies
SET status = 'received', received_by = $2, received_at = now(), total_cost = $3
WHERE id = $1 AND status = 'draft'
RETURNING ` + supplyColumns

// MarkSupplyReceived is the one-way draft -> received transition; ErrNoRows
// means the supply is absent or no longer a draft.
func (q *Queries) MarkSupplyReceived(ctx context.Context, arg MarkSupplyReceivedParams) (Supply, error) {
	return scanSupply(q.db.QueryRow(ctx, markSupplyReceived, arg.ID, arg.ReceivedBy, arg.TotalCost))
}

const cancelSupply = `
UPDATE supplies SET status = 'cancelled' WHERE id = $1 AND status = 'draft'
RETURNING ` + supplyColumns

func (q *Queries) CancelSupply(ctx context.Context, id uuid.UUID) (Supply, error) {
	return scanSupply(q.db.QueryRow(ctx, cancelSupply, id))
}

const listSuppliesBetween = `
SELECT ` + supplyColumns + `
FROM supplies
WHERE status = 'received' AND received_at >= $1 AND received_at <= $2
ORDER BY received_at
`

func (q *Queries) ListSuppliesBetween(ctx context.Context, start, end time.Time) ([]Supply, error) {
	rows, err := q.db.Query(ctx, listSuppliesBetween, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var supplies []Supply
	for rows.Next() {
		s, err := scanSupply(rows)
		if err != nil {
			return nil, err
		}
		supplies = append(supplies, s)
	}
	return supplies, rows.Err()
}
