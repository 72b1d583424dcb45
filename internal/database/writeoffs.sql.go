package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const writeOffColumns = `id, write_off_type, reason, total_cost, shift_id,
	performed_by, created_at`

func scanWriteOff(row interface{ Scan(dest ...interface{}) error }) (WriteOff, error) {
	var w WriteOff
	err := row.Scan(
		&w.ID,
		&w.WriteOffType,
		&w.Reason,
		&w.TotalCost,
		&w.ShiftID,
		&w.PerformedBy,
		&w.CreatedAt,
	)
	return w, err
}

type CreateWriteOffParams struct {
	WriteOffType string
	Reason       string
	TotalCost    pgtype.Numeric
	ShiftID      pgtype.UUID
	PerformedBy  uuid.UUID
}

const createWriteOff = `
INSERT INTO write_offs (write_off_type, reason, total_cost, shift_id, performed_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + writeOffColumns

func (q *Queries) CreateWriteOff(ctx context.Context, arg CreateWriteOffParams) (WriteOff, error) {
	row := q.db.QueryRow(ctx, createWriteOff,
		arg.WriteOffType, arg.Reason, arg.TotalCost, arg.ShiftID, arg.PerformedBy)
	return scanWriteOff(row)
}

type CreateWriteOffItemParams struct {
	WriteOffID     uuid.UUID
	IngredientSlug string
	Quantity       pgtype.Numeric
	ItemCost       pgtype.Numeric
}

const createWriteOffItem = `
INSERT INTO write_off_items (write_off_id, ingredient_slug, quantity, item_cost)
VALUES ($1, $2, $3, $4)
RETURNING id, write_off_id, ingredient_slug, quantity, item_cost
`

func (q *Queries) CreateWriteOffItem(ctx context.Context, arg CreateWriteOffItemParams) (WriteOffItem, error) {
	row := q.db.QueryRow(ctx, createWriteOffItem,
		arg.WriteOffID, arg.IngredientSlug, arg.Quantity, arg.ItemCost)
	var i WriteOffItem
	err := row.Scan(&i.ID, &i.WriteOffID, &i.IngredientSlug, &i.Quantity, &i.ItemCost)
	return i, err
}

type SetWriteOffTotalCostParams struct {
	ID        uuid.UUID
	TotalCost pgtype.Numeric
}

const setWriteOffTotalCost = `
UPDATE write_offs SET total_cost = $2 WHERE id = $1
RETURNING ` + writeOffColumns

func (q *Queries) SetWriteOffTotalCost(ctx context.Context, arg SetWriteOffTotalCostParams) (WriteOff, error) {
	return scanWriteOff(q.db.QueryRow(ctx, setWriteOffTotalCost, arg.ID, arg.TotalCost))
}

const getWriteOff = `
SELECT ` + writeOffColumns + ` FROM write_offs WHERE id = $1
`

func (q *Queries) GetWriteOff(ctx context.Context, id uuid.UUID) (WriteOff, error) {
	return scanWriteOff(q.db.QueryRow(ctx, getWriteOff, id))
}

const listWriteOffItems = `
SELECT id, write_off_id, ingredient_slug, quantity, item_cost
FROM write_off_items WHERE write_off_id = $1 ORDER BY id
`

func (q *Queries) ListWriteOffItems(ctx context.Context, writeOffID uuid.UUID) ([]WriteOffItem, error) {
	rows, err := q.db.Query(ctx, listWriteOffItems, writeOffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WriteOffItem
	for rows.Next() {
		var i WriteOffItem
		if err := rows.Scan(&i.ID, &i.WriteOffID, &i.IngredientSlug, &i.Quantity, &i.ItemCost); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type ListWriteOffsParams struct {
	Limit  int32
	Offset int32
}

const listWriteOffs = `
SELECT ` + writeOffColumns + ` FROM write_offs ORDER BY created_at DESC LIMIT $1 OFFSET $2
`

func (q *Queries) ListWriteOffs(ctx context.Context, arg ListWriteOffsParams) ([]WriteOff, error) {
	rows, err := q.db.Query(ctx, listWriteOffs, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var writeOffs []WriteOff
	for rows.Next() {
		w, err := scanWriteOff(rows)
		if err != nil {
			return nil, err
		}
		writeOffs = append(writeOffs, w)
	}
	return writeOffs, rows.Err()
}

const listWriteOffsBetween = `
SELECT ` + writeOffColumns + `
FROM write_offs
WHERE created_at >= $1 AND created_at <= $2
ORDER BY created_at
`

func (q *Queries) ListWriteOffsBetween(ctx context.Context, start, end time.Time) ([]WriteOff, error) {
	rows, err := q.db.Query(ctx, listWriteOffsBetween, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var writeOffs []WriteOff
	for rows.Next() {
		w, err := scanWriteOff(rows)
		if err != nil {
			return nil, err
		}
		writeOffs = append(writeOffs, w)
	}
	return writeOffs, rows.Err()
}
