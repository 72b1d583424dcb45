package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateInventoryTransactionParams struct {
	IngredientID     uuid.UUID
	TransactionType  string
	Quantity         pgtype.Numeric
	PreviousQuantity pgtype.Numeric
	NewQuantity      pgtype.Numeric
	Reference        string
	ShiftID          pgtype.UUID
}

const createInventoryTransaction = `
INSERT INTO inventory_transactions (
	ingredient_id, transaction_type, quantity, previous_quantity,
	new_quantity, reference, shift_id
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, ingredient_id, transaction_type, quantity, previous_quantity,
	new_quantity, reference, shift_id, created_at
`

// CreateInventoryTransaction appends to the audit trail. Rows are never
// updated or deleted.
func (q *Queries) CreateInventoryTransaction(ctx context.Context, arg CreateInventoryTransactionParams) (InventoryTransaction, error) {
	row := q.db.QueryRow(ctx, createInventoryTransaction,
		arg.IngredientID,
		arg.TransactionType,
		arg.Quantity,
		arg.PreviousQuantity,
		arg.NewQuantity,
		arg.Reference,
		arg.ShiftID,
	)
	var t InventoryTransaction
	err := row.Scan(
		&t.ID,
		&t.IngredientID,
		&t.TransactionType,
		&t.Quantity,
		&t.PreviousQuantity,
		&t.NewQuantity,
		&t.Reference,
		&t.ShiftID,
		&t.CreatedAt,
	)
	return t, err
}

type ListInventoryTransactionsParams struct {
	IngredientID uuid.UUID
	Limit        int32
	Offset       int32
}

const listInventoryTransactionsByIngredient = `
SELECT id, ingredient_id, transaction_type, quantity, previous_quantity,
	new_quantity, reference, shift_id, created_at
FROM inventory_transactions
WHERE ingredient_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListInventoryTransactionsByIngredient(ctx context.Context, arg ListInventoryTransactionsParams) ([]InventoryTransaction, error) {
	rows, err := q.db.Query(ctx, listInventoryTransactionsByIngredient,
		arg.IngredientID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txns []InventoryTransaction
	for rows.Next() {
		var t InventoryTransaction
		if err := rows.Scan(
			&t.ID,
			&t.IngredientID,
			&t.TransactionType,
			&t.Quantity,
			&t.PreviousQuantity,
			&t.NewQuantity,
			&t.Reference,
			&t.ShiftID,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

type ShiftSalesSummaryRow struct {
	CashSales   pgtype.Numeric
	CardSales   pgtype.Numeric
	TotalSales  pgtype.Numeric
	OrdersCount int64
}

const getShiftSalesSummary = `
SELECT
	COALESCE(SUM(p.amount) FILTER (WHERE p.method = 'cash'), 0) AS cash_sales,
	COALESCE(SUM(p.amount) FILTER (WHERE p.method <> 'cash'), 0) AS card_sales,
	COALESCE(SUM(p.amount), 0) AS total_sales,
	COUNT(o.id) AS orders_count
FROM orders o
JOIN payments p ON p.order_id = o.id
WHERE o.shift_id = $1 AND o.status <> 'cancelled'
`

// GetShiftSalesSummary recomputes a shift's sales from its non-cancelled
// orders, independent of the running counters on the shift row.
func (q *Queries) GetShiftSalesSummary(ctx context.Context, shiftID uuid.UUID) (ShiftSalesSummaryRow, error) {
	row := q.db.QueryRow(ctx, getShiftSalesSummary, shiftID)
	var r ShiftSalesSummaryRow
	err := row.Scan(&r.CashSales, &r.CardSales, &r.TotalSales, &r.OrdersCount)
	return r, err
}

const sumWriteOffsBetween = `
SELECT COALESCE(SUM(total_cost), 0) FROM write_offs
WHERE created_at >= $1 AND created_at <= $2
`

func (q *Queries) SumWriteOffsBetween(ctx context.Context, start, end time.Time) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumWriteOffsBetween, start, end).Scan(&n)
	return n, err
}

const sumSuppliesBetween = `
SELECT COALESCE(SUM(total_cost), 0) FROM supplies
WHERE status = 'received' AND received_at >= $1 AND received_at <= $2
`

// SumSuppliesBetween totals supplies received inside the window; drafts and
// cancelled deliveries never count toward shift spend.
func (q *Queries) SumSuppliesBetween(ctx context.Context, start, end time.Time) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumSuppliesBetween, start, end).Scan(&n)
	return n, err
}
