package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreatePaymentParams struct {
	OrderID     uuid.UUID
	Method      string
	Amount      pgtype.Numeric
	Status      string
	ProcessedBy uuid.UUID
}

const createPayment = `
INSERT INTO payments (order_id, method, amount, status, processed_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, method, amount, status, processed_by, processed_at
`

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID, arg.Method, arg.Amount, arg.Status, arg.ProcessedBy)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status, &p.ProcessedBy, &p.ProcessedAt)
	return p, err
}

const getPaymentByOrder = `
SELECT id, order_id, method, amount, status, processed_by, processed_at
FROM payments WHERE order_id = $1
`

// GetPaymentByOrder returns the order's payment. The unique constraint on
// payments.order_id keeps this at most one row.
func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	row := q.db.QueryRow(ctx, getPaymentByOrder, orderID)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status, &p.ProcessedBy, &p.ProcessedAt)
	return p, err
}
