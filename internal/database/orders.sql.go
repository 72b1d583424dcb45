package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_seq, order_number, status, order_type, subtotal,
	discount_type, discount_value, discount_amount, total, shift_id,
	created_by, created_at, prepared_at, completed_at, updated_at`

func scanOrder(row interface{ Scan(dest ...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderSeq,
		&o.OrderNumber,
		&o.Status,
		&o.OrderType,
		&o.Subtotal,
		&o.DiscountType,
		&o.DiscountValue,
		&o.DiscountAmount,
		&o.Total,
		&o.ShiftID,
		&o.CreatedBy,
		&o.CreatedAt,
		&o.PreparedAt,
		&o.CompletedAt,
		&o.UpdatedAt,
	)
	return o, err
}

const getNextOrderSeq = `
SELECT COALESCE(MAX(order_seq), 0) + 1 FROM orders
`

// GetNextOrderSeq returns the next order sequence number. Concurrent
// transactions can read the same value; the unique constraint on
// order_seq surfaces the race and the caller retries.
func (q *Queries) GetNextOrderSeq(ctx context.Context) (int32, error) {
	var seq int32
	err := q.db.QueryRow(ctx, getNextOrderSeq).Scan(&seq)
	return seq, err
}

type CreateOrderParams struct {
	OrderSeq       int32
	OrderNumber    string
	Status         string
	OrderType      string
	Subtotal       pgtype.Numeric
	DiscountType   string
	DiscountValue  pgtype.Numeric
	DiscountAmount pgtype.Numeric
	Total          pgtype.Numeric
	ShiftID        pgtype.UUID
	CreatedBy      uuid.UUID
}

const createOrder = `
INSERT INTO orders (
	order_seq, order_number, status, order_type, subtotal,
	discount_type, discount_value, discount_amount, total, shift_id, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderSeq,
		arg.OrderNumber,
		arg.Status,
		arg.OrderType,
		arg.Subtotal,
		arg.DiscountType,
		arg.DiscountValue,
		arg.DiscountAmount,
		arg.Total,
		arg.ShiftID,
		arg.CreatedBy,
	)
	return scanOrder(row)
}

const getOrder = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE
`

// GetOrderForUpdate locks the order row to serialize concurrent status
// transitions against the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

type ListOrdersParams struct {
	Status    pgtype.Text
	OrderType pgtype.Text
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR order_type = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status, arg.OrderType, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID          uuid.UUID
	Status      string
	FromStatus  string
	PreparedAt  pgtype.Timestamptz
	CompletedAt pgtype.Timestamptz
}

const updateOrderStatus = `
UPDATE orders
SET status = $2,
    prepared_at = COALESCE($4, prepared_at),
    completed_at = COALESCE($5, completed_at),
    updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

// UpdateOrderStatus transitions an order only if it is still in FromStatus,
// so a concurrent transition between read and write comes back as ErrNoRows.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID, arg.Status, arg.FromStatus, arg.PreparedAt, arg.CompletedAt)
	return scanOrder(row)
}

const listOrdersByShift = `
SELECT ` + orderColumns + ` FROM orders WHERE shift_id = $1 ORDER BY created_at
`

func (q *Queries) ListOrdersByShift(ctx context.Context, shiftID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByShift, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type CreateOrderItemParams struct {
	OrderID           uuid.UUID
	ProductSlug       pgtype.Text
	LegacyProductCode pgtype.Int4
	ProductName       string
	SizeID            pgtype.Text
	Quantity          int32
	UnitPrice         pgtype.Numeric
	LineTotal         pgtype.Numeric
}

const createOrderItem = `
INSERT INTO order_items (
	order_id, product_slug, legacy_product_code, product_name, size_id,
	quantity, unit_price, line_total
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, order_id, product_slug, legacy_product_code, product_name,
	size_id, quantity, unit_price, line_total
`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductSlug,
		arg.LegacyProductCode,
		arg.ProductName,
		arg.SizeID,
		arg.Quantity,
		arg.UnitPrice,
		arg.LineTotal,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductSlug,
		&i.LegacyProductCode,
		&i.ProductName,
		&i.SizeID,
		&i.Quantity,
		&i.UnitPrice,
		&i.LineTotal,
	)
	return i, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_slug, legacy_product_code, product_name,
	size_id, quantity, unit_price, line_total
FROM order_items WHERE order_id = $1 ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.ProductSlug,
			&i.LegacyProductCode,
			&i.ProductName,
			&i.SizeID,
			&i.Quantity,
			&i.UnitPrice,
			&i.LineTotal,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type ListOrdersBetweenRow struct {
	ID            uuid.UUID
	Status        string
	OrderType     string
	Total         pgtype.Numeric
	ShiftID       pgtype.UUID
	CreatedAt     time.Time
	PaymentMethod pgtype.Text
}

const listOrdersBetween = `
SELECT o.id, o.status, o.order_type, o.total, o.shift_id, o.created_at, p.method
FROM orders o
LEFT JOIN payments p ON p.order_id = o.id
WHERE o.created_at >= $1 AND o.created_at <= $2
ORDER BY o.created_at
`

// ListOrdersBetween returns orders created in [start, end] joined with their
// payment method, for report aggregation.
func (q *Queries) ListOrdersBetween(ctx context.Context, start, end time.Time) ([]ListOrdersBetweenRow, error) {
	rows, err := q.db.Query(ctx, listOrdersBetween, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ListOrdersBetweenRow
	for rows.Next() {
		var r ListOrdersBetweenRow
		if err := rows.Scan(&r.ID, &r.Status, &r.OrderType, &r.Total, &r.ShiftID, &r.CreatedAt, &r.PaymentMethod); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type ListSoldItemsBetweenRow struct {
	ProductName string
	Quantity    int64
	LineTotal   pgtype.Numeric
}

const listSoldItemsBetween = `
SELECT oi.product_name, SUM(oi.quantity)::bigint AS quantity, SUM(oi.line_total) AS line_total
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.created_at >= $1 AND o.created_at <= $2 AND o.status <> 'cancelled'
GROUP BY oi.product_name
ORDER BY quantity DESC, oi.product_name
`

// ListSoldItemsBetween aggregates sold quantities per product name over
// non-cancelled orders in [start, end].
func (q *Queries) ListSoldItemsBetween(ctx context.Context, start, end time.Time) ([]ListSoldItemsBetweenRow, error) {
	rows, err := q.db.Query(ctx, listSoldItemsBetween, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ListSoldItemsBetweenRow
	for rows.Next() {
		var r ListSoldItemsBetweenRow
		if err := rows.Scan(&r.ProductName, &r.Quantity, &r.LineTotal); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
