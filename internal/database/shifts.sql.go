package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const shiftColumns = `id, status, opened_by, opened_at, closed_by, closed_at,
	opening_cash, closing_cash, notes, cash_sales, card_sales, total_sales,
	orders_count, write_offs_total, supplies_total`

func scanShift(row interface{ Scan(dest ...interface{}) error }) (Shift, error) {
	var s Shift
	err := row.Scan(
		&s.ID,
		&s.Status,
		&s.OpenedBy,
		&s.OpenedAt,
		&s.ClosedBy,
		&s.ClosedAt,
		&s.OpeningCash,
		&s.ClosingCash,
		&s.Notes,
		&s.CashSales,
		&s.CardSales,
		&s.TotalSales,
		&s.OrdersCount,
		&s.WriteOffsTotal,
		&s.SuppliesTotal,
	)
	return s, err
}

type CreateShiftParams struct {
	OpenedBy    uuid.UUID
	OpeningCash pgtype.Numeric
}

const createShift = `
INSERT INTO shifts (status, opened_by, opening_cash)
VALUES ('open', $1, $2)
RETURNING ` + shiftColumns

// CreateShift opens a new shift. The partial unique index on
// shifts(status) WHERE status = 'open' rejects a second open shift with a
// 23505 unique violation.
func (q *Queries) CreateShift(ctx context.Context, arg CreateShiftParams) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, createShift, arg.OpenedBy, arg.OpeningCash))
}

const getShift = `
SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1
`

func (q *Queries) GetShift(ctx context.Context, id uuid.UUID) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, getShift, id))
}

const getOpenShift = `
SELECT ` + shiftColumns + ` FROM shifts WHERE status = 'open' LIMIT 1
`

func (q *Queries) GetOpenShift(ctx context.Context) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, getOpenShift))
}

type CloseShiftParams struct {
	ID          uuid.UUID
	ClosedBy    uuid.UUID
	ClosingCash pgtype.Numeric
	Notes       pgtype.Text
}

const closeShift = `
UPDATE shifts
SET status = 'closed',
    closed_by = $2,
    closed_at = now(),
    closing_cash = $3,
    notes = COALESCE($4, notes)
WHERE id = $1 AND status = 'open'
RETURNING ` + shiftColumns

// CloseShift closes an open shift; ErrNoRows means the shift does not exist
// or is already closed.
func (q *Queries) CloseShift(ctx context.Context, arg CloseShiftParams) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, closeShift, arg.ID, arg.ClosedBy, arg.ClosingCash, arg.Notes))
}

type AddShiftSaleParams struct {
	ID         uuid.UUID
	Amount     pgtype.Numeric
	CashAmount pgtype.Numeric
	CardAmount pgtype.Numeric
}

const addShiftSale = `
UPDATE shifts
SET total_sales = total_sales + $2,
    cash_sales = cash_sales + $3,
    card_sales = card_sales + $4,
    orders_count = orders_count + 1
WHERE id = $1
RETURNING ` + shiftColumns

// AddShiftSale bumps the running sale counters with atomic in-place
// increments, so concurrent orders never clobber each other's totals.
func (q *Queries) AddShiftSale(ctx context.Context, arg AddShiftSaleParams) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, addShiftSale, arg.ID, arg.Amount, arg.CashAmount, arg.CardAmount))
}

type AddShiftAmountParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

const addShiftWriteOff = `
UPDATE shifts SET write_offs_total = write_offs_total + $2 WHERE id = $1
RETURNING ` + shiftColumns

func (q *Queries) AddShiftWriteOff(ctx context.Context, arg AddShiftAmountParams) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, addShiftWriteOff, arg.ID, arg.Amount))
}

const addShiftSupply = `
UPDATE shifts SET supplies_total = supplies_total + $2 WHERE id = $1
RETURNING ` + shiftColumns

func (q *Queries) AddShiftSupply(ctx context.Context, arg AddShiftAmountParams) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, addShiftSupply, arg.ID, arg.Amount))
}

type ListShiftsParams struct {
	Limit  int32
	Offset int32
}

const listShifts = `
SELECT ` + shiftColumns + ` FROM shifts ORDER BY opened_at DESC LIMIT $1 OFFSET $2
`

func (q *Queries) ListShifts(ctx context.Context, arg ListShiftsParams) ([]Shift, error) {
	rows, err := q.db.Query(ctx, listShifts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var shifts []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

const listShiftsTouchingWindow = `
SELECT ` + shiftColumns + `
FROM shifts
WHERE (opened_at >= $1 AND opened_at <= $2)
   OR (opened_at < $1 AND (closed_at IS NULL OR closed_at >= $1))
ORDER BY opened_at
`

// ListShiftsTouchingWindow returns shifts opened inside [start, end] plus
// carry-over shifts that opened earlier and were still open at start.
func (q *Queries) ListShiftsTouchingWindow(ctx context.Context, start, end time.Time) ([]Shift, error) {
	rows, err := q.db.Query(ctx, listShiftsTouchingWindow, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var shifts []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

type CreateShiftActivityParams struct {
	ShiftID      uuid.UUID
	ActivityType string
	Details      []byte
}

const createShiftActivity = `
INSERT INTO shift_activities (shift_id, activity_type, details)
VALUES ($1, $2, $3)
RETURNING id, shift_id, activity_type, details, created_at
`

func (q *Queries) CreateShiftActivity(ctx context.Context, arg CreateShiftActivityParams) (ShiftActivity, error) {
	row := q.db.QueryRow(ctx, createShiftActivity, arg.ShiftID, arg.ActivityType, arg.Details)
	var a ShiftActivity
	err := row.Scan(&a.ID, &a.ShiftID, &a.ActivityType, &a.Details, &a.CreatedAt)
	return a, err
}

const listShiftActivities = `
SELECT id, shift_id, activity_type, details, created_at
FROM shift_activities
WHERE shift_id = $1
ORDER BY created_at DESC, id DESC
`

// ListShiftActivities returns the shift's activity log newest-first.
func (q *Queries) ListShiftActivities(ctx context.Context, shiftID uuid.UUID) ([]ShiftActivity, error) {
	rows, err := q.db.Query(ctx, listShiftActivities, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var activities []ShiftActivity
	for rows.Next() {
		var a ShiftActivity
		if err := rows.Scan(&a.ID, &a.ShiftID, &a.ActivityType, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
