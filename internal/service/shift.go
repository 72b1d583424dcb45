package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/enum"
)

// ShiftStore is the query surface for opening and closing shifts.
type ShiftStore interface {
	CreateShift(ctx context.Context, arg database.CreateShiftParams) (database.Shift, error)
	GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	CloseShift(ctx context.Context, arg database.CloseShiftParams) (database.Shift, error)
	CreateShiftActivity(ctx context.Context, arg database.CreateShiftActivityParams) (database.ShiftActivity, error)
}

// NewShiftStore creates a ShiftStore from a DBTX (pool or tx).
type NewShiftStore func(db database.DBTX) ShiftStore

type ShiftService struct {
	pool     TxBeginner
	newStore NewShiftStore
}

func NewShiftService(pool TxBeginner, newStore NewShiftStore) *ShiftService {
	return &ShiftService{pool: pool, newStore: newStore}
}

type OpenShiftInput struct {
	OpenedBy    uuid.UUID
	OpeningCash decimal.Decimal
}

// Open starts a new shift. The partial unique index on open shifts turns a
// concurrent second open into ErrShiftAlreadyOpen.
func (s *ShiftService) Open(ctx context.Context, input OpenShiftInput) (database.Shift, error) {
	fields := fieldErrors{}
	if input.OpeningCash.IsNegative() {
		fields.add("opening_cash", "must not be negative")
	}
	if err := fields.err(); err != nil {
		return database.Shift{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Shift{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	store := s.newStore(tx)

	shift, err := store.CreateShift(ctx, database.CreateShiftParams{
		OpenedBy:    input.OpenedBy,
		OpeningCash: decimalToNumeric(input.OpeningCash.Round(2)),
	})
	if err != nil {
		if isUniqueViolation(err, "shifts_single_open_idx") {
			return database.Shift{}, ErrShiftAlreadyOpen
		}
		return database.Shift{}, err
	}

	details, _ := json.Marshal(map[string]any{
		"opened_by":    input.OpenedBy,
		"opening_cash": input.OpeningCash.Round(2),
	})
	if _, err := store.CreateShiftActivity(ctx, database.CreateShiftActivityParams{
		ShiftID:      shift.ID,
		ActivityType: enum.ActivityShiftOpen,
		Details:      details,
	}); err != nil {
		return database.Shift{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Shift{}, err
	}
	return shift, nil
}

type CloseShiftInput struct {
	ShiftID     uuid.UUID
	ClosedBy    uuid.UUID
	ClosingCash decimal.Decimal
	Notes       string
}

// Close closes an open shift and logs its final totals. Closing a shift
// that is already closed returns ErrShiftAlreadyClosed.
func (s *ShiftService) Close(ctx context.Context, input CloseShiftInput) (database.Shift, error) {
	fields := fieldErrors{}
	if input.ClosingCash.IsNegative() {
		fields.add("closing_cash", "must not be negative")
	}
	if err := fields.err(); err != nil {
		return database.Shift{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Shift{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	store := s.newStore(tx)

	notes := pgtype.Text{String: input.Notes, Valid: input.Notes != ""}
	shift, err := store.CloseShift(ctx, database.CloseShiftParams{
		ID:          input.ShiftID,
		ClosedBy:    input.ClosedBy,
		ClosingCash: decimalToNumeric(input.ClosingCash.Round(2)),
		Notes:       notes,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish missing from already closed.
			if _, getErr := store.GetShift(ctx, input.ShiftID); getErr != nil {
				return database.Shift{}, getErr
			}
			return database.Shift{}, ErrShiftAlreadyClosed
		}
		return database.Shift{}, err
	}

	expectedCash := numericToDecimal(shift.OpeningCash).Add(numericToDecimal(shift.CashSales))
	details, _ := json.Marshal(map[string]any{
		"closed_by":       input.ClosedBy,
		"closing_cash":    input.ClosingCash.Round(2),
		"expected_cash":   expectedCash,
		"cash_difference": input.ClosingCash.Round(2).Sub(expectedCash),
		"total_sales":     numericToDecimal(shift.TotalSales),
		"orders_count":    shift.OrdersCount,
	})
	if _, err := store.CreateShiftActivity(ctx, database.CreateShiftActivityParams{
		ShiftID:      shift.ID,
		ActivityType: enum.ActivityShiftClose,
		Details:      details,
	}); err != nil {
		return database.Shift{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Shift{}, err
	}
	return shift, nil
}
