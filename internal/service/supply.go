package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/enum"
)

// InventoryStore is the query surface for supply and write-off workflows.
type InventoryStore interface {
	stockStore
	CreateSupply(ctx context.Context, arg database.CreateSupplyParams) (database.Supply, error)
	CreateSupplyItem(ctx context.Context, arg database.CreateSupplyItemParams) (database.SupplyItem, error)
	GetSupply(ctx context.Context, id uuid.UUID) (database.Supply, error)
	GetSupplyForUpdate(ctx context.Context, id uuid.UUID) (database.Supply, error)
	ListSupplyItems(ctx context.Context, supplyID uuid.UUID) ([]database.SupplyItem, error)
	MarkSupplyReceived(ctx context.Context, arg database.MarkSupplyReceivedParams) (database.Supply, error)
	CancelSupply(ctx context.Context, id uuid.UUID) (database.Supply, error)
	CreateWriteOff(ctx context.Context, arg database.CreateWriteOffParams) (database.WriteOff, error)
	CreateWriteOffItem(ctx context.Context, arg database.CreateWriteOffItemParams) (database.WriteOffItem, error)
	SetWriteOffTotalCost(ctx context.Context, arg database.SetWriteOffTotalCostParams) (database.WriteOff, error)
	GetOpenShift(ctx context.Context) (database.Shift, error)
	AddShiftSupply(ctx context.Context, arg database.AddShiftAmountParams) (database.Shift, error)
	AddShiftWriteOff(ctx context.Context, arg database.AddShiftAmountParams) (database.Shift, error)
	CreateShiftActivity(ctx context.Context, arg database.CreateShiftActivityParams) (database.ShiftActivity, error)
}

// NewInventoryStore creates an InventoryStore from a DBTX (pool or tx).
type NewInventoryStore func(db database.DBTX) InventoryStore

type InventoryService struct {
	pool     TxBeginner
	newStore NewInventoryStore
}

func NewInventoryService(pool TxBeginner, newStore NewInventoryStore) *InventoryService {
	return &InventoryService{pool: pool, newStore: newStore}
}

type SupplyItemInput struct {
	IngredientSlug string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
}

type CreateSupplyInput struct {
	SupplierName string
	Notes        string
	Items        []SupplyItemInput
	CreatedBy    uuid.UUID
}

type SupplyResult struct {
	Supply   database.Supply
	Items    []database.SupplyItem
	Warnings []StockWarning
}

// CreateSupply records a draft delivery. Stock is untouched until the draft
// is received.
func (s *InventoryService) CreateSupply(ctx context.Context, input CreateSupplyInput) (*SupplyResult, error) {
	fields := fieldErrors{}
	if input.SupplierName == "" {
		fields.add("supplier_name", "is required")
	}
	if len(input.Items) == 0 {
		fields.add("items", "at least one item is required")
	}
	totalCost := decimal.Zero
	for i, item := range input.Items {
		if item.IngredientSlug == "" {
			fields.add(fmt.Sprintf("items[%d].ingredient_slug", i), "is required")
		}
		if item.Quantity.IsNegative() {
			fields.add(fmt.Sprintf("items[%d].quantity", i), "must not be negative")
		}
		if item.UnitCost.IsNegative() {
			fields.add(fmt.Sprintf("items[%d].unit_cost", i), "must not be negative")
		}
		totalCost = totalCost.Add(item.Quantity.Mul(item.UnitCost))
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	store := s.newStore(tx)

	notes := pgtype.Text{String: input.Notes, Valid: input.Notes != ""}
	supply, err := store.CreateSupply(ctx, database.CreateSupplyParams{
		SupplierName: input.SupplierName,
		TotalCost:    decimalToNumeric(totalCost.Round(2)),
		Notes:        notes,
		CreatedBy:    input.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	items := make([]database.SupplyItem, 0, len(input.Items))
	for _, item := range input.Items {
		created, err := store.CreateSupplyItem(ctx, database.CreateSupplyItemParams{
			SupplyID:       supply.ID,
			IngredientSlug: item.IngredientSlug,
			Quantity:       decimalToNumeric(item.Quantity),
			UnitCost:       decimalToNumeric(item.UnitCost),
		})
		if err != nil {
			return nil, err
		}
		items = append(items, created)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &SupplyResult{Supply: supply, Items: items, Warnings: []StockWarning{}}, nil
}

// ReceiveSupply moves a draft to received: stock goes up per line item, the
// total cost is recomputed from the items, and an open shift (if any) gets
// the spend on its counters and activity log.
func (s *InventoryService) ReceiveSupply(ctx context.Context, supplyID, receivedBy uuid.UUID) (*SupplyResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	store := s.newStore(tx)

	supply, err := store.GetSupplyForUpdate(ctx, supplyID)
	if err != nil {
		return nil, err
	}
	if supply.Status != enum.SupplyStatusDraft {
		return nil, ErrSupplyNotDraft
	}

	items, err := store.ListSupplyItems(ctx, supplyID)
	if err != nil {
		return nil, err
	}

	shiftID, shift, err := openShiftID(ctx, store.GetOpenShift)
	if err != nil {
		return nil, err
	}

	totalCost, warnings, err := applySupplyItems(ctx, store, items, supplyID.String(), shiftID)
	if err != nil {
		return nil, err
	}

	supply, err = store.MarkSupplyReceived(ctx, database.MarkSupplyReceivedParams{
		ID:         supplyID,
		ReceivedBy: receivedBy,
		TotalCost:  decimalToNumeric(totalCost.Round(2)),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplyNotDraft
		}
		return nil, err
	}

	if shiftID.Valid {
		if _, err := store.AddShiftSupply(ctx, database.AddShiftAmountParams{
			ID:     shift.ID,
			Amount: decimalToNumeric(totalCost.Round(2)),
		}); err != nil {
			return nil, err
		}
		details, _ := json.Marshal(map[string]any{
			"supply_id":     supply.ID,
			"supplier_name": supply.SupplierName,
			"total_cost":    totalCost.Round(2),
		})
		if _, err := store.CreateShiftActivity(ctx, database.CreateShiftActivityParams{
			ShiftID:      shift.ID,
			ActivityType: enum.ActivitySupplyReceive,
			Details:      details,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &SupplyResult{Supply: supply, Items: items, Warnings: warnings}, nil
}

// CancelSupply cancels a draft delivery. Received supplies cannot be
// cancelled.
func (s *InventoryService) CancelSupply(ctx context.Context, supplyID uuid.UUID) (database.Supply, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Supply{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	store := s.newStore(tx)

	supply, err := store.CancelSupply(ctx, supplyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish missing from non-draft.
			if _, getErr := store.GetSupply(ctx, supplyID); getErr != nil {
				return database.Supply{}, getErr
			}
			return database.Supply{}, ErrSupplyNotDraft
		}
		return database.Supply{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return database.Supply{}, err
	}
	return supply, nil
}

type WriteOffItemInput struct {
	IngredientSlug string
	Quantity       decimal.Decimal
}

type CreateWriteOffInput struct {
	WriteOffType string
	Reason       string
	Items        []WriteOffItemInput
	PerformedBy  uuid.UUID
}

type WriteOffResult struct {
	WriteOff database.WriteOff
	Items    []database.WriteOffItem
	Warnings []StockWarning
}

// CreateWriteOff deducts the listed ingredients from stock, values each line
// at the ingredient's current cost per unit and links the loss to the open
// shift when one exists.
func (s *InventoryService) CreateWriteOff(ctx context.Context, input CreateWriteOffInput) (*WriteOffResult, error) {
	fields := fieldErrors{}
	if !enum.ValidWriteOffType(input.WriteOffType) {
		fields.add("write_off_type", "must be one of spoilage, breakage, expired, other")
	}
	if input.Reason == "" {
		fields.add("reason", "is required")
	}
	if len(input.Items) == 0 {
		fields.add("items", "at least one item is required")
	}
	for i, item := range input.Items {
		if item.IngredientSlug == "" {
			fields.add(fmt.Sprintf("items[%d].ingredient_slug", i), "is required")
		}
		if !item.Quantity.IsPositive() {
			fields.add(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	store := s.newStore(tx)

	shiftID, shift, err := openShiftID(ctx, store.GetOpenShift)
	if err != nil {
		return nil, err
	}

	writeOff, err := store.CreateWriteOff(ctx, database.CreateWriteOffParams{
		WriteOffType: input.WriteOffType,
		Reason:       input.Reason,
		TotalCost:    decimalToNumeric(decimal.Zero),
		ShiftID:      shiftID,
		PerformedBy:  input.PerformedBy,
	})
	if err != nil {
		return nil, err
	}

	lines, warnings, totalCost, err := applyWriteOffItems(ctx, store, input.Items, writeOff.ID.String(), shiftID)
	if err != nil {
		return nil, err
	}

	items := make([]database.WriteOffItem, 0, len(lines))
	for _, line := range lines {
		created, err := store.CreateWriteOffItem(ctx, database.CreateWriteOffItemParams{
			WriteOffID:     writeOff.ID,
			IngredientSlug: line.IngredientSlug,
			Quantity:       decimalToNumeric(line.Quantity),
			ItemCost:       decimalToNumeric(line.Cost),
		})
		if err != nil {
			return nil, err
		}
		items = append(items, created)
	}

	writeOff, err = store.SetWriteOffTotalCost(ctx, database.SetWriteOffTotalCostParams{
		ID:        writeOff.ID,
		TotalCost: decimalToNumeric(totalCost.Round(2)),
	})
	if err != nil {
		return nil, err
	}

	if shiftID.Valid {
		if _, err := store.AddShiftWriteOff(ctx, database.AddShiftAmountParams{
			ID:     shift.ID,
			Amount: decimalToNumeric(totalCost.Round(2)),
		}); err != nil {
			return nil, err
		}
		details, _ := json.Marshal(map[string]any{
			"write_off_id":   writeOff.ID,
			"write_off_type": writeOff.WriteOffType,
			"total_cost":     totalCost.Round(2),
		})
		if _, err := store.CreateShiftActivity(ctx, database.CreateShiftActivityParams{
			ShiftID:      shift.ID,
			ActivityType: enum.ActivityWriteOffCreate,
			Details:      details,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &WriteOffResult{WriteOff: writeOff, Items: items, Warnings: warnings}, nil
}

// openShiftID looks up the open shift, tolerating its absence. Orders,
// supplies and write-offs can happen outside a shift; they just go unlinked.
func openShiftID(ctx context.Context, getOpenShift func(context.Context) (database.Shift, error)) (pgtype.UUID, database.Shift, error) {
	shift, err := getOpenShift(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgtype.UUID{}, database.Shift{}, nil
		}
		return pgtype.UUID{}, database.Shift{}, err
	}
	return pgtype.UUID{Bytes: shift.ID, Valid: true}, shift, nil
}
