package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/enum"
)

// maxOrderSeqRetries bounds retries when concurrent order creations race on
// the same sequence number.
const maxOrderSeqRetries = 3

// OrderStore is the query surface for the order workflows.
type OrderStore interface {
	stockStore
	GetNextOrderSeq(ctx context.Context) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	GetOpenShift(ctx context.Context) (database.Shift, error)
	AddShiftSale(ctx context.Context, arg database.AddShiftSaleParams) (database.Shift, error)
	CreateShiftActivity(ctx context.Context, arg database.CreateShiftActivityParams) (database.ShiftActivity, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx), so the
// service can bind its store to the transaction it opened.
type NewOrderStore func(db database.DBTX) OrderStore

type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

type OrderItemInput struct {
	ProductSlug       string
	LegacyProductCode *int32
	ProductName       string
	SizeID            string
	Quantity          int32
	UnitPrice         decimal.Decimal
}

// PaymentInput carries the tendered payment. A nil Amount means the caller
// did not state one and the order total is charged; an explicit zero is kept.
type PaymentInput struct {
	Method string
	Amount *decimal.Decimal
}

type CreateOrderInput struct {
	OrderNumber   string // optional, generated from the sequence when empty
	OrderType     string
	DiscountType  string
	DiscountValue decimal.Decimal
	Items         []OrderItemInput
	Payment       *PaymentInput
	CreatedBy     uuid.UUID
}

type OrderResult struct {
	Order    database.Order
	Items    []database.OrderItem
	Payment  *database.Payment
	Warnings []StockWarning
}

// CreateOrder runs the whole checkout in one transaction: totals and
// discount math, order plus items plus optional payment, recipe-driven stock
// deduction, and the open shift's counters and activity log. Sequence-number
// races with concurrent checkouts are retried.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderResult, error) {
	if err := validateCreateOrder(input); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderSeqRetries; attempt++ {
		result, err := s.createOrderTx(ctx, input)
		if err != nil {
			if isUniqueViolation(err, "orders_order_seq_key") {
				lastErr = err
				continue
			}
			if isUniqueViolation(err, "orders_order_number_key") {
				return nil, &ValidationError{Fields: map[string]string{"order_number": "already exists"}}
			}
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("allocating order number: %w", lastErr)
}

func validateCreateOrder(input CreateOrderInput) error {
	fields := fieldErrors{}
	if !enum.ValidOrderType(input.OrderType) {
		fields.add("order_type", "must be one of dine_in, takeaway, delivery")
	}
	if !enum.ValidDiscountType(input.DiscountType) {
		fields.add("discount_type", "must be one of none, percentage, fixed")
	}
	if input.DiscountValue.IsNegative() {
		fields.add("discount_value", "must not be negative")
	}
	if len(input.Items) == 0 {
		fields.add("items", "at least one item is required")
	}
	for i, item := range input.Items {
		if item.ProductName == "" {
			fields.add(fmt.Sprintf("items[%d].product_name", i), "is required")
		}
		if item.Quantity < 1 {
			fields.add(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			fields.add(fmt.Sprintf("items[%d].unit_price", i), "must not be negative")
		}
	}
	if input.Payment != nil {
		if !enum.ValidPaymentMethod(input.Payment.Method) {
			fields.add("payment.method", "must be one of cash, card, qr, online, other")
		}
		if input.Payment.Amount != nil && input.Payment.Amount.IsNegative() {
			fields.add("payment.amount", "must not be negative")
		}
	}
	return fields.err()
}

func (s *OrderService) createOrderTx(ctx context.Context, input CreateOrderInput) (*OrderResult, error) {
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

	seq, err := store.GetNextOrderSeq(ctx)
	if err != nil {
		return nil, err
	}
	orderNumber := input.OrderNumber
	if orderNumber == "" {
		orderNumber = fmt.Sprintf("BRW-%03d", seq)
	}

	subtotal := decimal.Zero
	for _, item := range input.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)
	discountAmount := discountFor(input.DiscountType, input.DiscountValue, subtotal)
	total := subtotal.Sub(discountAmount)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderSeq:       seq,
		OrderNumber:    orderNumber,
		Status:         enum.OrderStatusPending,
		OrderType:      input.OrderType,
		Subtotal:       decimalToNumeric(subtotal),
		DiscountType:   input.DiscountType,
		DiscountValue:  decimalToNumeric(input.DiscountValue),
		DiscountAmount: decimalToNumeric(discountAmount),
		Total:          decimalToNumeric(total),
		ShiftID:        shiftID,
		CreatedBy:      input.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	items := make([]database.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		var legacyCode pgtype.Int4
		if item.LegacyProductCode != nil {
			legacyCode = pgtype.Int4{Int32: *item.LegacyProductCode, Valid: true}
		}
		created, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:           order.ID,
			ProductSlug:       pgtype.Text{String: item.ProductSlug, Valid: item.ProductSlug != ""},
			LegacyProductCode: legacyCode,
			ProductName:       item.ProductName,
			SizeID:            pgtype.Text{String: item.SizeID, Valid: item.SizeID != ""},
			Quantity:          item.Quantity,
			UnitPrice:         decimalToNumeric(item.UnitPrice),
			LineTotal:         decimalToNumeric(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)),
		})
		if err != nil {
			return nil, err
		}
		items = append(items, created)
	}

	var payment *database.Payment
	if input.Payment != nil {
		amount := total
		if input.Payment.Amount != nil {
			amount = *input.Payment.Amount
		}
		created, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:     order.ID,
			Method:      input.Payment.Method,
			Amount:      decimalToNumeric(amount),
			Status:      enum.PaymentStatusCompleted,
			ProcessedBy: input.CreatedBy,
		})
		if err != nil {
			return nil, err
		}
		payment = &created
	}

	warnings, err := deductOrderItems(ctx, store, items, order.ID.String(), shiftID)
	if err != nil {
		return nil, err
	}

	if shiftID.Valid && payment != nil {
		amount := numericToDecimal(payment.Amount)
		cash, card := decimal.Zero, decimal.Zero
		if payment.Method == enum.PaymentMethodCash {
			cash = amount
		} else {
			card = amount
		}
		if _, err := store.AddShiftSale(ctx, database.AddShiftSaleParams{
			ID:         shift.ID,
			Amount:     decimalToNumeric(amount),
			CashAmount: decimalToNumeric(cash),
			CardAmount: decimalToNumeric(card),
		}); err != nil {
			return nil, err
		}
		details, _ := json.Marshal(map[string]any{
			"order_id":       order.ID,
			"order_number":   order.OrderNumber,
			"total":          total,
			"payment_method": payment.Method,
		})
		if _, err := store.CreateShiftActivity(ctx, database.CreateShiftActivityParams{
			ShiftID:      shift.ID,
			ActivityType: enum.ActivityOrderCreate,
			Details:      details,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &OrderResult{Order: order, Items: items, Payment: payment, Warnings: warnings}, nil
}

// discountFor clamps the discount into range before applying it: percentage
// to [0, 100], fixed to [0, subtotal]. The result never exceeds the
// subtotal, so the total never goes negative.
func discountFor(discountType string, value, subtotal decimal.Decimal) decimal.Decimal {
	switch discountType {
	case enum.DiscountTypePercentage:
		pct := value
		if pct.IsNegative() {
			pct = decimal.Zero
		}
		if pct.GreaterThan(decimal.NewFromInt(100)) {
			pct = decimal.NewFromInt(100)
		}
		return subtotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	case enum.DiscountTypeFixed:
		amount := value
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		if amount.GreaterThan(subtotal) {
			amount = subtotal
		}
		return amount.Round(2)
	}
	return decimal.Zero
}

// UpdateOrderStatus moves an order through the status state machine. The
// order row is locked for the duration, and the conditional update guards
// against a transition that slipped in between read and write.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return database.Order{}, err
	}
	if !CanTransition(order.Status, newStatus) {
		return database.Order{}, &TransitionError{
			From:    order.Status,
			To:      newStatus,
			Allowed: AllowedTransitions(order.Status),
		}
	}

	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	params := database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     newStatus,
		FromStatus: order.Status,
	}
	switch TimestampField(newStatus) {
	case "prepared_at":
		params.PreparedAt = now
	case "completed_at":
		params.CompletedAt = now
	}

	updated, err := store.UpdateOrderStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderStatusChanged
		}
		return database.Order{}, err
	}

	if updated.ShiftID.Valid {
		details, _ := json.Marshal(map[string]any{
			"order_id":     updated.ID,
			"order_number": updated.OrderNumber,
			"from":         order.Status,
			"to":           newStatus,
		})
		if _, err := store.CreateShiftActivity(ctx, database.CreateShiftActivityParams{
			ShiftID:      uuid.UUID(updated.ShiftID.Bytes),
			ActivityType: enum.ActivityOrderStatus,
			Details:      details,
		}); err != nil {
			return database.Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, err
	}
	return updated, nil
}
