package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// stockFuncs implements stockStore with configurable behavior. Unset lookup
// functions behave like empty tables.
type stockFuncs struct {
	getProductBySlugFn      func(ctx context.Context, slug string) (database.Product, error)
	getProductByLegacyFn    func(ctx context.Context, code int32) (database.Product, error)
	listRecipesFn           func(ctx context.Context, productID uuid.UUID) ([]database.Recipe, error)
	listRecipeIngredientsFn func(ctx context.Context, recipeID uuid.UUID) ([]database.RecipeIngredient, error)
	getIngredientBySlugFn   func(ctx context.Context, slug string) (database.Ingredient, error)
	getIngredientByLegacyFn func(ctx context.Context, code int32) (database.Ingredient, error)
	setIngredientQuantityFn func(ctx context.Context, arg database.SetIngredientQuantityParams) (database.Ingredient, error)
	createInventoryTxnFn    func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error)
}

func (m *stockFuncs) GetProductBySlug(ctx context.Context, slug string) (database.Product, error) {
	if m.getProductBySlugFn == nil {
		return database.Product{}, pgx.ErrNoRows
	}
	return m.getProductBySlugFn(ctx, slug)
}
func (m *stockFuncs) GetProductByLegacyCode(ctx context.Context, code int32) (database.Product, error) {
	if m.getProductByLegacyFn == nil {
		return database.Product{}, pgx.ErrNoRows
	}
	return m.getProductByLegacyFn(ctx, code)
}
func (m *stockFuncs) ListRecipesByProduct(ctx context.Context, productID uuid.UUID) ([]database.Recipe, error) {
	if m.listRecipesFn == nil {
		return nil, nil
	}
	return m.listRecipesFn(ctx, productID)
}
func (m *stockFuncs) ListRecipeIngredients(ctx context.Context, recipeID uuid.UUID) ([]database.RecipeIngredient, error) {
	if m.listRecipeIngredientsFn == nil {
		return nil, nil
	}
	return m.listRecipeIngredientsFn(ctx, recipeID)
}
func (m *stockFuncs) GetIngredientBySlugForUpdate(ctx context.Context, slug string) (database.Ingredient, error) {
	if m.getIngredientBySlugFn == nil {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return m.getIngredientBySlugFn(ctx, slug)
}
func (m *stockFuncs) GetIngredientByLegacyCodeForUpdate(ctx context.Context, code int32) (database.Ingredient, error) {
	if m.getIngredientByLegacyFn == nil {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return m.getIngredientByLegacyFn(ctx, code)
}
func (m *stockFuncs) SetIngredientQuantity(ctx context.Context, arg database.SetIngredientQuantityParams) (database.Ingredient, error) {
	if m.setIngredientQuantityFn == nil {
		return database.Ingredient{ID: arg.ID, Quantity: arg.Quantity}, nil
	}
	return m.setIngredientQuantityFn(ctx, arg)
}
func (m *stockFuncs) CreateInventoryTransaction(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
	if m.createInventoryTxnFn == nil {
		return database.InventoryTransaction{ID: uuid.New(), IngredientID: arg.IngredientID}, nil
	}
	return m.createInventoryTxnFn(ctx, arg)
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	stockFuncs
	getNextOrderSeqFn     func(ctx context.Context) (int32, error)
	createOrderFn         func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn     func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	createPaymentFn       func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	getOrderForUpdateFn   func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateOrderStatusFn   func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	getOpenShiftFn        func(ctx context.Context) (database.Shift, error)
	addShiftSaleFn        func(ctx context.Context, arg database.AddShiftSaleParams) (database.Shift, error)
	createShiftActivityFn func(ctx context.Context, arg database.CreateShiftActivityParams) (database.ShiftActivity, error)
}

func (m *mockOrderStore) GetNextOrderSeq(ctx context.Context) (int32, error) {
	if m.getNextOrderSeqFn == nil {
		return 1, nil
	}
	return m.getNextOrderSeqFn(ctx)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	return m.createPaymentFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) GetOpenShift(ctx context.Context) (database.Shift, error) {
	if m.getOpenShiftFn == nil {
		return database.Shift{}, pgx.ErrNoRows
	}
	return m.getOpenShiftFn(ctx)
}
func (m *mockOrderStore) AddShiftSale(ctx context.Context, arg database.AddShiftSaleParams) (database.Shift, error) {
	if m.addShiftSaleFn == nil {
		return database.Shift{ID: arg.ID}, nil
	}
	return m.addShiftSaleFn(ctx, arg)
}
func (m *mockOrderStore) CreateShiftActivity(ctx context.Context, arg database.CreateShiftActivityParams) (database.ShiftActivity, error) {
	if m.createShiftActivityFn == nil {
		return database.ShiftActivity{ID: uuid.New(), ShiftID: arg.ShiftID, ActivityType: arg.ActivityType}, nil
	}
	return m.createShiftActivityFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func newTestOrderService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), tx
}

// defaultOrderStore echoes create params back so tests can assert on what
// the service computed. Individual tests override what they care about.
func defaultOrderStore() *mockOrderStore {
	return &mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:             uuid.New(),
				OrderSeq:       arg.OrderSeq,
				OrderNumber:    arg.OrderNumber,
				Status:         arg.Status,
				OrderType:      arg.OrderType,
				Subtotal:       arg.Subtotal,
				DiscountType:   arg.DiscountType,
				DiscountValue:  arg.DiscountValue,
				DiscountAmount: arg.DiscountAmount,
				Total:          arg.Total,
				ShiftID:        arg.ShiftID,
				CreatedBy:      arg.CreatedBy,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:                uuid.New(),
				OrderID:           arg.OrderID,
				ProductSlug:       arg.ProductSlug,
				LegacyProductCode: arg.LegacyProductCode,
				ProductName:       arg.ProductName,
				SizeID:            arg.SizeID,
				Quantity:          arg.Quantity,
				UnitPrice:         arg.UnitPrice,
				LineTotal:         arg.LineTotal,
			}, nil
		},
		createPaymentFn: func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
			return database.Payment{
				ID:          uuid.New(),
				OrderID:     arg.OrderID,
				Method:      arg.Method,
				Amount:      arg.Amount,
				Status:      arg.Status,
				ProcessedBy: arg.ProcessedBy,
			}, nil
		},
	}
}

func basicOrderInput() CreateOrderInput {
	return CreateOrderInput{
		OrderType: enum.OrderTypeDineIn,
		DiscountType: enum.DiscountTypeNone,
		CreatedBy:    uuid.New(),
		Items: []OrderItemInput{
			{ProductName: "Latte", Quantity: 2, UnitPrice: decimal.RequireFromString("4.50")},
		},
	}
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc, _ := newTestOrderService(defaultOrderStore())

	input := basicOrderInput()
	input.Items = nil
	_, err := svc.CreateOrder(context.Background(), input)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if _, ok := verr.Fields["items"]; !ok {
		t.Errorf("expected items field error, got: %v", verr.Fields)
	}
}

func TestCreateOrder_InvalidOrderType(t *testing.T) {
	svc, _ := newTestOrderService(defaultOrderStore())

	input := basicOrderInput()
	input.OrderType = "DRIVE_THRU"
	_, err := svc.CreateOrder(context.Background(), input)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if _, ok := verr.Fields["order_type"]; !ok {
		t.Errorf("expected order_type field error, got: %v", verr.Fields)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	svc, _ := newTestOrderService(defaultOrderStore())

	input := basicOrderInput()
	input.Items[0].Quantity = 0
	_, err := svc.CreateOrder(context.Background(), input)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if _, ok := verr.Fields["items[0].quantity"]; !ok {
		t.Errorf("expected items[0].quantity field error, got: %v", verr.Fields)
	}
}

func TestCreateOrder_InvalidPaymentMethod(t *testing.T) {
	svc, _ := newTestOrderService(defaultOrderStore())

	input := basicOrderInput()
	input.Payment = &PaymentInput{Method: "barter"}
	_, err := svc.CreateOrder(context.Background(), input)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if _, ok := verr.Fields["payment.method"]; !ok {
		t.Errorf("expected payment.method field error, got: %v", verr.Fields)
	}
}

// =====================
// Price and discount tests
// =====================

func TestCreateOrder_SubtotalAndTotal(t *testing.T) {
	store := defaultOrderStore()
	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput() // 4.50 * 2 = 9.00
	_, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !numericEquals(captured.Subtotal, "9.00") {
		t.Errorf("subtotal: got %v, want 9.00", numericToDecimal(captured.Subtotal))
	}
	if !numericEquals(captured.Total, "9.00") {
		t.Errorf("total: got %v, want 9.00", numericToDecimal(captured.Total))
	}
	if captured.Status != enum.OrderStatusPending {
		t.Errorf("status: got %v, want pending", captured.Status)
	}
}

func TestCreateOrder_PercentageDiscount(t *testing.T) {
	store := defaultOrderStore()
	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput() // subtotal 9.00
	input.DiscountType = enum.DiscountTypePercentage
	input.DiscountValue = decimal.RequireFromString("10")
	_, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !numericEquals(captured.DiscountAmount, "0.90") {
		t.Errorf("discount_amount: got %v, want 0.90", numericToDecimal(captured.DiscountAmount))
	}
	if !numericEquals(captured.Total, "8.10") {
		t.Errorf("total: got %v, want 8.10", numericToDecimal(captured.Total))
	}
}

func TestCreateOrder_PercentageDiscountClamped(t *testing.T) {
	store := defaultOrderStore()
	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput()
	input.DiscountType = enum.DiscountTypePercentage
	input.DiscountValue = decimal.RequireFromString("150") // over 100%
	_, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// clamped to 100%: discount = subtotal, total = 0
	if !numericEquals(captured.DiscountAmount, "9.00") {
		t.Errorf("discount_amount: got %v, want 9.00", numericToDecimal(captured.DiscountAmount))
	}
	if !numericEquals(captured.Total, "0.00") {
		t.Errorf("total: got %v, want 0.00", numericToDecimal(captured.Total))
	}
}

func TestCreateOrder_FixedDiscountClamped(t *testing.T) {
	store := defaultOrderStore()
	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput()
	input.DiscountType = enum.DiscountTypeFixed
	input.DiscountValue = decimal.RequireFromString("999") // way more than subtotal
	_, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !numericEquals(captured.DiscountAmount, "9.00") {
		t.Errorf("discount_amount: got %v, want 9.00", numericToDecimal(captured.DiscountAmount))
	}
	if !numericEquals(captured.Total, "0.00") {
		t.Errorf("total: got %v, want 0.00", numericToDecimal(captured.Total))
	}
}

func TestDiscountFor(t *testing.T) {
	subtotal := decimal.RequireFromString("50.00")
	tests := []struct {
		name         string
		discountType string
		value        string
		want         string
	}{
		{"none", enum.DiscountTypeNone, "10", "0"},
		{"percentage", enum.DiscountTypePercentage, "20", "10.00"},
		{"percentage negative", enum.DiscountTypePercentage, "-5", "0.00"},
		{"percentage over 100", enum.DiscountTypePercentage, "120", "50.00"},
		{"fixed", enum.DiscountTypeFixed, "12.50", "12.50"},
		{"fixed negative", enum.DiscountTypeFixed, "-3", "0.00"},
		{"fixed over subtotal", enum.DiscountTypeFixed, "80", "50.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := discountFor(tt.discountType, decimal.RequireFromString(tt.value), subtotal)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("discountFor(%s, %s) = %v, want %v", tt.discountType, tt.value, got, tt.want)
			}
		})
	}
}

// =====================
// Order number tests
// =====================

func TestCreateOrder_GeneratedOrderNumber(t *testing.T) {
	store := defaultOrderStore()
	store.getNextOrderSeqFn = func(ctx context.Context) (int32, error) { return 7, nil }

	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestOrderService(store)
	result, err := svc.CreateOrder(context.Background(), basicOrderInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.OrderNumber != "BRW-007" {
		t.Errorf("order number: got %v, want BRW-007", captured.OrderNumber)
	}
	if result.Order.OrderNumber != "BRW-007" {
		t.Errorf("result order number: got %v, want BRW-007", result.Order.OrderNumber)
	}
}

func TestCreateOrder_ClientOrderNumberKept(t *testing.T) {
	store := defaultOrderStore()
	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput()
	input.OrderNumber = "TAB-12"
	if _, err := svc.CreateOrder(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.OrderNumber != "TAB-12" {
		t.Errorf("order number: got %v, want TAB-12", captured.OrderNumber)
	}
}

func TestCreateOrder_RetryOnSeqConflict(t *testing.T) {
	store := defaultOrderStore()

	seqCalls := 0
	store.getNextOrderSeqFn = func(ctx context.Context) (int32, error) {
		seqCalls++
		return int32(seqCalls), nil
	}

	createCalls := 0
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		createCalls++
		if createCalls == 1 {
			return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_seq_key"}
		}
		return inner(ctx, arg)
	}

	svc, _ := newTestOrderService(store)
	result, err := svc.CreateOrder(context.Background(), basicOrderInput())
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if createCalls != 2 {
		t.Errorf("expected 2 CreateOrder calls (1 fail + 1 success), got %d", createCalls)
	}
	if seqCalls != 2 {
		t.Errorf("expected 2 GetNextOrderSeq calls, got %d", seqCalls)
	}
}

func TestCreateOrder_RetryExhausted(t *testing.T) {
	store := defaultOrderStore()
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_seq_key"}
	}

	svc, _ := newTestOrderService(store)
	_, err := svc.CreateOrder(context.Background(), basicOrderInput())
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if !strings.Contains(err.Error(), "allocating order number") {
		t.Errorf("expected allocation error, got: %v", err)
	}
}

func TestCreateOrder_DuplicateClientOrderNumber(t *testing.T) {
	store := defaultOrderStore()
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput()
	input.OrderNumber = "TAB-12"
	_, err := svc.CreateOrder(context.Background(), input)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if _, ok := verr.Fields["order_number"]; !ok {
		t.Errorf("expected order_number field error, got: %v", verr.Fields)
	}
}

// =====================
// Shift linkage tests
// =====================

func TestCreateOrder_CashSaleUpdatesShift(t *testing.T) {
	store := defaultOrderStore()
	shiftID := uuid.New()
	store.getOpenShiftFn = func(ctx context.Context) (database.Shift, error) {
		return database.Shift{ID: shiftID, Status: enum.ShiftStatusOpen}, nil
	}

	var capturedSale database.AddShiftSaleParams
	store.addShiftSaleFn = func(ctx context.Context, arg database.AddShiftSaleParams) (database.Shift, error) {
		capturedSale = arg
		return database.Shift{ID: arg.ID}, nil
	}
	var activityTypes []string
	store.createShiftActivityFn = func(ctx context.Context, arg database.CreateShiftActivityParams) (database.ShiftActivity, error) {
		activityTypes = append(activityTypes, arg.ActivityType)
		return database.ShiftActivity{ID: uuid.New()}, nil
	}

	svc, tx := newTestOrderService(store)
	input := basicOrderInput() // total 9.00
	input.Payment = &PaymentInput{Method: enum.PaymentMethodCash, Amount: decimalPtr("9.00")}
	result, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if capturedSale.ID != shiftID {
		t.Errorf("sale shift: got %v, want %v", capturedSale.ID, shiftID)
	}
	if !numericEquals(capturedSale.Amount, "9.00") || !numericEquals(capturedSale.CashAmount, "9.00") || !numericEquals(capturedSale.CardAmount, "0") {
		t.Errorf("cash split wrong: amount=%v cash=%v card=%v",
			numericToDecimal(capturedSale.Amount), numericToDecimal(capturedSale.CashAmount), numericToDecimal(capturedSale.CardAmount))
	}
	if len(activityTypes) != 1 || activityTypes[0] != enum.ActivityOrderCreate {
		t.Errorf("expected one order_create activity, got %v", activityTypes)
	}
	if !result.Order.ShiftID.Valid {
		t.Error("order should be linked to the open shift")
	}
	if !tx.committed {
		t.Error("transaction should be committed")
	}
}

func TestCreateOrder_CardPaymentGoesToCardBucket(t *testing.T) {
	store := defaultOrderStore()
	store.getOpenShiftFn = func(ctx context.Context) (database.Shift, error) {
		return database.Shift{ID: uuid.New(), Status: enum.ShiftStatusOpen}, nil
	}
	var capturedSale database.AddShiftSaleParams
	store.addShiftSaleFn = func(ctx context.Context, arg database.AddShiftSaleParams) (database.Shift, error) {
		capturedSale = arg
		return database.Shift{ID: arg.ID}, nil
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput()
	input.Payment = &PaymentInput{Method: enum.PaymentMethodQR, Amount: decimalPtr("9.00")}
	if _, err := svc.CreateOrder(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// qr is a non-cash method: the card bucket absorbs it
	if !numericEquals(capturedSale.CashAmount, "0") || !numericEquals(capturedSale.CardAmount, "9.00") {
		t.Errorf("non-cash split wrong: cash=%v card=%v",
			numericToDecimal(capturedSale.CashAmount), numericToDecimal(capturedSale.CardAmount))
	}
}

func TestCreateOrder_NoOpenShift(t *testing.T) {
	store := defaultOrderStore()
	addSaleCalled := false
	store.addShiftSaleFn = func(ctx context.Context, arg database.AddShiftSaleParams) (database.Shift, error) {
		addSaleCalled = true
		return database.Shift{}, nil
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput()
	input.Payment = &PaymentInput{Method: enum.PaymentMethodCash, Amount: decimalPtr("9.00")}
	result, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("orders must work without an open shift: %v", err)
	}
	if result.Order.ShiftID.Valid {
		t.Error("order should not be linked to a shift")
	}
	if addSaleCalled {
		t.Error("shift counters must not be touched without an open shift")
	}
}

func TestCreateOrder_PaymentDefaultsToTotal(t *testing.T) {
	store := defaultOrderStore()
	var captured database.CreatePaymentParams
	inner := store.createPaymentFn
	store.createPaymentFn = func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput()
	input.Payment = &PaymentInput{Method: enum.PaymentMethodCard} // amount omitted
	if _, err := svc.CreateOrder(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(captured.Amount, "9.00") {
		t.Errorf("payment amount: got %v, want order total 9.00", numericToDecimal(captured.Amount))
	}
	if captured.Status != enum.PaymentStatusCompleted {
		t.Errorf("payment status: got %v, want completed", captured.Status)
	}
}

func TestCreateOrder_ExplicitZeroPaymentAmountKept(t *testing.T) {
	store := defaultOrderStore()
	var captured database.CreatePaymentParams
	inner := store.createPaymentFn
	store.createPaymentFn = func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
		captured = arg
		return inner(ctx, arg)
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput()
	// a comped order: stated amount 0 must not be replaced by the total
	input.Payment = &PaymentInput{Method: enum.PaymentMethodCash, Amount: decimalPtr("0")}
	if _, err := svc.CreateOrder(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(captured.Amount, "0") {
		t.Errorf("payment amount: got %v, want explicit 0", numericToDecimal(captured.Amount))
	}
}

// =====================
// Stock deduction through order creation
// =====================

func TestCreateOrder_UnknownProductWarnsButSucceeds(t *testing.T) {
	store := defaultOrderStore()
	// no products configured: every lookup misses

	svc, _ := newTestOrderService(store)
	input := basicOrderInput()
	input.Items[0].ProductSlug = "latte"
	result, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("missing recipe data must not fail the sale: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Reason != WarnProductNotFound {
		t.Errorf("expected product_not_found warning, got %v", result.Warnings)
	}
}

func TestCreateOrder_DeductsRecipeIngredients(t *testing.T) {
	productID := uuid.New()
	recipeID := uuid.New()
	milkID := uuid.New()

	store := defaultOrderStore()
	store.getProductBySlugFn = func(ctx context.Context, slug string) (database.Product, error) {
		if slug == "latte" {
			return database.Product{ID: productID, Name: "Latte", Slug: "latte"}, nil
		}
		return database.Product{}, pgx.ErrNoRows
	}
	store.listRecipesFn = func(ctx context.Context, pid uuid.UUID) ([]database.Recipe, error) {
		return []database.Recipe{{ID: recipeID, ProductID: pid, IsDefault: true}}, nil
	}
	store.listRecipeIngredientsFn = func(ctx context.Context, rid uuid.UUID) ([]database.RecipeIngredient, error) {
		return []database.RecipeIngredient{
			{RecipeID: rid, IngredientSlug: "milk", Amount: makeNumeric("0.25")},
		}, nil
	}
	store.getIngredientBySlugFn = func(ctx context.Context, slug string) (database.Ingredient, error) {
		if slug == "milk" {
			return database.Ingredient{ID: milkID, Slug: "milk", Quantity: makeNumeric("10")}, nil
		}
		return database.Ingredient{}, pgx.ErrNoRows
	}

	var capturedSet database.SetIngredientQuantityParams
	store.setIngredientQuantityFn = func(ctx context.Context, arg database.SetIngredientQuantityParams) (database.Ingredient, error) {
		capturedSet = arg
		return database.Ingredient{ID: arg.ID, Quantity: arg.Quantity}, nil
	}
	var capturedTxn database.CreateInventoryTransactionParams
	store.createInventoryTxnFn = func(ctx context.Context, arg database.CreateInventoryTransactionParams) (database.InventoryTransaction, error) {
		capturedTxn = arg
		return database.InventoryTransaction{ID: uuid.New()}, nil
	}

	svc, _ := newTestOrderService(store)
	input := basicOrderInput() // quantity 2
	input.Items[0].ProductSlug = "latte"
	result, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}

	// 0.25 * 2 = 0.5 deducted: 10 -> 9.5
	if capturedSet.ID != milkID || !numericEquals(capturedSet.Quantity, "9.5") {
		t.Errorf("new stock: got %v, want 9.5", numericToDecimal(capturedSet.Quantity))
	}
	if capturedTxn.TransactionType != enum.TransactionTypeSale {
		t.Errorf("transaction type: got %v, want sale", capturedTxn.TransactionType)
	}
	if !numericEquals(capturedTxn.Quantity, "-0.5") {
		t.Errorf("transaction quantity: got %v, want -0.5", numericToDecimal(capturedTxn.Quantity))
	}
	if !numericEquals(capturedTxn.PreviousQuantity, "10") || !numericEquals(capturedTxn.NewQuantity, "9.5") {
		t.Errorf("transaction prev/new: got %v/%v",
			numericToDecimal(capturedTxn.PreviousQuantity), numericToDecimal(capturedTxn.NewQuantity))
	}
}

// =====================
// Status transition tests
// =====================

func TestUpdateOrderStatus_Allowed(t *testing.T) {
	orderID := uuid.New()
	store := defaultOrderStore()
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: enum.OrderStatusPending}, nil
	}
	var captured database.UpdateOrderStatusParams
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		captured = arg
		return database.Order{ID: arg.ID, Status: arg.Status}, nil
	}

	svc, _ := newTestOrderService(store)
	updated, err := svc.UpdateOrderStatus(context.Background(), orderID, enum.OrderStatusConfirmed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enum.OrderStatusConfirmed {
		t.Errorf("status: got %v, want confirmed", updated.Status)
	}
	if captured.FromStatus != enum.OrderStatusPending {
		t.Errorf("from status guard: got %v, want pending", captured.FromStatus)
	}
	if captured.PreparedAt.Valid || captured.CompletedAt.Valid {
		t.Error("pending->confirmed must not stamp timestamps")
	}
}

func TestUpdateOrderStatus_StampsPreparedAt(t *testing.T) {
	orderID := uuid.New()
	store := defaultOrderStore()
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: enum.OrderStatusPreparing}, nil
	}
	var captured database.UpdateOrderStatusParams
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		captured = arg
		return database.Order{ID: arg.ID, Status: arg.Status}, nil
	}

	svc, _ := newTestOrderService(store)
	if _, err := svc.UpdateOrderStatus(context.Background(), orderID, enum.OrderStatusReady); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !captured.PreparedAt.Valid {
		t.Error("preparing->ready must stamp prepared_at")
	}
	if captured.CompletedAt.Valid {
		t.Error("completed_at must stay untouched on ready")
	}
}

func TestUpdateOrderStatus_Rejected(t *testing.T) {
	orderID := uuid.New()
	store := defaultOrderStore()
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: enum.OrderStatusCompleted}, nil
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		t.Fatal("update must not be attempted for a rejected transition")
		return database.Order{}, nil
	}

	svc, _ := newTestOrderService(store)
	_, err := svc.UpdateOrderStatus(context.Background(), orderID, enum.OrderStatusPending)

	var terr *TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransitionError, got: %v", err)
	}
	if terr.From != enum.OrderStatusCompleted || terr.To != enum.OrderStatusPending {
		t.Errorf("transition error: got %v -> %v", terr.From, terr.To)
	}
}

func TestUpdateOrderStatus_ConcurrentChange(t *testing.T) {
	orderID := uuid.New()
	store := defaultOrderStore()
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: enum.OrderStatusPending}, nil
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}

	svc, _ := newTestOrderService(store)
	_, err := svc.UpdateOrderStatus(context.Background(), orderID, enum.OrderStatusConfirmed)
	if !errors.Is(err, ErrOrderStatusChanged) {
		t.Fatalf("expected ErrOrderStatusChanged, got: %v", err)
	}
}

func TestUpdateOrderStatus_LogsActivityForShiftOrder(t *testing.T) {
	orderID := uuid.New()
	shiftID := uuid.New()
	store := defaultOrderStore()
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: enum.OrderStatusPending}, nil
	}
	store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		return database.Order{
			ID:      arg.ID,
			Status:  arg.Status,
			ShiftID: pgtype.UUID{Bytes: shiftID, Valid: true},
		}, nil
	}
	var captured database.CreateShiftActivityParams
	store.createShiftActivityFn = func(ctx context.Context, arg database.CreateShiftActivityParams) (database.ShiftActivity, error) {
		captured = arg
		return database.ShiftActivity{ID: uuid.New()}, nil
	}

	svc, _ := newTestOrderService(store)
	if _, err := svc.UpdateOrderStatus(context.Background(), orderID, enum.OrderStatusConfirmed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.ActivityType != enum.ActivityOrderStatus {
		t.Errorf("activity type: got %v, want order_status", captured.ActivityType)
	}
	if captured.ShiftID != shiftID {
		t.Errorf("activity shift: got %v, want %v", captured.ShiftID, shiftID)
	}
}
