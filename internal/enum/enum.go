package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

const (
	SupplyStatusDraft     = "draft"
	SupplyStatusReceived  = "received"
	SupplyStatusCancelled = "cancelled"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// ── Group B: Ledger record kinds (CHECK constrained in DB) ──

const (
	TransactionTypeSale     = "sale"
	TransactionTypeSupply   = "supply"
	TransactionTypeWriteOff = "writeoff"
)

const (
	ActivityOrderCreate    = "order_create"
	ActivityOrderStatus    = "order_status"
	ActivitySupplyReceive  = "supply_receive"
	ActivityWriteOffCreate = "writeoff_create"
	ActivityShiftOpen      = "shift_open"
	ActivityShiftClose     = "shift_close"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

const (
	WriteOffTypeSpoilage = "spoilage"
	WriteOffTypeBreakage = "breakage"
	WriteOffTypeExpired  = "expired"
	WriteOffTypeOther    = "other"
)

// ── Group D: Payment surface (CHECK constrained in DB) ──

const (
	PaymentMethodCash   = "cash"
	PaymentMethodCard   = "card"
	PaymentMethodQR     = "qr"
	PaymentMethodOnline = "online"
	PaymentMethodOther  = "other"
)

const (
	DiscountTypeNone       = "none"
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Validity checks mirror the DB CHECK constraints so bad input fails with a
// field error instead of a constraint violation.

func ValidOrderType(s string) bool {
	switch s {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

func ValidWriteOffType(s string) bool {
	switch s {
	case WriteOffTypeSpoilage, WriteOffTypeBreakage, WriteOffTypeExpired, WriteOffTypeOther:
		return true
	}
	return false
}

func ValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodQR, PaymentMethodOnline, PaymentMethodOther:
		return true
	}
	return false
}

func ValidDiscountType(s string) bool {
	switch s {
	case DiscountTypeNone, DiscountTypePercentage, DiscountTypeFixed:
		return true
	}
	return false
}

func ValidUserRole(s string) bool {
	switch s {
	case UserRoleOwner, UserRoleManager, UserRoleCashier, UserRoleKitchen:
		return true
	}
	return false
}
