package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Category struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	SortOrder int32
	IsActive  bool
	CreatedAt time.Time
}

type Product struct {
	ID         uuid.UUID
	CategoryID pgtype.UUID
	Name       string
	Slug       string
	LegacyCode pgtype.Int4
	BasePrice  pgtype.Numeric
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Ingredient struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	LegacyCode  pgtype.Int4
	Unit        string
	Quantity    pgtype.Numeric
	MinQuantity pgtype.Numeric
	CostPerUnit pgtype.Numeric
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Recipe struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	SizeID    pgtype.Text
	SizeName  pgtype.Text
	IsDefault bool
	CreatedAt time.Time
}

type RecipeIngredient struct {
	ID               uuid.UUID
	RecipeID         uuid.UUID
	IngredientSlug   string
	LegacyIngredient pgtype.Int4
	Amount           pgtype.Numeric
}

type Order struct {
	ID             uuid.UUID
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
	CreatedAt      time.Time
	PreparedAt     pgtype.Timestamptz
	CompletedAt    pgtype.Timestamptz
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ProductSlug       pgtype.Text
	LegacyProductCode pgtype.Int4
	ProductName       string
	SizeID            pgtype.Text
	Quantity          int32
	UnitPrice         pgtype.Numeric
	LineTotal         pgtype.Numeric
}

type Payment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Method      string
	Amount      pgtype.Numeric
	Status      string
	ProcessedBy uuid.UUID
	ProcessedAt time.Time
}

type Shift struct {
	ID             uuid.UUID
	Status         string
	OpenedBy       uuid.UUID
	OpenedAt       time.Time
	ClosedBy       pgtype.UUID
	ClosedAt       pgtype.Timestamptz
	OpeningCash    pgtype.Numeric
	ClosingCash    pgtype.Numeric
	Notes          pgtype.Text
	CashSales      pgtype.Numeric
	CardSales      pgtype.Numeric
	TotalSales     pgtype.Numeric
	OrdersCount    int32
	WriteOffsTotal pgtype.Numeric
	SuppliesTotal  pgtype.Numeric
}

type ShiftActivity struct {
	ID           uuid.UUID
	ShiftID      uuid.UUID
	ActivityType string
	Details      []byte
	CreatedAt    time.Time
}

type InventoryTransaction struct {
	ID               uuid.UUID
	IngredientID     uuid.UUID
	TransactionType  string
	Quantity         pgtype.Numeric
	PreviousQuantity pgtype.Numeric
	NewQuantity      pgtype.Numeric
	Reference        string
	ShiftID          pgtype.UUID
	CreatedAt        time.Time
}

type Supply struct {
	ID           uuid.UUID
	SupplierName string
	Status       string
	TotalCost    pgtype.Numeric
	Notes        pgtype.Text
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	ReceivedBy   pgtype.UUID
	ReceivedAt   pgtype.Timestamptz
}

type SupplyItem struct {
	ID             uuid.UUID
	SupplyID       uuid.UUID
	IngredientSlug string
	Quantity       pgtype.Numeric
	UnitCost       pgtype.Numeric
}

type WriteOff struct {
	ID           uuid.UUID
	WriteOffType string
	Reason       string
	TotalCost    pgtype.Numeric
	ShiftID      pgtype.UUID
	PerformedBy  uuid.UUID
	CreatedAt    time.Time
}

type WriteOffItem struct {
	ID             uuid.UUID
	WriteOffID     uuid.UUID
	IngredientSlug string
	Quantity       pgtype.Numeric
	ItemCost       pgtype.Numeric
}
