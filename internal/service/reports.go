package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/enum"
)

// ReportsStore is the read-only query surface the reports need.
type ReportsStore interface {
	GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	GetShiftSalesSummary(ctx context.Context, shiftID uuid.UUID) (database.ShiftSalesSummaryRow, error)
	SumWriteOffsBetween(ctx context.Context, start, end time.Time) (pgtype.Numeric, error)
	SumSuppliesBetween(ctx context.Context, start, end time.Time) (pgtype.Numeric, error)
	ListOrdersBetween(ctx context.Context, start, end time.Time) ([]database.ListOrdersBetweenRow, error)
	ListSoldItemsBetween(ctx context.Context, start, end time.Time) ([]database.ListSoldItemsBetweenRow, error)
	ListWriteOffsBetween(ctx context.Context, start, end time.Time) ([]database.WriteOff, error)
	ListSuppliesBetween(ctx context.Context, start, end time.Time) ([]database.Supply, error)
	ListShiftsTouchingWindow(ctx context.Context, start, end time.Time) ([]database.Shift, error)
	ListShiftActivities(ctx context.Context, shiftID uuid.UUID) ([]database.ShiftActivity, error)
}

type ReportsService struct {
	store ReportsStore
	now   func() time.Time
}

func NewReportsService(store ReportsStore) *ReportsService {
	return &ReportsService{store: store, now: time.Now}
}

// ShiftReport is the X-report body; the Z variant adds the closing figures.
type ShiftReport struct {
	ShiftID        uuid.UUID        `json:"shift_id"`
	Status         string           `json:"status"`
	OpenedBy       uuid.UUID        `json:"opened_by"`
	OpenedAt       time.Time        `json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`
	DurationHours  float64          `json:"duration_hours"`
	OpeningCash    decimal.Decimal  `json:"opening_cash"`
	CashSales      decimal.Decimal  `json:"cash_sales"`
	CardSales      decimal.Decimal  `json:"card_sales"`
	TotalSales     decimal.Decimal  `json:"total_sales"`
	OrdersCount    int64            `json:"orders_count"`
	WriteOffsTotal decimal.Decimal  `json:"write_offs_total"`
	SuppliesTotal  decimal.Decimal  `json:"supplies_total"`
	ExpectedCash   decimal.Decimal  `json:"expected_cash"`
	ClosingCash    *decimal.Decimal `json:"closing_cash,omitempty"`
	CashDifference *decimal.Decimal `json:"cash_difference,omitempty"`
}

// XReport builds a mid-shift snapshot. Sales figures are recomputed from the
// shift's orders rather than read off the running counters, so the report is
// authoritative even if a counter ever drifted.
func (s *ReportsService) XReport(ctx context.Context, shiftID uuid.UUID) (*ShiftReport, error) {
	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	return s.buildShiftReport(ctx, shift)
}

// ZReport builds the end-of-shift report with the cash reconciliation. The
// shift must already be closed.
func (s *ReportsService) ZReport(ctx context.Context, shiftID uuid.UUID) (*ShiftReport, error) {
	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status != enum.ShiftStatusClosed {
		return nil, ErrShiftStillOpen
	}

	report, err := s.buildShiftReport(ctx, shift)
	if err != nil {
		return nil, err
	}
	closingCash := numericToDecimal(shift.ClosingCash)
	difference := closingCash.Sub(report.ExpectedCash)
	report.ClosingCash = &closingCash
	report.CashDifference = &difference
	return report, nil
}

func (s *ReportsService) buildShiftReport(ctx context.Context, shift database.Shift) (*ShiftReport, error) {
	end := s.now()
	var closedAt *time.Time
	if shift.ClosedAt.Valid {
		t := shift.ClosedAt.Time
		closedAt = &t
		end = t
	}

	summary, err := s.store.GetShiftSalesSummary(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	writeOffs, err := s.store.SumWriteOffsBetween(ctx, shift.OpenedAt, end)
	if err != nil {
		return nil, err
	}
	supplies, err := s.store.SumSuppliesBetween(ctx, shift.OpenedAt, end)
	if err != nil {
		return nil, err
	}

	openingCash := numericToDecimal(shift.OpeningCash)
	cashSales := numericToDecimal(summary.CashSales)
	return &ShiftReport{
		ShiftID:        shift.ID,
		Status:         shift.Status,
		OpenedBy:       shift.OpenedBy,
		OpenedAt:       shift.OpenedAt,
		ClosedAt:       closedAt,
		DurationHours:  roundHours(end.Sub(shift.OpenedAt)),
		OpeningCash:    openingCash,
		CashSales:      cashSales,
		CardSales:      numericToDecimal(summary.CardSales),
		TotalSales:     numericToDecimal(summary.TotalSales),
		OrdersCount:    summary.OrdersCount,
		WriteOffsTotal: numericToDecimal(writeOffs),
		SuppliesTotal:  numericToDecimal(supplies),
		ExpectedCash:   openingCash.Add(cashSales),
	}, nil
}

func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

type ProductSales struct {
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type ActivityEntry struct {
	ShiftID      uuid.UUID       `json:"shift_id"`
	ActivityType string          `json:"activity_type"`
	Details      json.RawMessage `json:"details"`
	CreatedAt    time.Time       `json:"created_at"`
}

type DailyReport struct {
	Date            string                     `json:"date"`
	OrdersCount     int64                      `json:"orders_count"`
	CancelledCount  int64                      `json:"cancelled_count"`
	Revenue         decimal.Decimal            `json:"revenue"`
	CashSales       decimal.Decimal            `json:"cash_sales"`
	CardSales       decimal.Decimal            `json:"card_sales"`
	OrdersByType    map[string]int64           `json:"orders_by_type"`
	SalesByPayment  map[string]decimal.Decimal `json:"sales_by_payment"`
	TopProducts     []ProductSales             `json:"top_products"`
	WriteOffsCount  int                        `json:"write_offs_count"`
	WriteOffsTotal  decimal.Decimal            `json:"write_offs_total"`
	SuppliesCount   int                        `json:"supplies_count"`
	SuppliesTotal   decimal.Decimal            `json:"supplies_total"`
	ShiftsCount     int                        `json:"shifts_count"`
	Activities      []ActivityEntry            `json:"activities"`
}

// Daily builds the report for one calendar day in UTC. Shifts that opened
// before the day but were still running at midnight count toward it, so an
// overnight shift is never lost between two reports.
func (s *ReportsService) Daily(ctx context.Context, date time.Time) (*DailyReport, error) {
	start, end := dayWindow(date)

	orders, err := s.store.ListOrdersBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	sold, err := s.store.ListSoldItemsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	writeOffs, err := s.store.ListWriteOffsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	supplies, err := s.store.ListSuppliesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	shifts, err := s.store.ListShiftsTouchingWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	activities := []database.ShiftActivity{}
	for _, shift := range shifts {
		shiftActivities, err := s.store.ListShiftActivities(ctx, shift.ID)
		if err != nil {
			return nil, err
		}
		activities = append(activities, shiftActivities...)
	}

	report := buildDailyReport(start, orders, sold, writeOffs, supplies, shifts, activities)
	return &report, nil
}

func buildDailyReport(
	day time.Time,
	orders []database.ListOrdersBetweenRow,
	sold []database.ListSoldItemsBetweenRow,
	writeOffs []database.WriteOff,
	supplies []database.Supply,
	shifts []database.Shift,
	activities []database.ShiftActivity,
) DailyReport {
	report := DailyReport{
		Date:           day.Format("2006-01-02"),
		Revenue:        decimal.Zero,
		CashSales:      decimal.Zero,
		CardSales:      decimal.Zero,
		OrdersByType:   map[string]int64{},
		SalesByPayment: map[string]decimal.Decimal{},
		TopProducts:    []ProductSales{},
		WriteOffsTotal: decimal.Zero,
		SuppliesTotal:  decimal.Zero,
		ShiftsCount:    len(shifts),
		Activities:     []ActivityEntry{},
	}

	for _, order := range orders {
		if order.Status == enum.OrderStatusCancelled {
			report.CancelledCount++
			continue
		}
		report.OrdersCount++
		report.OrdersByType[order.OrderType]++
		total := numericToDecimal(order.Total)
		report.Revenue = report.Revenue.Add(total)

		if order.PaymentMethod.Valid {
			method := order.PaymentMethod.String
			existing, ok := report.SalesByPayment[method]
			if !ok {
				existing = decimal.Zero
			}
			report.SalesByPayment[method] = existing.Add(total)
			if method == enum.PaymentMethodCash {
				report.CashSales = report.CashSales.Add(total)
			} else {
				report.CardSales = report.CardSales.Add(total)
			}
		}
	}

	for i, item := range sold {
		if i == 10 {
			break
		}
		report.TopProducts = append(report.TopProducts, ProductSales{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Revenue:     numericToDecimal(item.LineTotal),
		})
	}

	report.WriteOffsCount = len(writeOffs)
	for _, w := range writeOffs {
		report.WriteOffsTotal = report.WriteOffsTotal.Add(numericToDecimal(w.TotalCost))
	}
	report.SuppliesCount = len(supplies)
	for _, sup := range supplies {
		report.SuppliesTotal = report.SuppliesTotal.Add(numericToDecimal(sup.TotalCost))
	}

	for _, a := range activities {
		report.Activities = append(report.Activities, ActivityEntry{
			ShiftID:      a.ShiftID,
			ActivityType: a.ActivityType,
			Details:      json.RawMessage(a.Details),
			CreatedAt:    a.CreatedAt,
		})
	}
	sort.SliceStable(report.Activities, func(i, j int) bool {
		return report.Activities[i].CreatedAt.After(report.Activities[j].CreatedAt)
	})

	return report
}

type DaySummary struct {
	Date           string          `json:"date"`
	OrdersCount    int64           `json:"orders_count"`
	Revenue        decimal.Decimal `json:"revenue"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	CardSales      decimal.Decimal `json:"card_sales"`
	WriteOffsTotal decimal.Decimal `json:"write_offs_total"`
	SuppliesTotal  decimal.Decimal `json:"supplies_total"`
	ShiftsCount    int             `json:"shifts_count"`
}

type MonthlyReport struct {
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	Days             []DaySummary    `json:"days"`
	OrdersCount      int64           `json:"orders_count"`
	Revenue          decimal.Decimal `json:"revenue"`
	CashSales        decimal.Decimal `json:"cash_sales"`
	CardSales        decimal.Decimal `json:"card_sales"`
	WriteOffsTotal   decimal.Decimal `json:"write_offs_total"`
	SuppliesTotal    decimal.Decimal `json:"supplies_total"`
	ShiftsCount      int             `json:"shifts_count"`
	PreviousRevenue  decimal.Decimal `json:"previous_revenue"`
	RevenueChangePct decimal.Decimal `json:"revenue_change_pct"`
}

// Monthly builds the month's report with per-day buckets and the revenue
// delta against the previous month.
func (s *ReportsService) Monthly(ctx context.Context, year int, month time.Month) (*MonthlyReport, error) {
	start, end := monthWindow(year, month)
	prevStart, prevEnd := monthWindow(prevMonth(year, month))

	orders, err := s.store.ListOrdersBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	prevOrders, err := s.store.ListOrdersBetween(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}
	writeOffs, err := s.store.ListWriteOffsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	supplies, err := s.store.ListSuppliesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	shifts, err := s.store.ListShiftsTouchingWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := buildMonthlyReport(year, month, s.now(), orders, prevOrders, writeOffs, supplies, shifts)
	return &report, nil
}

func buildMonthlyReport(
	year int,
	month time.Month,
	now time.Time,
	orders, prevOrders []database.ListOrdersBetweenRow,
	writeOffs []database.WriteOff,
	supplies []database.Supply,
	shifts []database.Shift,
) MonthlyReport {
	report := MonthlyReport{
		Year:           year,
		Month:          int(month),
		Revenue:        decimal.Zero,
		CashSales:      decimal.Zero,
		CardSales:      decimal.Zero,
		WriteOffsTotal: decimal.Zero,
		SuppliesTotal:  decimal.Zero,
		ShiftsCount:    len(shifts),
	}

	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	days := make([]DaySummary, daysInMonth)
	for i := range days {
		days[i] = DaySummary{
			Date:           time.Date(year, month, i+1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Revenue:        decimal.Zero,
			CashSales:      decimal.Zero,
			CardSales:      decimal.Zero,
			WriteOffsTotal: decimal.Zero,
			SuppliesTotal:  decimal.Zero,
		}
	}
	dayIndex := func(t time.Time) int {
		u := t.UTC()
		if u.Year() != year || u.Month() != month {
			return -1
		}
		return u.Day() - 1
	}

	for _, order := range orders {
		if order.Status == enum.OrderStatusCancelled {
			continue
		}
		report.OrdersCount++
		total := numericToDecimal(order.Total)
		report.Revenue = report.Revenue.Add(total)
		day := dayIndex(order.CreatedAt)
		if day >= 0 {
			days[day].OrdersCount++
			days[day].Revenue = days[day].Revenue.Add(total)
		}
		if order.PaymentMethod.Valid {
			if order.PaymentMethod.String == enum.PaymentMethodCash {
				report.CashSales = report.CashSales.Add(total)
				if day >= 0 {
					days[day].CashSales = days[day].CashSales.Add(total)
				}
			} else {
				report.CardSales = report.CardSales.Add(total)
				if day >= 0 {
					days[day].CardSales = days[day].CardSales.Add(total)
				}
			}
		}
	}

	for _, w := range writeOffs {
		cost := numericToDecimal(w.TotalCost)
		report.WriteOffsTotal = report.WriteOffsTotal.Add(cost)
		if day := dayIndex(w.CreatedAt); day >= 0 {
			days[day].WriteOffsTotal = days[day].WriteOffsTotal.Add(cost)
		}
	}
	for _, sup := range supplies {
		cost := numericToDecimal(sup.TotalCost)
		report.SuppliesTotal = report.SuppliesTotal.Add(cost)
		if day := dayIndex(sup.CreatedAt); day >= 0 {
			days[day].SuppliesTotal = days[day].SuppliesTotal.Add(cost)
		}
	}

	// A shift counts toward every day it overlaps, the same carry-over rule
	// the daily report uses, so an overnight shift shows up on both days.
	for i := range days {
		dayStart := time.Date(year, month, i+1, 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24*time.Hour - time.Millisecond)
		for _, shift := range shifts {
			end := now
			if shift.ClosedAt.Valid {
				end = shift.ClosedAt.Time
			}
			if shift.OpenedAt.Before(dayEnd) && !end.Before(dayStart) {
				days[i].ShiftsCount++
			}
		}
	}
	report.Days = days

	for _, order := range prevOrders {
		if order.Status == enum.OrderStatusCancelled {
			continue
		}
		report.PreviousRevenue = report.PreviousRevenue.Add(numericToDecimal(order.Total))
	}
	report.RevenueChangePct = revenueChange(report.PreviousRevenue, report.Revenue)

	return report
}

// revenueChange compares two months of revenue: no sales either month is 0%,
// growth from nothing is pegged at 100%, otherwise the usual relative delta.
func revenueChange(previous, current decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
}

func dayWindow(date time.Time) (time.Time, time.Time) {
	d := date.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Millisecond)
}

func monthWindow(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Millisecond)
}

func prevMonth(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return t.Year(), t.Month()
}
