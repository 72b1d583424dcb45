package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/middleware"
	"github.com/brewdesk-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, input service.CreateOrderInput) (*service.OrderResult, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderItemRequest struct {
	ProductSlug       string `json:"product_slug"`
	LegacyProductCode *int32 `json:"legacy_product_code"`
	ProductName       string `json:"product_name"`
	SizeID            string `json:"size_id"`
	Quantity          int32  `json:"quantity"`
	UnitPrice         string `json:"unit_price"`
}

type createOrderPaymentRequest struct {
	Method string `json:"method"`
	Amount string `json:"amount"`
}

type createOrderRequest struct {
	OrderNumber   string                     `json:"order_number"`
	OrderType     string                     `json:"order_type"`
	DiscountType  string                     `json:"discount_type"`
	DiscountValue string                     `json:"discount_value"`
	Items         []createOrderItemRequest   `json:"items"`
	Payment       *createOrderPaymentRequest `json:"payment"`
}

type orderItemResponse struct {
	ID                uuid.UUID `json:"id"`
	ProductSlug       *string   `json:"product_slug"`
	LegacyProductCode *int32    `json:"legacy_product_code"`
	ProductName       string    `json:"product_name"`
	SizeID            *string   `json:"size_id"`
	Quantity          int32     `json:"quantity"`
	UnitPrice         string    `json:"unit_price"`
	LineTotal         string    `json:"line_total"`
}

type paymentResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	Method      string    `json:"method"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	ProcessedBy uuid.UUID `json:"processed_by"`
	ProcessedAt time.Time `json:"processed_at"`
}

type orderResponse struct {
	ID             uuid.UUID              `json:"id"`
	OrderNumber    string                 `json:"order_number"`
	Status         string                 `json:"status"`
	OrderType      string                 `json:"order_type"`
	Subtotal       string                 `json:"subtotal"`
	DiscountType   string                 `json:"discount_type"`
	DiscountValue  string                 `json:"discount_value"`
	DiscountAmount string                 `json:"discount_amount"`
	Total          string                 `json:"total"`
	ShiftID        *string                `json:"shift_id"`
	CreatedBy      uuid.UUID              `json:"created_by"`
	CreatedAt      time.Time              `json:"created_at"`
	PreparedAt     *time.Time             `json:"prepared_at"`
	CompletedAt    *time.Time             `json:"completed_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Items          []orderItemResponse    `json:"items,omitempty"`
	Payment        *paymentResponse       `json:"payment,omitempty"`
	Warnings       []service.StockWarning `json:"warnings,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		OrderType:      o.OrderType,
		Subtotal:       numericToString(o.Subtotal),
		DiscountType:   o.DiscountType,
		DiscountValue:  numericToString(o.DiscountValue),
		DiscountAmount: numericToString(o.DiscountAmount),
		Total:          numericToString(o.Total),
		CreatedBy:      o.CreatedBy,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.ShiftID.Valid {
		s := uuid.UUID(o.ShiftID.Bytes).String()
		resp.ShiftID = &s
	}
	if o.PreparedAt.Valid {
		t := o.PreparedAt.Time
		resp.PreparedAt = &t
	}
	if o.CompletedAt.Valid {
		t := o.CompletedAt.Time
		resp.CompletedAt = &t
	}
	return resp
}

func toOrderItemResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:          item.ID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		UnitPrice:   numericToString(item.UnitPrice),
		LineTotal:   numericToString(item.LineTotal),
	}
	if item.ProductSlug.Valid {
		resp.ProductSlug = &item.ProductSlug.String
	}
	if item.LegacyProductCode.Valid {
		code := item.LegacyProductCode.Int32
		resp.LegacyProductCode = &code
	}
	if item.SizeID.Valid {
		resp.SizeID = &item.SizeID.String
	}
	return resp
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Method:      p.Method,
		Amount:      numericToString(p.Amount),
		Status:      p.Status,
		ProcessedBy: p.ProcessedBy,
		ProcessedAt: p.ProcessedAt,
	}
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	discountValue := decimal.Zero
	if req.DiscountValue != "" {
		v, err := decimal.NewFromString(req.DiscountValue)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount_value"})
			return
		}
		discountValue = v
	}

	items := make([]service.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		unitPrice := decimal.Zero
		if item.UnitPrice != "" {
			v, err := decimal.NewFromString(item.UnitPrice)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error": "items[" + strconv.Itoa(i) + "]: invalid unit_price",
				})
				return
			}
			unitPrice = v
		}
		items[i] = service.OrderItemInput{
			ProductSlug:       item.ProductSlug,
			LegacyProductCode: item.LegacyProductCode,
			ProductName:       item.ProductName,
			SizeID:            item.SizeID,
			Quantity:          item.Quantity,
			UnitPrice:         unitPrice,
		}
	}

	var payment *service.PaymentInput
	if req.Payment != nil {
		payment = &service.PaymentInput{Method: req.Payment.Method}
		if req.Payment.Amount != "" {
			v, err := decimal.NewFromString(req.Payment.Amount)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment.amount"})
				return
			}
			payment.Amount = &v
		}
	}

	discountType := req.DiscountType
	if discountType == "" {
		discountType = "none"
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderInput{
		OrderNumber:   req.OrderNumber,
		OrderType:     req.OrderType,
		DiscountType:  discountType,
		DiscountValue: discountValue,
		Items:         items,
		Payment:       payment,
		CreatedBy:     claims.UserID,
	})
	if err != nil {
		writeServiceError(w, err, "create order")
		return
	}

	resp := toOrderResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = toOrderItemResponse(item)
	}
	if result.Payment != nil {
		p := toPaymentResponse(*result.Payment)
		resp.Payment = &p
	}
	resp.Warnings = result.Warnings

	writeData(w, http.StatusCreated, resp)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = toOrderItemResponse(item)
	}

	payment, err := h.store.GetPaymentByOrder(r.Context(), orderID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: get payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if err == nil {
		p := toPaymentResponse(payment)
		resp.Payment = &p
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		writeServiceError(w, err, "update order status")
		return
	}

	writeData(w, http.StatusOK, toOrderResponse(updated))
}

// --- Shared helpers ---

// writeServiceError maps service-layer errors onto HTTP responses: field
// validation becomes 400 with a details map, state conflicts (wrong status,
// shift already open/closed, disallowed transition) are also 400, anything
// unrecognized is logged and returned as 500.
func writeServiceError(w http.ResponseWriter, err error, op string) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "validation failed",
			"details": verr.Fields,
		})
		return
	}

	var terr *service.TransitionError
	if errors.As(err, &terr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": terr.Error()})
		return
	}

	switch {
	case errors.Is(err, service.ErrOrderStatusChanged),
		errors.Is(err, service.ErrShiftAlreadyOpen),
		errors.Is(err, service.ErrShiftAlreadyClosed),
		errors.Is(err, service.ErrNoOpenShift),
		errors.Is(err, service.ErrSupplyNotDraft),
		errors.Is(err, service.ErrShiftStillOpen):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	log.Printf("ERROR: %s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset = 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func numericFromString(s string) (pgtype.Numeric, error) {
	if s == "" {
		s = "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}
