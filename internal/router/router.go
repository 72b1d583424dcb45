package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brewdesk-pos/api/internal/config"
	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/handler"
	mw "github.com/brewdesk-pos/api/internal/middleware"
	"github.com/brewdesk-pos/api/internal/service"
	"github.com/brewdesk-pos/api/internal/ws"
)

// New creates the main application router with all routes configured
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check (public)
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket endpoint (authenticates via query param token)
	r.Get("/ws/events", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, req)
	})

	// Services open their own transactions, so they get the pool plus a
	// store factory that can bind queries to a tx.
	orderSvc := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	inventorySvc := service.NewInventoryService(pool, func(db database.DBTX) service.InventoryStore {
		return database.New(db)
	})
	shiftSvc := service.NewShiftService(pool, func(db database.DBTX) service.ShiftStore {
		return database.New(db)
	})
	reportsSvc := service.NewReportsService(queries)

	orderHandler := handler.NewOrderHandler(&orderEvents{svc: orderSvc, hub: hub}, queries)
	shiftHandler := handler.NewShiftHandler(&shiftEvents{svc: shiftSvc, hub: hub}, queries)
	supplyHandler := handler.NewSupplyHandler(inventorySvc, queries)
	writeOffHandler := handler.NewWriteOffHandler(inventorySvc, queries)
	reportsHandler := handler.NewReportsHandler(reportsSvc)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)

		// Any authenticated staff member
		r.Route("/orders", orderHandler.RegisterRoutes)
		r.Route("/shifts", shiftHandler.RegisterRoutes)
		r.Route("/categories", handler.NewCategoryHandler(queries).RegisterRoutes)
		r.Route("/products", handler.NewProductHandler(queries).RegisterRoutes)
		r.Route("/ingredients", handler.NewIngredientHandler(queries).RegisterRoutes)
		r.Route("/write-offs", writeOffHandler.RegisterRoutes)

		// Stock deliveries and staff accounts are management work
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole("OWNER", "MANAGER"))
			r.Route("/users", handler.NewUserHandler(queries).RegisterRoutes)
			r.Route("/supplies", supplyHandler.RegisterRoutes)
			r.Route("/reports", reportsHandler.RegisterRoutes)
		})
	})

	return r
}

// orderEvents wraps the order service to push WebSocket events after
// successful writes. Handlers stay unaware of the hub.
type orderEvents struct {
	svc *service.OrderService
	hub *ws.Hub
}

func (e *orderEvents) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*service.OrderResult, error) {
	result, err := e.svc.CreateOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	e.broadcast("order.created", map[string]interface{}{
		"order_id":     result.Order.ID,
		"order_number": result.Order.OrderNumber,
		"status":       result.Order.Status,
	})
	return result, nil
}

func (e *orderEvents) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (database.Order, error) {
	order, err := e.svc.UpdateOrderStatus(ctx, orderID, newStatus)
	if err != nil {
		return database.Order{}, err
	}
	e.broadcast("order.status", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       order.Status,
	})
	return order, nil
}

func (e *orderEvents) broadcast(eventType string, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	e.hub.Broadcast(ws.Event{Type: eventType, Payload: data})
}

// shiftEvents wraps the shift service the same way.
type shiftEvents struct {
	svc *service.ShiftService
	hub *ws.Hub
}

func (e *shiftEvents) Open(ctx context.Context, input service.OpenShiftInput) (database.Shift, error) {
	shift, err := e.svc.Open(ctx, input)
	if err != nil {
		return database.Shift{}, err
	}
	e.broadcast("shift.opened", shift.ID)
	return shift, nil
}

func (e *shiftEvents) Close(ctx context.Context, input service.CloseShiftInput) (database.Shift, error) {
	shift, err := e.svc.Close(ctx, input)
	if err != nil {
		return database.Shift{}, err
	}
	e.broadcast("shift.closed", shift.ID)
	return shift, nil
}

func (e *shiftEvents) broadcast(eventType string, shiftID uuid.UUID) {
	data, err := json.Marshal(map[string]interface{}{"shift_id": shiftID})
	if err != nil {
		return
	}
	e.hub.Broadcast(ws.Event{Type: eventType, Payload: data})
}
