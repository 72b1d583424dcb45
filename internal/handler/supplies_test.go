package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/handler"
	"github.com/brewdesk-pos/api/internal/middleware"
	"github.com/brewdesk-pos/api/internal/service"
)

// --- Mock service ---

type mockSupplyService struct {
	createFn  func(ctx context.Context, input service.CreateSupplyInput) (*service.SupplyResult, error)
	receiveFn func(ctx context.Context, supplyID, receivedBy uuid.UUID) (*service.SupplyResult, error)
	cancelFn  func(ctx context.Context, supplyID uuid.UUID) (database.Supply, error)
}

func (m *mockSupplyService) CreateSupply(ctx context.Context, input service.CreateSupplyInput) (*service.SupplyResult, error) {
	return m.createFn(ctx, input)
}

func (m *mockSupplyService) ReceiveSupply(ctx context.Context, supplyID, receivedBy uuid.UUID) (*service.SupplyResult, error) {
	return m.receiveFn(ctx, supplyID, receivedBy)
}

func (m *mockSupplyService) CancelSupply(ctx context.Context, supplyID uuid.UUID) (database.Supply, error) {
	return m.cancelFn(ctx, supplyID)
}

// --- Mock store ---

type mockSupplyStore struct {
	supplies map[uuid.UUID]database.Supply
	items    map[uuid.UUID][]database.SupplyItem // keyed by supply ID
}

func newMockSupplyStore() *mockSupplyStore {
	return &mockSupplyStore{
		supplies: make(map[uuid.UUID]database.Supply),
		items:    make(map[uuid.UUID][]database.SupplyItem),
	}
}

func (m *mockSupplyStore) GetSupply(_ context.Context, id uuid.UUID) (database.Supply, error) {
	s, ok := m.supplies[id]
	if !ok {
		return database.Supply{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockSupplyStore) ListSupplies(_ context.Context, _ database.ListSuppliesParams) ([]database.Supply, error) {
	var result []database.Supply
	for _, s := range m.supplies {
		result = append(result, s)
	}
	return result, nil
}

func (m *mockSupplyStore) ListSupplyItems(_ context.Context, supplyID uuid.UUID) ([]database.SupplyItem, error) {
	return m.items[supplyID], nil
}

// --- Helpers ---

func setupSupplyRouter(svc *mockSupplyService, store *mockSupplyStore) *chi.Mux {
	h := handler.NewSupplyHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/supplies", h.RegisterRoutes)
	return r
}

func testDraftSupply(t *testing.T, createdBy uuid.UUID) database.Supply {
	t.Helper()
	return database.Supply{
		ID:           uuid.New(),
		SupplierName: "Bean Brothers",
		Status:       "draft",
		TotalCost:    testNumeric(t, "73.00"),
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
	}
}

// --- Create tests ---

func TestSupplyCreate_Valid(t *testing.T) {
	claims := testClaims()
	var captured service.CreateSupplyInput

	svc := &mockSupplyService{
		createFn: func(_ context.Context, input service.CreateSupplyInput) (*service.SupplyResult, error) {
			captured = input
			supply := testDraftSupply(t, input.CreatedBy)
			return &service.SupplyResult{
				Supply: supply,
				Items: []database.SupplyItem{
					{
						ID: uuid.New(), SupplyID: supply.ID, IngredientSlug: "espresso",
						Quantity: testNumeric(t, "1000"), UnitCost: testNumeric(t, "0.07"),
					},
				},
			}, nil
		},
	}
	router := setupSupplyRouter(svc, newMockSupplyStore())

	rr := doAuthRequest(t, router, "POST", "/supplies", map[string]interface{}{
		"supplier_name": "Bean Brothers",
		"items": []map[string]interface{}{
			{"ingredient_slug": "espresso", "quantity": "1000", "unit_cost": "0.07"},
		},
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if captured.CreatedBy != claims.UserID {
		t.Errorf("created_by: got %v, want %v", captured.CreatedBy, claims.UserID)
	}
	if len(captured.Items) != 1 || captured.Items[0].IngredientSlug != "espresso" {
		t.Errorf("items passed to service: %+v", captured.Items)
	}

	resp := decodeData(t, rr)
	// Deliveries are recorded as drafts; stock does not move until receive.
	if resp["status"] != "draft" {
		t.Errorf("status field: got %v, want draft", resp["status"])
	}
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item in response, got %v", resp["items"])
	}
}

func TestSupplyCreate_InvalidQuantity(t *testing.T) {
	router := setupSupplyRouter(&mockSupplyService{}, newMockSupplyStore())

	rr := doAuthRequest(t, router, "POST", "/supplies", map[string]interface{}{
		"supplier_name": "Bean Brothers",
		"items": []map[string]interface{}{
			{"ingredient_slug": "espresso", "quantity": "a bag"},
		},
	}, testClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSupplyCreate_ValidationError(t *testing.T) {
	svc := &mockSupplyService{
		createFn: func(_ context.Context, _ service.CreateSupplyInput) (*service.SupplyResult, error) {
			return nil, &service.ValidationError{Fields: map[string]string{"supplier_name": "supplier_name is required"}}
		},
	}
	router := setupSupplyRouter(svc, newMockSupplyStore())

	rr := doAuthRequest(t, router, "POST", "/supplies", map[string]interface{}{
		"items": []map[string]interface{}{
			{"ingredient_slug": "espresso", "quantity": "100"},
		},
	}, testClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["error"] != "validation failed" {
		t.Errorf("error: got %v", resp["error"])
	}
}

// --- Receive tests ---

func TestSupplyReceive_Valid(t *testing.T) {
	claims := testClaims()
	supplyID := uuid.New()

	svc := &mockSupplyService{
		receiveFn: func(_ context.Context, id, receivedBy uuid.UUID) (*service.SupplyResult, error) {
			if id != supplyID {
				t.Errorf("supply ID: got %v, want %v", id, supplyID)
			}
			if receivedBy != claims.UserID {
				t.Errorf("received_by: got %v, want %v", receivedBy, claims.UserID)
			}
			supply := testDraftSupply(t, uuid.New())
			supply.ID = id
			supply.Status = "received"
			return &service.SupplyResult{Supply: supply}, nil
		},
	}
	router := setupSupplyRouter(svc, newMockSupplyStore())

	rr := doAuthRequest(t, router, "POST", "/supplies/"+supplyID.String()+"/receive", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeData(t, rr)
	if resp["status"] != "received" {
		t.Errorf("status field: got %v, want received", resp["status"])
	}
}

func TestSupplyReceive_NotDraft(t *testing.T) {
	svc := &mockSupplyService{
		receiveFn: func(_ context.Context, _, _ uuid.UUID) (*service.SupplyResult, error) {
			return nil, service.ErrSupplyNotDraft
		},
	}
	router := setupSupplyRouter(svc, newMockSupplyStore())

	rr := doAuthRequest(t, router, "POST", "/supplies/"+uuid.New().String()+"/receive", nil, testClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSupplyReceive_NotFound(t *testing.T) {
	svc := &mockSupplyService{
		receiveFn: func(_ context.Context, _, _ uuid.UUID) (*service.SupplyResult, error) {
			return nil, pgx.ErrNoRows
		},
	}
	router := setupSupplyRouter(svc, newMockSupplyStore())

	rr := doAuthRequest(t, router, "POST", "/supplies/"+uuid.New().String()+"/receive", nil, testClaims())

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Cancel tests ---

func TestSupplyCancel_Valid(t *testing.T) {
	supplyID := uuid.New()
	svc := &mockSupplyService{
		cancelFn: func(_ context.Context, id uuid.UUID) (database.Supply, error) {
			supply := testDraftSupply(t, uuid.New())
			supply.ID = id
			supply.Status = "cancelled"
			return supply, nil
		},
	}
	router := setupSupplyRouter(svc, newMockSupplyStore())

	rr := doAuthRequest(t, router, "POST", "/supplies/"+supplyID.String()+"/cancel", nil, testClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeData(t, rr)
	if resp["status"] != "cancelled" {
		t.Errorf("status field: got %v, want cancelled", resp["status"])
	}
}

func TestSupplyCancel_NotDraft(t *testing.T) {
	svc := &mockSupplyService{
		cancelFn: func(_ context.Context, _ uuid.UUID) (database.Supply, error) {
			return database.Supply{}, service.ErrSupplyNotDraft
		},
	}
	router := setupSupplyRouter(svc, newMockSupplyStore())

	rr := doAuthRequest(t, router, "POST", "/supplies/"+uuid.New().String()+"/cancel", nil, testClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Get tests ---

func TestSupplyGet_WithItems(t *testing.T) {
	store := newMockSupplyStore()
	supply := testDraftSupply(t, uuid.New())
	store.supplies[supply.ID] = supply
	store.items[supply.ID] = []database.SupplyItem{
		{ID: uuid.New(), SupplyID: supply.ID, IngredientSlug: "milk", Quantity: testNumeric(t, "4000"), UnitCost: testNumeric(t, "0.05")},
	}

	router := setupSupplyRouter(&mockSupplyService{}, store)
	rr := doAuthRequest(t, router, "GET", "/supplies/"+supply.ID.String(), nil, testClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", resp["items"])
	}
	item := items[0].(map[string]interface{})
	if item["ingredient_slug"] != "milk" {
		t.Errorf("ingredient_slug: got %v", item["ingredient_slug"])
	}
}

func TestSupplyGet_NotFound(t *testing.T) {
	router := setupSupplyRouter(&mockSupplyService{}, newMockSupplyStore())

	rr := doAuthRequest(t, router, "GET", "/supplies/"+uuid.New().String(), nil, testClaims())

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
