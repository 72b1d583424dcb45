package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/brewdesk-pos/api/internal/database"
	"github.com/brewdesk-pos/api/internal/handler"
)

// --- Mock store ---

type mockUserStore struct {
	users map[uuid.UUID]database.User // keyed by user ID
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]database.User)}
}

func (m *mockUserStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	// Simulates the PostgreSQL unique constraint on email
	for _, existing := range m.users {
		if existing.Email == arg.Email {
			return database.User{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	u := database.User{
		ID:           uuid.New(),
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		FullName:     arg.FullName,
		Role:         arg.Role,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) GetUser(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserStore) ListUsers(_ context.Context) ([]database.User, error) {
	var result []database.User
	for _, u := range m.users {
		if u.IsActive {
			result = append(result, u)
		}
	}
	return result, nil
}

func (m *mockUserStore) UpdateUser(_ context.Context, arg database.UpdateUserParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	u.FullName = arg.FullName
	u.Role = arg.Role
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) DeactivateUser(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	u.IsActive = false
	m.users[id] = u
	return u, nil
}

// --- Helpers ---

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Route("/users", h.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// decodeData unwraps the {"data": ...} envelope mutating endpoints return.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := decodeBody(t, rr)
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data envelope: %v", resp)
	}
	return data
}

func decodeDataList(t *testing.T, rr *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	resp := decodeBody(t, rr)
	data, ok := resp["data"].([]interface{})
	if !ok {
		t.Fatalf("response has no data list envelope: %v", resp)
	}
	return data
}

func decodeListBody(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// --- Create tests ---

func TestUserCreate_Valid(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "barista@example.com",
		"password":  "secret123",
		"full_name": "Dana Lee",
		"role":      "CASHIER",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeData(t, rr)
	if resp["email"] != "barista@example.com" {
		t.Errorf("email: got %v", resp["email"])
	}
	if resp["full_name"] != "Dana Lee" {
		t.Errorf("full_name: got %v", resp["full_name"])
	}
	if resp["role"] != "CASHIER" {
		t.Errorf("role: got %v", resp["role"])
	}
	if resp["is_active"] != true {
		t.Errorf("is_active: got %v, want true", resp["is_active"])
	}
	if _, exposed := resp["password_hash"]; exposed {
		t.Error("password_hash must not appear in responses")
	}

	// The stored hash must verify against the original password.
	for _, u := range store.users {
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")); err != nil {
			t.Errorf("stored hash does not match password: %v", err)
		}
	}
}

func TestUserCreate_MissingFields(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email": "no-password@example.com",
		"role":  "CASHIER",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUserCreate_InvalidEmail(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "not-an-email",
		"password":  "secret123",
		"full_name": "X",
		"role":      "CASHIER",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeBody(t, rr)
	if resp["error"] != "invalid email address" {
		t.Errorf("error: got %v, want 'invalid email address'", resp["error"])
	}
}

func TestUserCreate_InvalidRole(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":     "x@example.com",
		"password":  "secret123",
		"full_name": "X",
		"role":      "SUPERADMIN",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeBody(t, rr)
	if resp["error"] != "invalid role" {
		t.Errorf("error: got %v, want 'invalid role'", resp["error"])
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	body := map[string]interface{}{
		"email":     "dup@example.com",
		"password":  "secret123",
		"full_name": "First",
		"role":      "MANAGER",
	}
	if rr := doRequest(t, router, "POST", "/users", body); rr.Code != http.StatusCreated {
		t.Fatalf("first create: got %d; body: %s", rr.Code, rr.Body.String())
	}

	rr := doRequest(t, router, "POST", "/users", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["error"] != "email already registered" {
		t.Errorf("error: got %v", resp["error"])
	}
}

// --- List / Get tests ---

func TestUserList_ExcludesInactive(t *testing.T) {
	store := newMockUserStore()
	activeID := uuid.New()
	inactiveID := uuid.New()
	store.users[activeID] = database.User{ID: activeID, Email: "a@example.com", FullName: "Active", Role: "OWNER", IsActive: true}
	store.users[inactiveID] = database.User{ID: inactiveID, Email: "b@example.com", FullName: "Gone", Role: "CASHIER", IsActive: false}

	router := setupUserRouter(store)
	rr := doRequest(t, router, "GET", "/users", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeListBody(t, rr)
	if len(resp) != 1 {
		t.Fatalf("expected 1 user, got %d", len(resp))
	}
	if resp[0]["email"] != "a@example.com" {
		t.Errorf("email: got %v", resp[0]["email"])
	}
}

func TestUserGet_NotFound(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "GET", "/users/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUserGet_InvalidID(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "GET", "/users/not-a-uuid", nil)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Update tests ---

func TestUserUpdate_Valid(t *testing.T) {
	store := newMockUserStore()
	id := uuid.New()
	store.users[id] = database.User{ID: id, Email: "u@example.com", FullName: "Old Name", Role: "CASHIER", IsActive: true}

	router := setupUserRouter(store)
	rr := doRequest(t, router, "PUT", "/users/"+id.String(), map[string]interface{}{
		"full_name": "New Name",
		"role":      "MANAGER",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeData(t, rr)
	if resp["full_name"] != "New Name" {
		t.Errorf("full_name: got %v", resp["full_name"])
	}
	if resp["role"] != "MANAGER" {
		t.Errorf("role: got %v", resp["role"])
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "PUT", "/users/"+uuid.New().String(), map[string]interface{}{
		"full_name": "Whoever",
		"role":      "CASHIER",
	})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUserUpdate_InvalidRole(t *testing.T) {
	store := newMockUserStore()
	id := uuid.New()
	store.users[id] = database.User{ID: id, Email: "u@example.com", FullName: "Name", Role: "CASHIER", IsActive: true}

	router := setupUserRouter(store)
	rr := doRequest(t, router, "PUT", "/users/"+id.String(), map[string]interface{}{
		"full_name": "Name",
		"role":      "WIZARD",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Delete tests ---

func TestUserDelete_Deactivates(t *testing.T) {
	store := newMockUserStore()
	id := uuid.New()
	store.users[id] = database.User{ID: id, Email: "u@example.com", FullName: "Name", Role: "CASHIER", IsActive: true}

	router := setupUserRouter(store)
	rr := doRequest(t, router, "DELETE", "/users/"+id.String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}

	// The row stays so order and shift references keep resolving.
	u, exists := store.users[id]
	if !exists {
		t.Fatal("expected user row to remain after deactivation")
	}
	if u.IsActive {
		t.Error("expected is_active=false after delete")
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "DELETE", "/users/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
