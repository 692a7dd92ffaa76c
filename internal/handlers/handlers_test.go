package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendingmachine/backend/internal/middleware"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

var (
	testBuyer = &models.Principal{
		User:      models.User{ID: 1, Username: "bob", Role: models.RoleBuyer, Deposit: new(int)},
		SessionID: 10,
	}
	testSeller = &models.Principal{
		User:      models.User{ID: 2, Username: "alice", Role: models.RoleSeller},
		SessionID: 20,
	}
)

// tokenResolver maps fixed tokens to principals
type tokenResolver map[string]*models.Principal

func (r tokenResolver) Resolve(ctx context.Context, token string) (*models.Principal, error) {
	if principal, ok := r[token]; ok {
		return principal, nil
	}
	return nil, models.ErrInvalidToken
}

func testAuthMiddleware() func(http.Handler) http.Handler {
	return middleware.AuthMiddleware(tokenResolver{"buyer": testBuyer, "seller": testSeller}, zap.NewNop(), false)
}

func passThrough(next http.Handler) http.Handler {
	return next
}

func doRequest(t *testing.T, router http.Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestBaseHandler_RespondServiceError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		debug          bool
		expectedStatus int
		expectedDetail string
		expectedErrors []string
	}{
		{name: "validation", err: models.NewValidationError("a", "b"), expectedStatus: http.StatusBadRequest, expectedDetail: "Validation error", expectedErrors: []string{"a", "b"}},
		{name: "authentication", err: models.ErrInvalidCredentials, expectedStatus: http.StatusUnauthorized, expectedDetail: "Incorrect username or password"},
		{name: "product retrieval", err: models.ErrProductRetrieval, expectedStatus: http.StatusBadRequest, expectedDetail: "Product retrieval"},
		{name: "authorization", err: models.ErrForbiddenUser, expectedStatus: http.StatusForbidden, expectedDetail: "Operation is only allowed on your own account"},
		{name: "not found", err: models.ErrUserNotFound, expectedStatus: http.StatusNotFound, expectedDetail: "User not found"},
		{name: "wrapped not found", err: fmt.Errorf("failed: %w", models.ErrProductNotFound), expectedStatus: http.StatusNotFound, expectedDetail: "Product not found"},
		{name: "conflict", err: models.ErrActiveSession, expectedStatus: http.StatusConflict, expectedDetail: "Cannot log into a user with an active session"},
		{name: "insufficient funds", err: models.ErrInsufficientFunds, expectedStatus: http.StatusBadRequest, expectedDetail: "Insufficient funds"},
		{name: "insufficient stock", err: fmt.Errorf("failed: %w", models.ErrInsufficientStock), expectedStatus: http.StatusBadRequest, expectedDetail: "Insufficient stock"},
		{name: "internal", err: errors.New("dial tcp: refused"), expectedStatus: http.StatusInternalServerError, expectedDetail: "Internal server error"},
		{name: "internal in debug", err: errors.New("dial tcp: refused"), debug: true, expectedStatus: http.StatusInternalServerError, expectedDetail: "dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{Logger: zap.NewNop(), Debug: tt.debug}
			w := httptest.NewRecorder()
			h.RespondServiceError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			resp := decodeError(t, w)
			assert.Equal(t, tt.expectedDetail, resp.Detail)
			assert.Equal(t, tt.expectedErrors, resp.Errors)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

type mockAuthService struct {
	token    *models.TokenResponse
	err      error
	username string
	password string
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	m.username, m.password = username, password
	if m.err != nil {
		return nil, m.err
	}
	return m.token, nil
}

func TestAuthHandler(t *testing.T) {
	newRouter := func(svc *mockAuthService) http.Handler {
		r := chi.NewRouter()
		NewAuthHandler(svc, zap.NewNop(), false).RegisterRoutes(r, testAuthMiddleware(), passThrough)
		return r
	}
	form := func(values url.Values) io.Reader {
		return strings.NewReader(values.Encode())
	}
	postForm := func(router http.Handler, body io.Reader) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", body)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("token success", func(t *testing.T) {
		svc := &mockAuthService{token: &models.TokenResponse{AccessToken: "jwt", TokenType: "bearer"}}
		w := postForm(newRouter(svc), form(url.Values{"username": {"bob"}, "password": {"pw"}}))

		require.Equal(t, http.StatusOK, w.Code)
		var resp models.TokenResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "jwt", resp.AccessToken)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, "bob", svc.username)
		assert.Equal(t, "pw", svc.password)
	})

	t.Run("token missing fields", func(t *testing.T) {
		svc := &mockAuthService{}
		w := postForm(newRouter(svc), form(url.Values{}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"Username is required", "Password is required"}, decodeError(t, w).Errors)
		assert.Empty(t, svc.username)
	})

	t.Run("token invalid credentials", func(t *testing.T) {
		w := postForm(newRouter(&mockAuthService{err: models.ErrInvalidCredentials}), form(url.Values{"username": {"bob"}, "password": {"x"}}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "Incorrect username or password", decodeError(t, w).Detail)
	})

	t.Run("token active session", func(t *testing.T) {
		w := postForm(newRouter(&mockAuthService{err: models.ErrActiveSession}), form(url.Values{"username": {"bob"}, "password": {"pw"}}))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("whoami", func(t *testing.T) {
		w := doRequest(t, newRouter(&mockAuthService{}), http.MethodPost, "/auth/whoami", "buyer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
		var resp models.UserResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, testBuyer.User.ToResponse(), resp)
	})

	t.Run("whoami without token", func(t *testing.T) {
		w := doRequest(t, newRouter(&mockAuthService{}), http.MethodPost, "/auth/whoami", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

type mockUserService struct {
	user   *models.User
	users  []models.User
	err    error
	caller *models.User
	target string
	create *models.CreateUserRequest
	update *models.UpdateUserRequest
}

func (m *mockUserService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	m.create = req
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockUserService) List(ctx context.Context) ([]models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users, nil
}

func (m *mockUserService) Get(ctx context.Context, idOrUsername string) (*models.User, error) {
	m.target = idOrUsername
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockUserService) Update(ctx context.Context, caller *models.User, idOrUsername string, req *models.UpdateUserRequest) (*models.User, error) {
	m.caller, m.target, m.update = caller, idOrUsername, req
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockUserService) Delete(ctx context.Context, caller *models.User, idOrUsername string) error {
	m.caller, m.target = caller, idOrUsername
	return m.err
}

func TestUserHandler(t *testing.T) {
	newRouter := func(svc *mockUserService) http.Handler {
		r := chi.NewRouter()
		NewUserHandler(svc, zap.NewNop(), false).RegisterRoutes(r, testAuthMiddleware())
		return r
	}
	deposit := 0
	created := &models.User{ID: 5, Username: "carol", HashedPassword: "$2a$hash", Role: models.RoleBuyer, Deposit: &deposit}

	t.Run("create", func(t *testing.T) {
		svc := &mockUserService{user: created}
		w := doRequest(t, newRouter(svc), http.MethodPost, "/users/create", "",
			strings.NewReader(`{"username":"carol","role":"BUYER","password":"pw"}`))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "hash")
		var resp models.UserResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, created.ToResponse(), resp)
		assert.Equal(t, &models.CreateUserRequest{Username: "carol", Role: "BUYER", Password: "pw"}, svc.create)
	})

	t.Run("create with deposit", func(t *testing.T) {
		svc := &mockUserService{err: models.NewValidationError("Deposit cannot be set on user creation")}
		w := doRequest(t, newRouter(svc), http.MethodPost, "/users/create", "",
			strings.NewReader(`{"username":"carol","role":"BUYER","password":"pw","deposit":100}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"Deposit cannot be set on user creation"}, decodeError(t, w).Errors)
		require.NotNil(t, svc.create.Deposit)
		assert.Equal(t, 100, *svc.create.Deposit)
	})

	t.Run("create malformed body", func(t *testing.T) {
		w := doRequest(t, newRouter(&mockUserService{}), http.MethodPost, "/users/create", "", strings.NewReader(`{`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", decodeError(t, w).Detail)
	})

	t.Run("list", func(t *testing.T) {
		svc := &mockUserService{users: []models.User{*created, {ID: 6, Username: "dave", Role: models.RoleSeller}}}
		w := doRequest(t, newRouter(svc), http.MethodGet, "/users", "seller", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp []models.UserResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp, 2)
		assert.Equal(t, "dave", resp[1].Username)
		assert.Nil(t, resp[1].Deposit)
	})

	t.Run("list requires authentication", func(t *testing.T) {
		w := doRequest(t, newRouter(&mockUserService{}), http.MethodGet, "/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("get not found", func(t *testing.T) {
		svc := &mockUserService{err: models.ErrUserNotFound}
		w := doRequest(t, newRouter(svc), http.MethodGet, "/users/nobody", "buyer", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", decodeError(t, w).Detail)
		assert.Equal(t, "nobody", svc.target)
	})

	t.Run("update", func(t *testing.T) {
		svc := &mockUserService{user: &testBuyer.User}
		w := doRequest(t, newRouter(svc), http.MethodPut, "/users/1", "buyer", strings.NewReader(`{"disabled":true}`))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, testBuyer.User.ID, svc.caller.ID)
		assert.Equal(t, "1", svc.target)
		require.NotNil(t, svc.update.Disabled)
		assert.True(t, *svc.update.Disabled)
	})

	t.Run("update another account", func(t *testing.T) {
		svc := &mockUserService{err: models.ErrForbiddenUser}
		w := doRequest(t, newRouter(svc), http.MethodPut, "/users/alice", "buyer", strings.NewReader(`{}`))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		svc := &mockUserService{}
		w := doRequest(t, newRouter(svc), http.MethodDelete, "/users/bob", "buyer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp models.APIMessage
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "bob", svc.target)
	})
}

type mockProductService struct {
	product  *models.Product
	products []models.Product
	err      error
	seller   *models.User
	id       int
	req      *models.ProductRequest
	called   bool
}

func (m *mockProductService) Create(ctx context.Context, seller *models.User, req *models.ProductRequest) (*models.Product, error) {
	m.called, m.seller, m.req = true, seller, req
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

func (m *mockProductService) List(ctx context.Context) ([]models.Product, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockProductService) Get(ctx context.Context, id int) (*models.Product, error) {
	m.called, m.id = true, id
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

func (m *mockProductService) Update(ctx context.Context, seller *models.User, id int, req *models.ProductRequest) (*models.Product, error) {
	m.called, m.seller, m.id, m.req = true, seller, id, req
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

func (m *mockProductService) Delete(ctx context.Context, seller *models.User, id int) error {
	m.called, m.seller, m.id = true, seller, id
	return m.err
}

func TestProductHandler(t *testing.T) {
	newRouter := func(svc *mockProductService) http.Handler {
		r := chi.NewRouter()
		NewProductHandler(svc, zap.NewNop(), false).RegisterRoutes(r, testAuthMiddleware())
		return r
	}
	soda := &models.Product{ID: 3, ProductName: "Soda", Cost: 20, AmountAvailable: 10, SellerID: testSeller.User.ID}

	t.Run("create", func(t *testing.T) {
		svc := &mockProductService{product: soda}
		w := doRequest(t, newRouter(svc), http.MethodPost, "/products/create", "seller",
			strings.NewReader(`{"productName":"Soda","cost":20,"amountAvailable":10}`))

		require.Equal(t, http.StatusCreated, w.Code)
		var resp models.ProductResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, soda.ToResponse(), resp)
		assert.Equal(t, testSeller.User.ID, svc.seller.ID)
		assert.Equal(t, "Soda", *svc.req.ProductName)
	})

	t.Run("create by buyer", func(t *testing.T) {
		svc := &mockProductService{}
		w := doRequest(t, newRouter(svc), http.MethodPost, "/products/create", "buyer", strings.NewReader(`{}`))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "User is not a seller", decodeError(t, w).Detail)
		assert.False(t, svc.called)
	})

	t.Run("list by buyer", func(t *testing.T) {
		svc := &mockProductService{products: []models.Product{*soda}}
		w := doRequest(t, newRouter(svc), http.MethodGet, "/products", "buyer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"id":3,"productName":"Soda","cost":20,"amountAvailable":10,"sellerId":2}]`, w.Body.String())
	})

	t.Run("get", func(t *testing.T) {
		svc := &mockProductService{product: soda}
		w := doRequest(t, newRouter(svc), http.MethodGet, "/products/3", "buyer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 3, svc.id)
	})

	t.Run("get invalid id", func(t *testing.T) {
		svc := &mockProductService{}
		w := doRequest(t, newRouter(svc), http.MethodGet, "/products/abc", "buyer", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, svc.called)
	})

	t.Run("update", func(t *testing.T) {
		svc := &mockProductService{product: soda}
		w := doRequest(t, newRouter(svc), http.MethodPut, "/products/3", "seller", strings.NewReader(`{"cost":25}`))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 3, svc.id)
		assert.Equal(t, 25, *svc.req.Cost)
		assert.Nil(t, svc.req.ProductName)
	})

	t.Run("update foreign product", func(t *testing.T) {
		svc := &mockProductService{err: models.ErrProductRetrieval}
		w := doRequest(t, newRouter(svc), http.MethodPut, "/products/3", "seller", strings.NewReader(`{"cost":25}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Product retrieval", decodeError(t, w).Detail)
	})

	t.Run("update invalid id", func(t *testing.T) {
		svc := &mockProductService{}
		w := doRequest(t, newRouter(svc), http.MethodPut, "/products/-1", "seller", strings.NewReader(`{}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Product retrieval", decodeError(t, w).Detail)
		assert.False(t, svc.called)
	})

	t.Run("delete", func(t *testing.T) {
		svc := &mockProductService{}
		w := doRequest(t, newRouter(svc), http.MethodDelete, "/products/3", "seller", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 3, svc.id)
	})

	t.Run("delete by buyer", func(t *testing.T) {
		svc := &mockProductService{}
		w := doRequest(t, newRouter(svc), http.MethodDelete, "/products/3", "buyer", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.False(t, svc.called)
	})
}

type mockMachineService struct {
	balance   int
	result    *models.PurchaseResult
	products  []models.Product
	err       error
	principal *models.Principal
	amount    int
	productID int
	called    bool
}

func (m *mockMachineService) Deposit(ctx context.Context, principal *models.Principal, amount int) (int, error) {
	m.called, m.principal, m.amount = true, principal, amount
	if m.err != nil {
		return 0, m.err
	}
	return m.balance, nil
}

func (m *mockMachineService) Buy(ctx context.Context, principal *models.Principal, productID, quantity int) (*models.PurchaseResult, error) {
	m.called, m.principal, m.productID, m.amount = true, principal, productID, quantity
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockMachineService) Purchases(ctx context.Context, principal *models.Principal) ([]models.Product, error) {
	m.called, m.principal = true, principal
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockMachineService) AvailableProducts(ctx context.Context) ([]models.Product, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

type mockResetter struct {
	err       error
	principal *models.Principal
}

func (m *mockResetter) Reset(ctx context.Context, principal *models.Principal) error {
	m.principal = principal
	return m.err
}

func TestMachineHandler(t *testing.T) {
	newRouter := func(svc *mockMachineService, resetter *mockResetter) http.Handler {
		r := chi.NewRouter()
		NewMachineHandler(svc, resetter, zap.NewNop(), false).RegisterRoutes(r, testAuthMiddleware())
		return r
	}

	t.Run("deposit", func(t *testing.T) {
		svc := &mockMachineService{balance: 70}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodPost, "/machine/deposit?amount=50", "buyer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Deposited successfully","success":true,"balance":70}`, w.Body.String())
		assert.Equal(t, 50, svc.amount)
		assert.Equal(t, testBuyer, svc.principal)
	})

	t.Run("deposit by seller", func(t *testing.T) {
		svc := &mockMachineService{balance: 5}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodPost, "/machine/deposit?amount=5", "seller", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, testSeller, svc.principal)
	})

	t.Run("deposit non numeric amount", func(t *testing.T) {
		svc := &mockMachineService{}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodPost, "/machine/deposit?amount=ten", "buyer", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"Amount must be an integer"}, decodeError(t, w).Errors)
		assert.False(t, svc.called)
	})

	t.Run("deposit invalid coin", func(t *testing.T) {
		svc := &mockMachineService{err: models.NewValidationError("Amount must be one of the following coins: 5, 10, 20, 50, 100")}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodPost, "/machine/deposit?amount=3", "buyer", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("deposit without session", func(t *testing.T) {
		svc := &mockMachineService{err: models.ErrSessionNotFound}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodPost, "/machine/deposit?amount=5", "buyer", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Session not found", decodeError(t, w).Detail)
	})

	t.Run("buy", func(t *testing.T) {
		svc := &mockMachineService{result: &models.PurchaseResult{
			Product:    models.ProductResponse{ID: 3, ProductName: "Soda", Cost: 20, AmountAvailable: 9, SellerID: 2},
			Quantity:   1,
			TotalSpent: 20,
			Balance:    5,
			Change:     []models.CoinCount{{Coin: 5, Count: 1}},
		}}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodGet, "/machine/buy/3/1", "buyer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"product":{"id":3,"productName":"Soda","cost":20,"amountAvailable":9,"sellerId":2},
			"quantity":1,"totalSpent":20,"balance":5,"change":[{"coin":5,"count":1}]
		}`, w.Body.String())
		assert.Equal(t, 3, svc.productID)
		assert.Equal(t, 1, svc.amount)
	})

	t.Run("buy by seller", func(t *testing.T) {
		svc := &mockMachineService{}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodGet, "/machine/buy/3/1", "seller", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "User is not a buyer", decodeError(t, w).Detail)
		assert.False(t, svc.called)
	})

	t.Run("buy insufficient funds", func(t *testing.T) {
		svc := &mockMachineService{err: models.ErrInsufficientFunds}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodGet, "/machine/buy/3/1", "buyer", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Insufficient funds", decodeError(t, w).Detail)
	})

	t.Run("buy unknown product id", func(t *testing.T) {
		svc := &mockMachineService{}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodGet, "/machine/buy/soda/1", "buyer", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, svc.called)
	})

	t.Run("buy non numeric amount", func(t *testing.T) {
		svc := &mockMachineService{}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodGet, "/machine/buy/3/many", "buyer", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, svc.called)
	})

	t.Run("products", func(t *testing.T) {
		svc := &mockMachineService{products: []models.Product{}}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodGet, "/machine/products", "buyer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("purchases", func(t *testing.T) {
		svc := &mockMachineService{products: []models.Product{{ID: 3, ProductName: "Soda", Cost: 20, SellerID: 2}}}
		w := doRequest(t, newRouter(svc, &mockResetter{}), http.MethodGet, "/machine/purchases", "buyer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, testBuyer, svc.principal)
	})

	t.Run("reset", func(t *testing.T) {
		resetter := &mockResetter{}
		w := doRequest(t, newRouter(&mockMachineService{}, resetter), http.MethodPost, "/machine/reset", "buyer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Session reset successfully","success":true}`, w.Body.String())
		assert.Equal(t, testBuyer, resetter.principal)
	})

	t.Run("reset failure", func(t *testing.T) {
		resetter := &mockResetter{err: errors.New("deadlock")}
		w := doRequest(t, newRouter(&mockMachineService{}, resetter), http.MethodPost, "/machine/reset", "buyer", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", decodeError(t, w).Detail)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := doRequest(t, newRouter(&mockMachineService{}, &mockResetter{}), http.MethodGet, "/machine/products", "forged", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Could not validate credentials", decodeError(t, w).Detail)
	})
}

type mockStatusRepository struct {
	now time.Time
	err error
}

func (m *mockStatusRepository) SystemTime(ctx context.Context) (time.Time, error) {
	return m.now, m.err
}

func TestStatusHandler(t *testing.T) {
	newRouter := func(repo *mockStatusRepository) http.Handler {
		r := chi.NewRouter()
		NewStatusHandler(repo, zap.NewNop(), false).RegisterRoutes(r)
		return r
	}

	t.Run("alive", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)
		w := doRequest(t, newRouter(&mockStatusRepository{now: now}), http.MethodGet, "/heartbeat", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","system_time":"2024-03-01 12:30:45"}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		w := doRequest(t, newRouter(&mockStatusRepository{err: errors.New("connection refused")}), http.MethodGet, "/heartbeat", "", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", decodeError(t, w).Detail)
	})
}
