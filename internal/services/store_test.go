package services

import (
	"context"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vendingmachine/backend/internal/auth"
	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory implementation of the repositories.
// Transactions hold a single store-wide lock, which stands in for InnoDB row locks,
// and restore a snapshot when the transaction function fails.
type memStore struct {
	mu       sync.Mutex
	users    map[int]models.User
	products map[int]models.Product
	sessions map[int]models.Session
	lines    []models.SessionProduct
	nextID   int
	failures map[string]error
	txCount  int
}

type inTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int]models.User{},
		products: map[int]models.Product{},
		sessions: map[int]models.Session{},
		failures: map[string]error{},
	}
}

// failOn makes the named repository method return err
func (m *memStore) failOn(method string, err error) {
	m.failures[method] = err
}

func (m *memStore) fail(method string) error {
	return m.failures[method]
}

// lock takes the store lock unless the caller already holds it through a transaction
func (m *memStore) lock(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	if err := m.fail("WithinTx"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	users, products, sessions := maps.Clone(m.users), maps.Clone(m.products), maps.Clone(m.sessions)
	lines, nextID := slices.Clone(m.lines), m.nextID

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		m.users, m.products, m.sessions, m.lines, m.nextID = users, products, sessions, lines, nextID
		return err
	}
	return nil
}

func (m *memStore) deleteLines(keep func(models.SessionProduct) bool) {
	m.lines = slices.DeleteFunc(m.lines, func(line models.SessionProduct) bool { return !keep(line) })
}

// memUsers implements UserRepository
type memUsers struct{ *memStore }

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	defer r.lock(ctx)()
	if err := r.fail("Users.Create"); err != nil {
		return err
	}
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return models.ErrUsernameTaken
		}
	}
	user.ID = r.id()
	r.users[user.ID] = *user
	return nil
}

func (r memUsers) get(id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &user, nil
}

func (r memUsers) GetByID(ctx context.Context, id int) (*models.User, error) {
	defer r.lock(ctx)()
	if err := r.fail("Users.GetByID"); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer r.lock(ctx)()
	if err := r.fail("Users.GetByUsername"); err != nil {
		return nil, err
	}
	for _, user := range r.users {
		if user.Username == username {
			return &user, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	defer r.lock(ctx)()
	if err := r.fail("Users.ExistsByUsername"); err != nil {
		return false, err
	}
	for _, user := range r.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r memUsers) List(ctx context.Context) ([]models.User, error) {
	defer r.lock(ctx)()
	if err := r.fail("Users.List"); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(r.users))
	for _, id := range slices.Sorted(maps.Keys(r.users)) {
		users = append(users, r.users[id])
	}
	return users, nil
}

func (r memUsers) LockByID(ctx context.Context, id int) (*models.User, error) {
	if err := r.fail("Users.LockByID"); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r memUsers) Update(ctx context.Context, user *models.User) error {
	defer r.lock(ctx)()
	if err := r.fail("Users.Update"); err != nil {
		return err
	}
	stored, ok := r.users[user.ID]
	if !ok {
		return nil
	}
	stored.HashedPassword = user.HashedPassword
	stored.Disabled = user.Disabled
	r.users[user.ID] = stored
	return nil
}

func (r memUsers) Delete(ctx context.Context, id int) error {
	defer r.lock(ctx)()
	if err := r.fail("Users.Delete"); err != nil {
		return err
	}
	if _, ok := r.users[id]; !ok {
		return models.ErrUserNotFound
	}
	delete(r.users, id)
	for productID, product := range r.products {
		if product.SellerID == id {
			delete(r.products, productID)
			r.deleteLines(func(line models.SessionProduct) bool { return line.ProductID != productID })
		}
	}
	for sessionID, session := range r.sessions {
		if session.UserID == id {
			delete(r.sessions, sessionID)
			r.deleteLines(func(line models.SessionProduct) bool { return line.SessionID != sessionID })
		}
	}
	return nil
}

func (r memUsers) ClearExpiredDeposits(ctx context.Context, now time.Time) error {
	defer r.lock(ctx)()
	if err := r.fail("Users.ClearExpiredDeposits"); err != nil {
		return err
	}
	expired, active := map[int]bool{}, map[int]bool{}
	for _, session := range r.sessions {
		if session.IsActive(now) {
			active[session.UserID] = true
		} else {
			expired[session.UserID] = true
		}
	}
	for id, user := range r.users {
		if user.Role == models.RoleBuyer && expired[id] && !active[id] {
			zero := 0
			user.Deposit = &zero
			r.users[id] = user
		}
	}
	return nil
}

func (r memUsers) SetDeposit(ctx context.Context, userID int, amount int) error {
	defer r.lock(ctx)()
	if err := r.fail("Users.SetDeposit"); err != nil {
		return err
	}
	user, ok := r.users[userID]
	if ok && user.Role == models.RoleBuyer {
		user.Deposit = &amount
		r.users[userID] = user
	}
	return nil
}

// memProducts implements ProductRepository
type memProducts struct{ *memStore }

func (r memProducts) Create(ctx context.Context, product *models.Product) error {
	defer r.lock(ctx)()
	if err := r.fail("Products.Create"); err != nil {
		return err
	}
	product.ID = r.id()
	r.products[product.ID] = *product
	return nil
}

func (r memProducts) get(id int) (*models.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, models.ErrProductNotFound
	}
	return &product, nil
}

func (r memProducts) GetByID(ctx context.Context, id int) (*models.Product, error) {
	defer r.lock(ctx)()
	if err := r.fail("Products.GetByID"); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r memProducts) GetByIDForUpdate(ctx context.Context, id int) (*models.Product, error) {
	if err := r.fail("Products.GetByIDForUpdate"); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r memProducts) list(available bool) []models.Product {
	products := make([]models.Product, 0, len(r.products))
	for _, id := range slices.Sorted(maps.Keys(r.products)) {
		if !available || r.products[id].AmountAvailable > 0 {
			products = append(products, r.products[id])
		}
	}
	return products
}

func (r memProducts) List(ctx context.Context) ([]models.Product, error) {
	defer r.lock(ctx)()
	if err := r.fail("Products.List"); err != nil {
		return nil, err
	}
	return r.list(false), nil
}

func (r memProducts) ListAvailable(ctx context.Context) ([]models.Product, error) {
	defer r.lock(ctx)()
	if err := r.fail("Products.ListAvailable"); err != nil {
		return nil, err
	}
	return r.list(true), nil
}

func (r memProducts) Update(ctx context.Context, product *models.Product) error {
	defer r.lock(ctx)()
	if err := r.fail("Products.Update"); err != nil {
		return err
	}
	r.products[product.ID] = *product
	return nil
}

func (r memProducts) Delete(ctx context.Context, id int) error {
	defer r.lock(ctx)()
	if err := r.fail("Products.Delete"); err != nil {
		return err
	}
	if _, ok := r.products[id]; !ok {
		return models.ErrProductNotFound
	}
	delete(r.products, id)
	r.deleteLines(func(line models.SessionProduct) bool { return line.ProductID != id })
	return nil
}

func (r memProducts) DecrementStock(ctx context.Context, id int, quantity int) error {
	defer r.lock(ctx)()
	if err := r.fail("Products.DecrementStock"); err != nil {
		return err
	}
	product, ok := r.products[id]
	if !ok || product.AmountAvailable < quantity {
		return models.ErrInsufficientStock
	}
	product.AmountAvailable -= quantity
	r.products[id] = product
	return nil
}

// memSessions implements SessionRepository
type memSessions struct{ *memStore }

func (r memSessions) Create(ctx context.Context, session *models.Session) error {
	defer r.lock(ctx)()
	if err := r.fail("Sessions.Create"); err != nil {
		return err
	}
	session.ID = r.id()
	r.sessions[session.ID] = *session
	return nil
}

func (r memSessions) get(id int) (*models.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return &session, nil
}

func (r memSessions) GetByID(ctx context.Context, id int) (*models.Session, error) {
	defer r.lock(ctx)()
	if err := r.fail("Sessions.GetByID"); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r memSessions) GetByIDForUpdate(ctx context.Context, id int) (*models.Session, error) {
	if err := r.fail("Sessions.GetByIDForUpdate"); err != nil {
		return nil, err
	}
	return r.get(id)
}

func (r memSessions) GetLatestByUserID(ctx context.Context, userID int) (*models.Session, error) {
	defer r.lock(ctx)()
	if err := r.fail("Sessions.GetLatestByUserID"); err != nil {
		return nil, err
	}
	var latest *models.Session
	for _, session := range r.sessions {
		if session.UserID == userID && (latest == nil || session.ID > latest.ID) {
			s := session
			latest = &s
		}
	}
	if latest == nil {
		return nil, models.ErrSessionNotFound
	}
	return latest, nil
}

func (r memSessions) UpdateDepositedAmount(ctx context.Context, id int, amount int) error {
	defer r.lock(ctx)()
	if err := r.fail("Sessions.UpdateDepositedAmount"); err != nil {
		return err
	}
	session, ok := r.sessions[id]
	if ok {
		session.DepositedAmount = amount
		r.sessions[id] = session
	}
	return nil
}

func (r memSessions) deleteExpired(match func(models.Session) bool) int64 {
	var deleted int64
	for id, session := range r.sessions {
		if match(session) {
			delete(r.sessions, id)
			r.deleteLines(func(line models.SessionProduct) bool { return line.SessionID != id })
			deleted++
		}
	}
	return deleted
}

func (r memSessions) DeleteExpiredByUserID(ctx context.Context, userID int, now time.Time) (int64, error) {
	defer r.lock(ctx)()
	if err := r.fail("Sessions.DeleteExpiredByUserID"); err != nil {
		return 0, err
	}
	return r.deleteExpired(func(s models.Session) bool { return s.UserID == userID && !s.IsActive(now) }), nil
}

func (r memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	defer r.lock(ctx)()
	if err := r.fail("Sessions.DeleteExpired"); err != nil {
		return 0, err
	}
	return r.deleteExpired(func(s models.Session) bool { return !s.IsActive(now) }), nil
}

// memLines implements SessionProductRepository
type memLines struct{ *memStore }

func (r memLines) CreateBatch(ctx context.Context, sessionID, productID, quantity int, createdAt time.Time) error {
	defer r.lock(ctx)()
	if err := r.fail("Lines.CreateBatch"); err != nil {
		return err
	}
	for range quantity {
		r.lines = append(r.lines, models.SessionProduct{ID: r.id(), SessionID: sessionID, ProductID: productID, CreatedAt: createdAt})
	}
	return nil
}

func (r memLines) DeleteBySessionID(ctx context.Context, sessionID int) error {
	defer r.lock(ctx)()
	if err := r.fail("Lines.DeleteBySessionID"); err != nil {
		return err
	}
	r.deleteLines(func(line models.SessionProduct) bool { return line.SessionID != sessionID })
	return nil
}

func (r memLines) ListProductsBySessionID(ctx context.Context, sessionID int) ([]models.Product, error) {
	defer r.lock(ctx)()
	if err := r.fail("Lines.ListProductsBySessionID"); err != nil {
		return nil, err
	}
	products := make([]models.Product, 0)
	for _, line := range r.lines {
		if line.SessionID == sessionID {
			products = append(products, r.products[line.ProductID])
		}
	}
	return products, nil
}

func (r memLines) expiredSession(id int, userID int, now time.Time) bool {
	session, ok := r.sessions[id]
	return ok && !session.IsActive(now) && (userID == 0 || session.UserID == userID)
}

func (r memLines) DeleteExpiredByUserID(ctx context.Context, userID int, now time.Time) error {
	defer r.lock(ctx)()
	if err := r.fail("Lines.DeleteExpiredByUserID"); err != nil {
		return err
	}
	r.deleteLines(func(line models.SessionProduct) bool { return !r.expiredSession(line.SessionID, userID, now) })
	return nil
}

func (r memLines) DeleteExpired(ctx context.Context, now time.Time) error {
	defer r.lock(ctx)()
	if err := r.fail("Lines.DeleteExpired"); err != nil {
		return err
	}
	r.deleteLines(func(line models.SessionProduct) bool { return !r.expiredSession(line.SessionID, 0, now) })
	return nil
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const (
	testPassword       = "secret-password"
	testSessionTimeout = time.Hour
)

// testEnv wires every service to one in-memory store
type testEnv struct {
	store    *memStore
	clock    *fakeClock
	tokens   *auth.TokenGenerator
	auth     *authService
	users    *userService
	products *productService
	machine  *machineService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	store := newMemStore()
	clock := &fakeClock{now: time.Now().UTC().Truncate(time.Second)}

	tokens, err := auth.NewTokenGenerator("test-secret-key", "HS256")
	require.NoError(t, err)

	authSvc := NewAuthService(store, memUsers{store}, memSessions{store}, memLines{store}, tokens, testSessionTimeout, logger)
	authSvc.now = clock.Now

	machineSvc := NewMachineService(store, memUsers{store}, memProducts{store}, memSessions{store}, memLines{store}, logger)
	machineSvc.now = clock.Now

	return &testEnv{
		store:    store,
		clock:    clock,
		tokens:   tokens,
		auth:     authSvc,
		users:    NewUserService(memUsers{store}, logger),
		products: NewProductService(store, memProducts{store}, logger),
		machine:  machineSvc,
	}
}

// seedUser stores a user with testPassword hashed at minimum cost
func (e *testEnv) seedUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{Username: username, HashedPassword: string(hash), Role: role}
	if role == models.RoleBuyer {
		zero := 0
		user.Deposit = &zero
	}
	require.NoError(t, memUsers{e.store}.Create(context.Background(), user))
	return user
}

func (e *testEnv) seedProduct(t *testing.T, sellerID, cost, amount int) *models.Product {
	t.Helper()
	product := &models.Product{ProductName: "Product", Cost: cost, AmountAvailable: amount, SellerID: sellerID}
	require.NoError(t, memProducts{e.store}.Create(context.Background(), product))
	return product
}

// login opens a session for the user and resolves it into a principal
func (e *testEnv) login(t *testing.T, user *models.User) *models.Principal {
	t.Helper()
	token, err := e.auth.Login(context.Background(), user.Username, testPassword)
	require.NoError(t, err)
	principal, err := e.auth.Resolve(context.Background(), token.AccessToken)
	require.NoError(t, err)
	return principal
}

func (e *testEnv) session(t *testing.T, id int) models.Session {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	session, ok := e.store.sessions[id]
	require.True(t, ok, "session %d not found", id)
	return session
}

func (e *testEnv) user(t *testing.T, id int) models.User {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	user, ok := e.store.users[id]
	require.True(t, ok, "user %d not found", id)
	return user
}

func (e *testEnv) product(t *testing.T, id int) models.Product {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	product, ok := e.store.products[id]
	require.True(t, ok, "product %d not found", id)
	return product
}

func (e *testEnv) lineCount() int {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return len(e.store.lines)
}
