package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/easyshop/storefront-backend/internal/cart"
	"github.com/easyshop/storefront-backend/internal/catalog"
	"github.com/easyshop/storefront-backend/internal/orders"
	"github.com/easyshop/storefront-backend/internal/profiles"
	"github.com/easyshop/storefront-backend/internal/users"
	"github.com/easyshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/easyshop/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeLockStore is an in-memory stand-in for the Redis commands the lock uses.
type fakeLockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{data: map[string]string{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.data[key]; held {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

type sqliteTransactor struct {
	conn *gorm.DB
}

func (s sqliteTransactor) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.conn.WithContext(ctx).Transaction(fn)
}

type checkoutHarness struct {
	conn     *gorm.DB
	users    *users.Repository
	profiles *profiles.Repository
	catalog  *catalog.Repository
	cartRepo *cart.Repository
	cartSvc  cart.Service
	orders   orders.Repository
	locks    *fakeLockStore
	svc      Service
}

func setupCheckout(t *testing.T) *checkoutHarness {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE users (
  user_id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  hashed_password TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'ROLE_USER',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE profiles (
  user_id INTEGER PRIMARY KEY,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  zip TEXT NOT NULL DEFAULT ''
);`,
		`CREATE TABLE categories (
  category_id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT ''
);`,
		`CREATE TABLE products (
  product_id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  category_id INTEGER NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  color TEXT NOT NULL DEFAULT '',
  stock INTEGER NOT NULL DEFAULT 0,
  featured INTEGER NOT NULL DEFAULT 0,
  image_url TEXT NOT NULL DEFAULT ''
);`,
		`CREATE TABLE shopping_cart (
  user_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  PRIMARY KEY (user_id, product_id)
);`,
		`CREATE TABLE orders (
  order_id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  date DATETIME NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  zip TEXT NOT NULL DEFAULT '',
  shipping_amount NUMERIC NOT NULL,
  total_amount NUMERIC NOT NULL
);`,
		`CREATE TABLE order_line_items (
  order_line_item_id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  sales_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  discount NUMERIC NOT NULL DEFAULT 0
);`,
	} {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	h := &checkoutHarness{
		conn:     conn,
		users:    users.NewRepository(conn),
		profiles: profiles.NewRepository(conn),
		catalog:  catalog.NewRepository(conn),
		cartRepo: cart.NewRepository(conn),
		orders:   orders.NewRepository(conn),
		locks:    newFakeLockStore(),
	}

	cartSvc, err := cart.NewService(h.cartRepo, h.catalog, nil)
	require.NoError(t, err)
	h.cartSvc = cartSvc

	h.svc = h.buildService(t, cartSvc)
	return h
}

func (h *checkoutHarness) buildService(t *testing.T, aggregator cartAggregator) Service {
	t.Helper()

	locks, err := NewUserLocks(h.locks, testLockKey, time.Minute)
	require.NoError(t, err)

	svc, err := NewService(
		h.users,
		h.profiles,
		aggregator,
		h.cartRepo,
		h.orders,
		sqliteTransactor{conn: h.conn},
		locks,
		decimal.RequireFromString("5.99"),
		nil,
	)
	require.NoError(t, err)
	return svc
}

func testLockKey(userID int64) string {
	return fmt.Sprintf("test:checkout:lock:%d", userID)
}

func (h *checkoutHarness) seedUser(t *testing.T, username string) *models.User {
	t.Helper()

	user, err := h.users.Create(context.Background(), &models.User{
		Username:       username,
		HashedPassword: "x",
		Role:           models.RoleUser,
	})
	require.NoError(t, err)
	return user
}

func (h *checkoutHarness) seedProfile(t *testing.T, userID int64) {
	t.Helper()

	_, err := h.profiles.Upsert(context.Background(), &models.Profile{
		UserID:  userID,
		Address: "1 Main St",
		City:    "Springfield",
		State:   "IL",
		Zip:     "62701",
	})
	require.NoError(t, err)
}

func (h *checkoutHarness) seedProduct(t *testing.T, name, price string) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: 1,
		Stock:      10,
	}
	require.NoError(t, h.conn.Create(product).Error)
	return product
}

func (h *checkoutHarness) addToCart(t *testing.T, userID, productID int64, quantity int) {
	t.Helper()

	require.NoError(t, h.conn.Create(&models.ShoppingCartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}).Error)
}

func (h *checkoutHarness) countOrders(t *testing.T) int64 {
	t.Helper()

	var n int64
	require.NoError(t, h.conn.Model(&models.Order{}).Count(&n).Error)
	return n
}

func (h *checkoutHarness) countLineItems(t *testing.T) int64 {
	t.Helper()

	var n int64
	require.NoError(t, h.conn.Model(&models.OrderLineItem{}).Count(&n).Error)
	return n
}

func TestCheckoutCreatesOrderAndClearsCart(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	user := h.seedUser(t, "alice")
	h.seedProfile(t, user.ID)
	widget := h.seedProduct(t, "Widget", "10.00")
	gadget := h.seedProduct(t, "Gadget", "5.00")
	h.addToCart(t, user.ID, widget.ID, 2)
	h.addToCart(t, user.ID, gadget.ID, 1)

	order, err := h.svc.Checkout(ctx, user.ID)
	require.NoError(t, err)
	require.NotZero(t, order.ID)

	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("25.00")), "total: %s", order.TotalAmount)
	assert.True(t, order.ShippingAmount.Equal(decimal.RequireFromString("5.99")))
	assert.Equal(t, "1 Main St", order.Address)
	assert.Equal(t, "Springfield", order.City)
	require.Len(t, order.LineItems, 2)

	persisted, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, persisted.LineItems, 2)
	assert.True(t, persisted.LineItems[0].SalesPrice.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, 2, persisted.LineItems[0].Quantity)

	after, err := h.cartSvc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, after.IsEmpty(), "cart should be empty after checkout")
}

func TestCheckoutPricesAreSnapshots(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	user := h.seedUser(t, "bob")
	widget := h.seedProduct(t, "Widget", "10.00")
	h.addToCart(t, user.ID, widget.ID, 1)

	order, err := h.svc.Checkout(ctx, user.ID)
	require.NoError(t, err)

	err = h.conn.Model(&models.Product{}).
		Where("product_id = ?", widget.ID).
		Update("price", decimal.RequireFromString("99.99")).Error
	require.NoError(t, err)

	persisted, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, persisted.LineItems, 1)
	assert.True(t, persisted.LineItems[0].SalesPrice.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, persisted.TotalAmount.Equal(decimal.RequireFromString("10.00")))
}

func TestCheckoutEmptyCart(t *testing.T) {
	h := setupCheckout(t)

	user := h.seedUser(t, "carol")

	_, err := h.svc.Checkout(context.Background(), user.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, h.countOrders(t))
}

func TestCheckoutUnknownUser(t *testing.T) {
	h := setupCheckout(t)

	_, err := h.svc.Checkout(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
	assert.Zero(t, h.countOrders(t))
	assert.Zero(t, h.countLineItems(t))
}

func TestCheckoutTwiceFailsOnEmptiedCart(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	user := h.seedUser(t, "dave")
	widget := h.seedProduct(t, "Widget", "10.00")
	h.addToCart(t, user.ID, widget.ID, 1)

	_, err := h.svc.Checkout(ctx, user.ID)
	require.NoError(t, err)

	_, err = h.svc.Checkout(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, int64(1), h.countOrders(t))
}

func TestCheckoutHeldLockConflicts(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	user := h.seedUser(t, "erin")
	widget := h.seedProduct(t, "Widget", "10.00")
	h.addToCart(t, user.ID, widget.ID, 1)

	held, err := h.locks.SetNX(ctx, testLockKey(user.ID), "other-checkout", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	_, err = h.svc.Checkout(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	assert.Zero(t, h.countOrders(t))

	var remaining int64
	require.NoError(t, h.conn.Model(&models.ShoppingCartItem{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining, "cart must be untouched")

	// The losing attempt must not release the other checkout's lock.
	value, err := h.locks.Get(ctx, testLockKey(user.ID))
	require.NoError(t, err)
	assert.Equal(t, "other-checkout", value)
}

func TestCheckoutWithoutProfileShipsBlankAddress(t *testing.T) {
	h := setupCheckout(t)

	user := h.seedUser(t, "frank")
	widget := h.seedProduct(t, "Widget", "10.00")
	h.addToCart(t, user.ID, widget.ID, 1)

	order, err := h.svc.Checkout(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, order.Address)
	assert.Empty(t, order.Zip)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("10.00")))
}

// mutatingAggregator changes the cart rows after aggregation, simulating a
// concurrent mutation that slips in before the transactional clear.
type mutatingAggregator struct {
	inner  cartAggregator
	conn   *gorm.DB
	mutate func(conn *gorm.DB) error
}

func (m *mutatingAggregator) GetCart(ctx context.Context, userID int64) (*cart.Cart, error) {
	aggregated, err := m.inner.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := m.mutate(m.conn); err != nil {
		return nil, err
	}
	return aggregated, nil
}

func TestCheckoutCartChangedRollsBackEverything(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	user := h.seedUser(t, "grace")
	widget := h.seedProduct(t, "Widget", "10.00")
	h.addToCart(t, user.ID, widget.ID, 1)

	svc := h.buildService(t, &mutatingAggregator{
		inner: h.cartSvc,
		conn:  h.conn,
		mutate: func(conn *gorm.DB) error {
			return conn.Model(&models.ShoppingCartItem{}).
				Where("user_id = ?", user.ID).
				Update("quantity", 5).Error
		},
	})

	_, err := svc.Checkout(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	// Nothing persisted: no orphaned header, no line items.
	assert.Zero(t, h.countOrders(t))
	assert.Zero(t, h.countLineItems(t))

	// The mutated cart row survives for a retry.
	items, err := h.cartRepo.ItemsByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCheckoutReleasesLockOnFailure(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	user := h.seedUser(t, "heidi")

	_, err := h.svc.Checkout(ctx, user.ID)
	require.Error(t, err)

	// Lock released, so a corrected retry can proceed.
	widget := h.seedProduct(t, "Widget", "10.00")
	h.addToCart(t, user.ID, widget.ID, 1)

	_, err = h.svc.Checkout(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.countOrders(t))
}

func TestCheckoutConsumesOrphanedCartRow(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	user := h.seedUser(t, "judy")
	widget := h.seedProduct(t, "Widget", "10.00")
	h.addToCart(t, user.ID, widget.ID, 1)

	// A row whose product has since left the catalog. Aggregation drops it,
	// and checkout must still consume it rather than flag a conflict.
	h.addToCart(t, user.ID, 9999, 1)

	order, err := h.svc.Checkout(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, widget.ID, order.LineItems[0].ProductID)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("10.00")))

	var remaining int64
	require.NoError(t, h.conn.Model(&models.ShoppingCartItem{}).Count(&remaining).Error)
	assert.Zero(t, remaining, "orphaned row goes with the checkout")

	// A retry sees an empty cart, not a permanent conflict.
	_, err = h.svc.Checkout(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, int64(1), h.countOrders(t))
}

// gateAggregator parks the first checkout inside aggregation, with the lock
// held, so a second attempt can race it.
type gateAggregator struct {
	inner   cartAggregator
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateAggregator) GetCart(ctx context.Context, userID int64) (*cart.Cart, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.inner.GetCart(ctx, userID)
}

func TestConcurrentCheckoutsCreateOneOrder(t *testing.T) {
	h := setupCheckout(t)
	ctx := context.Background()

	user := h.seedUser(t, "ivan")
	widget := h.seedProduct(t, "Widget", "10.00")
	h.addToCart(t, user.ID, widget.ID, 2)

	gate := &gateAggregator{
		inner:   h.cartSvc,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := h.buildService(t, gate)

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(ctx, user.ID)
		firstErr <- err
	}()

	// The second attempt runs while the first holds the user's lock.
	<-gate.started
	_, err := svc.Checkout(ctx, user.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	close(gate.release)
	require.NoError(t, <-firstErr)

	assert.Equal(t, int64(1), h.countOrders(t))
	assert.Equal(t, int64(1), h.countLineItems(t))
}
