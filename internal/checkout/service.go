package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/easyshop/storefront-backend/internal/cart"
	"github.com/easyshop/storefront-backend/internal/orders"
	"github.com/easyshop/storefront-backend/pkg/db"
	"github.com/easyshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/easyshop/storefront-backend/pkg/errors"
	"github.com/easyshop/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errCartChanged aborts the transaction when the live cart rows no longer
// match the aggregated snapshot.
var errCartChanged = errors.New("cart changed during checkout")

type userFinder interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type profileFinder interface {
	FindByUserID(ctx context.Context, userID int64) (*models.Profile, error)
}

type cartAggregator interface {
	GetCart(ctx context.Context, userID int64) (*cart.Cart, error)
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns a user's cart into an immutable order. A checkout either
// writes the order header, all line items, and clears the cart, or writes
// nothing at all.
type Service interface {
	Checkout(ctx context.Context, userID int64) (*models.Order, error)
}

type service struct {
	users    userFinder
	profiles profileFinder
	carts    cartAggregator
	cartRows *cart.Repository
	orders   orders.Repository
	tx       transactor
	locks    *UserLocks
	shipping decimal.Decimal
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the checkout engine.
func NewService(
	users userFinder,
	profiles profileFinder,
	carts cartAggregator,
	cartRows *cart.Repository,
	orderRows orders.Repository,
	tx transactor,
	locks *UserLocks,
	shipping decimal.Decimal,
	logg *logger.Logger,
) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile finder required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart aggregator required")
	}
	if cartRows == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if orderRows == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transactor required")
	}
	if locks == nil {
		return nil, fmt.Errorf("checkout locks required")
	}
	if shipping.IsNegative() {
		return nil, fmt.Errorf("shipping amount must not be negative")
	}
	return &service{
		users:    users,
		profiles: profiles,
		carts:    carts,
		cartRows: cartRows,
		orders:   orderRows,
		tx:       tx,
		locks:    locks,
		shipping: shipping,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Checkout resolves the buyer, locks out concurrent attempts for the same
// user, snapshots the cart, and persists the order in a single transaction.
// Prices on the persisted line items are the catalog prices observed during
// aggregation; later catalog edits never touch an existing order.
func (s *service) Checkout(ctx context.Context, userID int64) (*models.Order, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve user")
	}

	lock := s.locks.ForUser(user.ID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquire checkout lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	defer func() {
		if err := lock.Release(ctx); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, user.ID), "releasing checkout lock: "+err.Error())
		}
	}()

	aggregated, err := s.carts.GetCart(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if aggregated.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	order := &models.Order{
		UserID:         user.ID,
		Date:           s.now().UTC(),
		ShippingAmount: s.shipping,
		TotalAmount:    aggregated.Total(),
	}

	// A missing profile only means the order ships without an address
	// snapshot, it never blocks the purchase.
	profile, err := s.profiles.FindByUserID(ctx, user.ID)
	switch {
	case err == nil:
		order.Address = profile.Address
		order.City = profile.City
		order.State = profile.State
		order.Zip = profile.Zip
	case db.IsNotFound(err):
		if s.logg != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, user.ID), "no profile on file, order has no address snapshot")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}

	snapshot := aggregated.Snapshot()
	lineItems := make([]models.OrderLineItem, 0, len(aggregated.Lines))

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txOrders := s.orders.WithTx(tx)
		if _, err := txOrders.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, line := range aggregated.Lines {
			lineItems = append(lineItems, models.OrderLineItem{
				OrderID:    order.ID,
				ProductID:  line.ProductID,
				SalesPrice: line.UnitPrice,
				Quantity:   line.Quantity,
				Discount:   line.DiscountPercent,
			})
		}
		if err := txOrders.CreateLineItems(ctx, lineItems); err != nil {
			return fmt.Errorf("insert line items: %w", err)
		}
		changed, err := s.cartRows.WithTx(tx).ClearUserMatching(ctx, user.ID, snapshot)
		if err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		if changed {
			return errCartChanged
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errCartChanged) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout, please retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}

	order.LineItems = lineItems
	if s.logg != nil {
		ctx := s.logg.WithFields(ctx, map[string]any{
			"user_id":  user.ID,
			"order_id": order.ID,
			"total":    order.TotalAmount.StringFixed(2),
		})
		s.logg.Info(ctx, "checkout completed")
	}
	return order, nil
}
