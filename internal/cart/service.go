package cart

import (
	"context"
	"fmt"

	"github.com/easyshop/storefront-backend/pkg/db"
	"github.com/easyshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/easyshop/storefront-backend/pkg/errors"
	"github.com/easyshop/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type itemLister interface {
	ItemsByUser(ctx context.Context, userID int64) ([]models.ShoppingCartItem, error)
	AddItem(ctx context.Context, userID, productID int64) error
	SetQuantity(ctx context.Context, userID, productID int64, quantity int) error
	ClearUser(ctx context.Context, userID int64) error
}

type productLoader interface {
	FindProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// Service aggregates the persisted cart rows into a priced Cart view and
// forwards the row-level mutations.
type Service interface {
	GetCart(ctx context.Context, userID int64) (*Cart, error)
	AddToCart(ctx context.Context, userID, productID int64) (*Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (*Cart, error)
	ClearCart(ctx context.Context, userID int64) error
}

type service struct {
	repo     itemLister
	products productLoader
	logg     *logger.Logger
}

// NewService builds the cart aggregation service.
func NewService(repo itemLister, products productLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products, logg: logg}, nil
}

// GetCart joins the user's cart rows with product snapshots. Rows whose
// product no longer resolves are dropped from the aggregate rather than
// failing the whole read.
func (s *service) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	items, err := s.repo.ItemsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}

	result := &Cart{UserID: userID, Lines: make([]CartLine, 0, len(items))}
	for _, item := range items {
		product, err := s.products.FindProductByID(ctx, item.ProductID)
		if err != nil {
			if db.IsNotFound(err) {
				if s.logg != nil {
					ctx := s.logg.WithFields(ctx, map[string]any{
						"user_id":    userID,
						"product_id": item.ProductID,
					})
					s.logg.Warn(ctx, "cart references missing product, dropping line")
				}
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve cart product")
		}
		result.Lines = append(result.Lines, CartLine{
			ProductID:       product.ID,
			ProductName:     product.Name,
			UnitPrice:       product.Price,
			Quantity:        item.Quantity,
			DiscountPercent: decimal.Zero,
		})
	}
	return result, nil
}

func (s *service) AddToCart(ctx context.Context, userID, productID int64) (*Cart, error) {
	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve product")
	}
	if err := s.repo.AddItem(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	return s.GetCart(ctx, userID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if err := s.repo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	return s.GetCart(ctx, userID)
}

func (s *service) ClearCart(ctx context.Context, userID int64) error {
	if err := s.repo.ClearUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}
