package cart

import (
	"context"

	"github.com/easyshop/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages the persistent shopping_cart rows. Every operation is a
// single-row or single-predicate statement; cross-row consistency during
// checkout is the checkout engine's responsibility.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ItemsByUser returns all cart rows for the user ordered by product id.
func (r *Repository) ItemsByUser(ctx context.Context, userID int64) ([]models.ShoppingCartItem, error) {
	var items []models.ShoppingCartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("product_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddItem inserts the product with quantity 1, or increments the existing row.
func (r *Repository) AddItem(ctx context.Context, userID, productID int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.ShoppingCartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		UpdateColumn("quantity", gorm.Expr("quantity + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.ShoppingCartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  1,
	}).Error
}

// SetQuantity overwrites the quantity for one cart row. Zero or negative
// quantities delete the row.
func (r *Repository) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, userID, productID)
	}
	result := r.db.WithContext(ctx).
		Model(&models.ShoppingCartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		UpdateColumn("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveItem deletes a single cart row.
func (r *Repository) RemoveItem(ctx context.Context, userID, productID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.ShoppingCartItem{}).Error
}

// ClearUser removes every cart row for the user.
func (r *Repository) ClearUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.ShoppingCartItem{}).Error
}

// ClearUserMatching deletes exactly the (product, quantity) rows in snapshot.
// It reports changed=true when the live cart no longer matches the snapshot:
// a row was mutated or removed, or a new row appeared since aggregation. The
// caller is expected to run this inside a transaction and roll back on change.
func (r *Repository) ClearUserMatching(ctx context.Context, userID int64, snapshot []models.ShoppingCartItem) (changed bool, err error) {
	deleted := int64(0)
	for _, item := range snapshot {
		result := r.db.WithContext(ctx).
			Where("user_id = ? AND product_id = ? AND quantity = ?", userID, item.ProductID, item.Quantity).
			Delete(&models.ShoppingCartItem{})
		if result.Error != nil {
			return false, result.Error
		}
		deleted += result.RowsAffected
	}
	if deleted != int64(len(snapshot)) {
		return true, nil
	}

	// Rows whose product has vanished are dropped at aggregation and never
	// make it into the snapshot. Checkout still consumes them; left behind
	// they would read as a concurrent mutation on every retry.
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND product_id NOT IN (?)", userID,
			r.db.Model(&models.Product{}).Select("product_id")).
		Delete(&models.ShoppingCartItem{}).Error
	if err != nil {
		return false, err
	}

	var remaining int64
	err = r.db.WithContext(ctx).
		Model(&models.ShoppingCartItem{}).
		Where("user_id = ?", userID).
		Count(&remaining).Error
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}
