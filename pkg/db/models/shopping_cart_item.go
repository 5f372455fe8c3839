package models

// ShoppingCartItem is one row of a user's mutable cart. Uniqueness holds on
// (user_id, product_id); quantity is always positive, a zero update deletes
// the row instead.
type ShoppingCartItem struct {
	UserID    int64 `gorm:"column:user_id;primaryKey" json:"user_id"`
	ProductID int64 `gorm:"column:product_id;primaryKey" json:"product_id"`
	Quantity  int   `gorm:"column:quantity;not null" json:"quantity"`
}

// TableName overrides gorm's pluralized default.
func (ShoppingCartItem) TableName() string { return "shopping_cart" }
