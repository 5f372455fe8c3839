package models

import "github.com/shopspring/decimal"

// Product is a catalog listing. Price reflects the current sell price; orders
// never reference it after checkout, each line item carries its own snapshot.
type Product struct {
	ID          int64           `gorm:"column:product_id;primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	CategoryID  int64           `gorm:"column:category_id;not null" json:"category_id"`
	Description string          `gorm:"column:description" json:"description"`
	Color       string          `gorm:"column:color" json:"color"`
	Stock       int             `gorm:"column:stock;not null;default:0" json:"stock"`
	Featured    bool            `gorm:"column:featured;not null;default:false" json:"featured"`
	ImageURL    string          `gorm:"column:image_url" json:"image_url"`
}

// TableName overrides gorm's pluralized default.
func (Product) TableName() string { return "products" }
