package models

import "github.com/shopspring/decimal"

// OrderLineItem captures one purchased product as it was priced at checkout
// time. SalesPrice never tracks later catalog price changes.
type OrderLineItem struct {
	ID         int64           `gorm:"column:order_line_item_id;primaryKey;autoIncrement" json:"id"`
	OrderID    int64           `gorm:"column:order_id;not null" json:"order_id"`
	ProductID  int64           `gorm:"column:product_id;not null" json:"product_id"`
	SalesPrice decimal.Decimal `gorm:"column:sales_price;type:numeric(10,2);not null" json:"sales_price"`
	Quantity   int             `gorm:"column:quantity;not null" json:"quantity"`
	Discount   decimal.Decimal `gorm:"column:discount;type:numeric(4,2);not null;default:0" json:"discount"`
}

// TableName overrides gorm's pluralized default.
func (OrderLineItem) TableName() string { return "order_line_items" }
