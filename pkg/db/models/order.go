package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the immutable header written once per successful checkout. The
// address fields are a snapshot of the buyer's profile at checkout time.
type Order struct {
	ID             int64           `gorm:"column:order_id;primaryKey;autoIncrement" json:"id"`
	UserID         int64           `gorm:"column:user_id;not null" json:"user_id"`
	Date           time.Time       `gorm:"column:date;not null" json:"date"`
	Address        string          `gorm:"column:address" json:"address"`
	City           string          `gorm:"column:city" json:"city"`
	State          string          `gorm:"column:state" json:"state"`
	Zip            string          `gorm:"column:zip" json:"zip"`
	ShippingAmount decimal.Decimal `gorm:"column:shipping_amount;type:numeric(10,2);not null" json:"shipping_amount"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(10,2);not null" json:"total_amount"`
	LineItems      []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"line_items"`
}

// TableName overrides gorm's pluralized default.
func (Order) TableName() string { return "orders" }
