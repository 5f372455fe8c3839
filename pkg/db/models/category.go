package models

// Category groups catalog products.
type Category struct {
	ID          int64  `gorm:"column:category_id;primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"column:name;not null" json:"name"`
	Description string `gorm:"column:description" json:"description"`
}

// TableName overrides gorm's pluralized default.
func (Category) TableName() string { return "categories" }
