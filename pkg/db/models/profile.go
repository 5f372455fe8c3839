package models

// Profile stores the shipping/contact details captured per user. The checkout
// engine snapshots the address fields onto each order header.
type Profile struct {
	UserID    int64  `gorm:"column:user_id;primaryKey" json:"user_id"`
	FirstName string `gorm:"column:first_name" json:"first_name"`
	LastName  string `gorm:"column:last_name" json:"last_name"`
	Phone     string `gorm:"column:phone" json:"phone"`
	Email     string `gorm:"column:email" json:"email"`
	Address   string `gorm:"column:address" json:"address"`
	City      string `gorm:"column:city" json:"city"`
	State     string `gorm:"column:state" json:"state"`
	Zip       string `gorm:"column:zip" json:"zip"`
}

// TableName overrides gorm's pluralized default.
func (Profile) TableName() string { return "profiles" }
