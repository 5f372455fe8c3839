package models

import "time"

// User represents the canonical identity entity.
type User struct {
	ID             int64     `gorm:"column:user_id;primaryKey;autoIncrement" json:"id"`
	Username       string    `gorm:"column:username;not null;uniqueIndex" json:"username"`
	HashedPassword string    `gorm:"column:hashed_password;not null" json:"-"`
	Role           string    `gorm:"column:role;not null;default:'ROLE_USER'" json:"role"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides gorm's pluralized default.
func (User) TableName() string { return "users" }

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)
