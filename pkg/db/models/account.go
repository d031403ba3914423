package models

import "time"

// Account is the durable balance record for a chat user. Rows are created on
// first mutation; a user without a row is at the configured default balance.
type Account struct {
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	Balance   int       `gorm:"column:balance;not null;check:balance >= 0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }
