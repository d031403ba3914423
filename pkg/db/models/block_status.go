package models

import "time"

// BlockStatus marks a user as blocked from content requests. A user is
// blocked iff a row exists with Unblocked=false; absence of a row means
// unblocked.
type BlockStatus struct {
	UserID      int64      `gorm:"column:user_id;primaryKey"`
	BlockedAt   time.Time  `gorm:"column:blocked_at;not null"`
	Unblocked   bool       `gorm:"column:unblocked;not null;default:false"`
	UnblockedAt *time.Time `gorm:"column:unblocked_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (BlockStatus) TableName() string { return "block_statuses" }
