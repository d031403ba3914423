package models

import (
	"time"

	"github.com/movielex/movielex-backend/pkg/enums"
)

// Subscription is a time-bounded entitlement covering one category or the
// whole catalog. The user_id primary key enforces at most one row per user;
// activating a new subscription replaces any existing one wholesale.
type Subscription struct {
	UserID    int64                      `gorm:"column:user_id;primaryKey"`
	Category  enums.SubscriptionCategory `gorm:"column:category;not null"`
	StartAt   time.Time                  `gorm:"column:start_at;not null"`
	EndAt     time.Time                  `gorm:"column:end_at;not null"`
	PricePaid int                        `gorm:"column:price_paid;not null"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Subscription) TableName() string { return "subscriptions" }

// ActiveAt reports whether the subscription window covers the given instant.
func (s Subscription) ActiveAt(now time.Time) bool {
	return !now.Before(s.StartAt) && now.Before(s.EndAt)
}
