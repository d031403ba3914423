package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/movielex/movielex-backend/pkg/enums"
)

// DeliveryStatusSent is the only status an append-only delivery row carries;
// failed sends are never recorded.
const DeliveryStatusSent = "sent"

// DeliveryRecord is an append-only log entry for one successful content
// delivery. Multiple rows per (user, content) are expected for stats; the
// first one is what "already paid" checks look at.
type DeliveryRecord struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID      int64             `gorm:"column:user_id;not null;index:idx_deliveries_user_content"`
	ContentName string            `gorm:"column:content_name;not null;index:idx_deliveries_user_content"`
	Reason      enums.GrantReason `gorm:"column:reason;not null"`
	Status      string            `gorm:"column:status;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (DeliveryRecord) TableName() string { return "delivery_records" }
