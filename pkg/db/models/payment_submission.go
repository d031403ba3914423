package models

import (
	"time"

	"github.com/movielex/movielex-backend/pkg/enums"
)

// PaymentSubmission logs one payment-proof screenshot sent by a user. The
// sequential id is what admin approve/reject actions target; a submission
// transitions out of pending exactly once.
type PaymentSubmission struct {
	ID          int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      int64                  `gorm:"column:user_id;not null;index"`
	Status      enums.SubmissionStatus `gorm:"column:status;not null"`
	Amount      *int                   `gorm:"column:amount"`
	SubmittedAt time.Time              `gorm:"column:submitted_at;not null"`
	ProcessedAt *time.Time             `gorm:"column:processed_at"`
}

func (PaymentSubmission) TableName() string { return "payment_submissions" }
