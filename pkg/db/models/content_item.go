package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/movielex/movielex-backend/pkg/enums"
)

// ContentItem is one sellable catalog entry. ContentHandle and TrailerHandles
// are opaque references owned by the chat transport (file identifiers).
type ContentItem struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name           string                `gorm:"column:name;not null;uniqueIndex"`
	Title          string                `gorm:"column:title;not null"`
	Category       enums.ContentCategory `gorm:"column:category;not null"`
	PriceAmount    int                   `gorm:"column:price_amount;not null;check:price_amount >= 0"`
	ContentHandle  string                `gorm:"column:content_handle;not null"`
	TrailerHandles []string              `gorm:"column:trailer_handles;serializer:json"`
	Year           int                   `gorm:"column:year"`
	Genre          string                `gorm:"column:genre"`
	Duration       string                `gorm:"column:duration"`
	Rating         float64               `gorm:"column:rating"`
	Description    string                `gorm:"column:description"`
	Director       string                `gorm:"column:director"`
	Cast           string                `gorm:"column:cast_members"`
	Release        string                `gorm:"column:release"`
	Poster         string                `gorm:"column:poster"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (ContentItem) TableName() string { return "content_items" }
