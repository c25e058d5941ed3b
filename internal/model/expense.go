package model

import "time"

// Expense is a single spending record owned by exactly one user.
type Expense struct {
	ID          string    `gorm:"size:36;primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	Category    string    `gorm:"size:128;not null" json:"category"`
	UserID      string    `gorm:"size:36;not null;index" json:"userId"`
	ImageURL    string    `gorm:"size:1024" json:"imageUrl,omitempty"`
	// ImageKey is the object key of a receipt uploaded through this service.
	ImageKey  string    `gorm:"size:512" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
