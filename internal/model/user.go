package model

import "time"

type User struct {
	ID           string    `gorm:"size:36;primaryKey" json:"id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
