package model

import "time"

// Page is a CMS page addressed by slug. Content is markdown.
type Page struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Content   *string   `gorm:"type:text" json:"content"`
	Published bool      `gorm:"not null;index" json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
