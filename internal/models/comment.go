package models

import (
	"time"
)

// Comment is a message on a post. Name and Email mirror the commenting
// user's identity at the time the comment was written.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"-"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    *uint     `gorm:"index" json:"-"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Email     string    `gorm:"size:254;not null;default:''" json:"email"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
