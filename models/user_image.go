package models

import "time"

// UserImage records the content hash of an image a user has already been scored on.
type UserImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:64;not null;uniqueIndex:idx_user_image" json:"username"`
	Hash      string    `gorm:"size:64;not null;uniqueIndex:idx_user_image" json:"hash"` // hex sha256
	CreatedAt time.Time `json:"created_at"`
}
