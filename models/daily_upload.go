package models

import "time"

// DailyUpload stores the upload counter of a user for a single calendar day.
// A row whose Day differs from today counts as zero.
type DailyUpload struct {
	Username  string    `gorm:"primaryKey;size:64" json:"username"`
	Day       string    `gorm:"size:10;not null" json:"day"` // YYYY-MM-DD, server local time
	Count     int       `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
