package store

import "time"

// UserModel is the GORM row for a registered account.
type UserModel struct {
	Username     string `gorm:"primaryKey;size:64"`
	PasswordHash string `gorm:"size:255"`
	CreatedAt    time.Time
}

// BookModel is the GORM row for a catalog entry.
type BookModel struct {
	ISBN      string `gorm:"primaryKey;size:16"`
	Author    string `gorm:"size:255;index"`
	Title     string `gorm:"size:255;index"`
	CreatedAt time.Time
}

// ReviewModel is the GORM row for a review, unique per (isbn, username).
type ReviewModel struct {
	ISBN      string `gorm:"primaryKey;size:16"`
	Username  string `gorm:"primaryKey;size:64"`
	Text      string `gorm:"type:text"`
	UpdatedAt time.Time
}
