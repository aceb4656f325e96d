package domain

import "time"

// Book is a catalog entry. Reviews maps reviewer username to review text;
// at most one review exists per (book, user) pair.
type Book struct {
	ISBN    string            `json:"isbn"`
	Author  string            `json:"author"`
	Title   string            `json:"title"`
	Reviews map[string]string `json:"reviews"`
}

// User is a registered account. The password hash is never serialized.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ReviewOutcome string

const (
	ReviewCreated ReviewOutcome = "created"
	ReviewUpdated ReviewOutcome = "updated"
)
