package model

import "time"

// User is an account owning projects, tasks and settings.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	TelegramID   *int64 `gorm:"uniqueIndex" json:"-"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a cookie-backed login. UserID is nil for anonymous sessions that
// only carry the registration verification mark.
type Session struct {
	Token      string     `gorm:"primaryKey;size:64"`
	UserID     *uint      `gorm:"index"`
	Username   string     `gorm:"size:64"`
	VerifiedAt *time.Time
	CreatedAt  time.Time
	ExpiresAt  time.Time `gorm:"index"`
}

// Authenticated reports whether the session belongs to a logged-in user.
func (s Session) Authenticated() bool {
	return s.UserID != nil
}
