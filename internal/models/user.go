package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// User is a roster entry. Email is the key and is matched case-sensitively.
// Password holds a bcrypt hash for users added through the admin API; older
// roster rows may still carry a plaintext value.
type User struct {
	Email     string    `json:"email" gorm:"primaryKey;size:255"`
	Password  string    `json:"password" gorm:"not null;size:255"`
	Name      string    `json:"name" gorm:"not null;size:100"`
	Phone     string    `json:"phone" gorm:"size:50"`
	Location  string    `json:"location" gorm:"size:255"`
	Blocked   bool      `json:"blocked" gorm:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Profile strips credentials from a user.
func (u *User) Profile() *UserProfile {
	return &UserProfile{
		Email:    u.Email,
		Name:     u.Name,
		Phone:    u.Phone,
		Location: u.Location,
	}
}

type BlockedUser struct {
	Email     string    `json:"email" gorm:"primaryKey;size:255"`
	BlockedAt time.Time `json:"blocked_at"`
}

func (BlockedUser) TableName() string {
	return "blocked_users"
}

// SessionCounter counts successful logins. It is capped and never decremented.
type SessionCounter struct {
	Email string `json:"email" gorm:"primaryKey;size:255"`
	Count int    `json:"count" gorm:"column:login_count;not null;default:0"`
}

func (SessionCounter) TableName() string {
	return "session_counters"
}
