package models

import "time"

const (
	UserEntity = "user"
)

type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"isAdmin"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) Summary() MemberSummary {
	return MemberSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
