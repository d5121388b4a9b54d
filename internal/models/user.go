package models

import "time"

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Age          *int      `json:"age,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
