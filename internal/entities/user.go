package entities

import "time"

type User struct {
	ID           uint64
	Fio          string
	Phone        string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
