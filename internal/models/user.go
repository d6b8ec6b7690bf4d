package models

import (
	"time"

	"github.com/google/uuid"
)

// Role - роль пользователя в системе
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User - профиль пользователя, хранящийся в бд
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal - подтвержденная провайдером аутентификации личность
type Principal struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Session - локальное представление текущего актора и его роли
type Session struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}

// IsAdmin сообщает, обладает ли сессия привилегированной ролью
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
