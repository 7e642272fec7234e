package models

import "time"

// User roles
const (
	RoleAdmin    = "admin"
	RoleManager  = "gerente"
	RoleOperator = "operador"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string // admin, gerente, operador
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
