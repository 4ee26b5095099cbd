package models

import "time"

// User represents a user record in DB. The password hash never serializes.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Position     string    `json:"position"`
	Phone        string    `json:"phone"`
	CPF          string    `json:"cpf"`
	DateBirth    string    `json:"dateBirth"`
	CreatedAt    time.Time `json:"created_at"`
}

// PersonRequest holds the data for creating or updating a user.
type PersonRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Position  string `json:"position"`
	Phone     string `json:"phone"`
	CPF       string `json:"cpf"`
	DateBirth string `json:"dateBirth"`
}
