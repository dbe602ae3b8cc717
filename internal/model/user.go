// Package model defines database models
package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"not null" json:"fullName"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}
