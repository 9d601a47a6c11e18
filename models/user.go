package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleResearcher Role = "researcher"
	RoleAdmin      Role = "admin"
)

type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"uniqueIndex"`
	Password  string         `json:"password,omitempty"`
	Name      string         `json:"name"`
	Role      Role           `json:"role" gorm:"default:researcher"`
	Studies   []Study        `json:"studies,omitempty" gorm:"foreignKey:OwnerID"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleResearcher
	}
	return nil
}
