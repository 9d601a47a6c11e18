package models

import (
	"gorm.io/gorm"
)

type Study struct {
	gorm.Model
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     uint      `json:"owner_id"`
	Owner       User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Sessions    []Session `json:"sessions,omitempty" gorm:"foreignKey:StudyID"`
}
