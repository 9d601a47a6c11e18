package models

import (
	"time"

	"gorm.io/gorm"
)

type Session struct {
	gorm.Model
	StudyID  uint       `json:"study_id"`
	Study    Study      `json:"study,omitempty" gorm:"foreignKey:StudyID"`
	Location string     `json:"location"`
	Date     time.Time  `json:"date"`
	Slots    []TimeSlot `json:"slots,omitempty" gorm:"foreignKey:SessionID"`
}
