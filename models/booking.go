package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking is immutable once created; the only mutation it ever sees is the
// soft-delete marker.
type Booking struct {
	gorm.Model
	SlotID    uint      `json:"slot_id"`
	Slot      TimeSlot  `json:"slot,omitempty" gorm:"foreignKey:SlotID"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	ConsentAt time.Time `json:"consent_at"`
}
