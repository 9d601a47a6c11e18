package models

import (
	"time"

	"gorm.io/gorm"
)

type TimeSlot struct {
	gorm.Model
	SessionID uint      `json:"session_id"`
	Session   Session   `json:"session,omitempty" gorm:"foreignKey:SessionID"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Capacity  int       `json:"capacity"`
	Bookings  []Booking `json:"bookings,omitempty" gorm:"foreignKey:SlotID"`

	// Derived per request, never persisted.
	BookedCount    int  `json:"booked_count" gorm:"-"`
	AvailableCount int  `json:"available_count" gorm:"-"`
	IsFull         bool `json:"is_full" gorm:"-"`
}

// FillAvailability computes the derived occupancy fields from a live
// booking count.
func (t *TimeSlot) FillAvailability(booked int) {
	t.BookedCount = booked
	t.AvailableCount = t.Capacity - booked
	t.IsFull = booked >= t.Capacity
}
