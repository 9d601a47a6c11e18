package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"study-booking-api/models"
)

// AdmitBooking decides whether the booking may claim a unit of its slot's
// capacity and, if so, persists it. The capacity check and the insert run
// inside one transaction holding a row lock on the slot, so two concurrent
// attempts against the last remaining place cannot both succeed: the second
// one blocks on the lock, re-counts, and gets ErrSlotFull.
//
// A slot whose session or study has been deleted is reported as ErrNotFound,
// never ErrSlotFull.
func (s *Store) AdmitBooking(ctx context.Context, booking *models.Booking) error {
	if booking.SlotID == 0 || booking.Name == "" || booking.ConsentAt.IsZero() {
		return fmt.Errorf("%w: slot_id, name and consent_at are required", ErrValidation)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := lockSlot(tx, booking.SlotID)
		if err != nil {
			return err
		}

		var booked int64
		err = tx.Model(&models.Booking{}).
			Where("slot_id = ?", slot.ID).
			Count(&booked).Error
		if err != nil {
			return err
		}
		if booked >= int64(slot.Capacity) {
			return ErrSlotFull
		}

		return tx.Create(booking).Error
	})
}

// lockSlot reads a slot under FOR UPDATE so capacity-relevant writes for it
// serialize within the calling transaction. Slots on a deleted ancestor
// chain are invisible here.
func lockSlot(tx *gorm.DB, id uint) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	err := tx.Raw(`
		SELECT time_slots.*
		FROM time_slots
		JOIN sessions ON sessions.id = time_slots.session_id AND sessions.deleted_at IS NULL
		JOIN studies ON studies.id = sessions.study_id AND studies.deleted_at IS NULL
		WHERE time_slots.id = ? AND time_slots.deleted_at IS NULL
		FOR UPDATE OF time_slots
	`, id).Scan(&slot).Error
	if err != nil {
		return nil, err
	}
	if slot.ID == 0 {
		return nil, ErrNotFound
	}
	return &slot, nil
}
