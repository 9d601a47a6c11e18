package store

import (
	"context"

	"study-booking-api/models"
)

// Soft deletes mark only the target row; descendants keep deleted_at NULL
// and disappear through the read-time ancestor checks. Booking history is
// never physically erased.
//
// Each delete resolves its target through the visibility chain first, so an
// entity that is already gone (directly or via an ancestor) reports
// ErrNotFound instead of silently succeeding twice.

func (s *Store) DeleteStudy(ctx context.Context, id uint) error {
	var study models.Study
	if err := s.db.WithContext(ctx).First(&study, id).Error; err != nil {
		return notFound(err)
	}
	return s.db.WithContext(ctx).Delete(&study).Error
}

func (s *Store) DeleteSession(ctx context.Context, id uint) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(session).Error
}

func (s *Store) DeleteTimeSlot(ctx context.Context, id uint) error {
	slot, err := s.GetTimeSlot(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(slot).Error
}

func (s *Store) DeleteBooking(ctx context.Context, id uint) error {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(booking).Error
}
