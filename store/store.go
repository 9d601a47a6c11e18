package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"study-booking-api/models"
)

// Store materializes the Study→Session→TimeSlot→Booking tree and answers
// existence and ownership queries. Every read treats an entity as deleted
// if any ancestor is deleted; the ancestor walk happens at read time via
// joins, nothing is copied onto descendants at delete time.
//
// The store never checks authorization; that is the caller's job.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Join clauses restricting a child table to rows whose ancestor chain is
// fully live. GORM's default scope already filters the entity's own
// deleted_at.
const (
	joinSessionStudy = "JOIN studies ON studies.id = sessions.study_id AND studies.deleted_at IS NULL"
	joinSlotSession  = "JOIN sessions ON sessions.id = time_slots.session_id AND sessions.deleted_at IS NULL"
	joinSlotStudy    = "JOIN studies ON studies.id = sessions.study_id AND studies.deleted_at IS NULL"
	joinBookingSlot  = "JOIN time_slots ON time_slots.id = bookings.slot_id AND time_slots.deleted_at IS NULL"
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ----- studies -----

func (s *Store) GetStudy(ctx context.Context, id uint) (*models.Study, error) {
	var study models.Study
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Sessions").
		Preload("Sessions.Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("time_slots.start_time")
		}).
		First(&study, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	study.Owner.Password = ""
	return &study, nil
}

func (s *Store) ListStudies(ctx context.Context) ([]models.Study, error) {
	var studies []models.Study
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Order("studies.id").
		Find(&studies).Error
	if err != nil {
		return nil, err
	}
	for i := range studies {
		studies[i].Owner.Password = ""
	}
	return studies, nil
}

func (s *Store) ListStudiesByOwner(ctx context.Context, ownerID uint) ([]models.Study, error) {
	var studies []models.Study
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Preload("Sessions").
		Order("studies.id").
		Find(&studies).Error
	return studies, err
}

func (s *Store) CreateStudy(ctx context.Context, study *models.Study) error {
	if study.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	return s.db.WithContext(ctx).Create(study).Error
}

// UpdateStudy changes the free-text fields only; ownership and lifecycle
// fields are never writable through here.
func (s *Store) UpdateStudy(ctx context.Context, study *models.Study, title, description string) error {
	updates := map[string]interface{}{}
	if title != "" {
		updates["title"] = title
	}
	if description != "" {
		updates["description"] = description
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(study).Updates(updates).Error; err != nil {
		return err
	}
	if title != "" {
		study.Title = title
	}
	if description != "" {
		study.Description = description
	}
	return nil
}

// ----- sessions -----

func (s *Store) GetSession(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Joins(joinSessionStudy).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("time_slots.start_time")
		}).
		First(&session, "sessions.id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (s *Store) ListSessionsByStudy(ctx context.Context, studyID uint) ([]models.Session, error) {
	var study models.Study
	if err := s.db.WithContext(ctx).First(&study, studyID).Error; err != nil {
		return nil, notFound(err)
	}
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("study_id = ?", studyID).
		Order("sessions.id").
		Find(&sessions).Error
	return sessions, err
}

func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Joins(joinSessionStudy).
		Order("sessions.id").
		Find(&sessions).Error
	return sessions, err
}

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	if session.Location == "" || session.Date.IsZero() {
		return fmt.Errorf("%w: location and date are required", ErrValidation)
	}
	var study models.Study
	if err := s.db.WithContext(ctx).First(&study, session.StudyID).Error; err != nil {
		return notFound(err)
	}
	return s.db.WithContext(ctx).Create(session).Error
}

// ----- time slots -----

func (s *Store) GetTimeSlot(ctx context.Context, id uint) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	err := s.db.WithContext(ctx).
		Joins(joinSlotSession).
		Joins(joinSlotStudy).
		First(&slot, "time_slots.id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	counts, err := s.bookingCounts(ctx, []uint{slot.ID})
	if err != nil {
		return nil, err
	}
	slot.FillAvailability(counts[slot.ID])
	return &slot, nil
}

func (s *Store) ListTimeSlotsBySession(ctx context.Context, sessionID uint) ([]models.TimeSlot, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	var slots []models.TimeSlot
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("time_slots.start_time").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(slots))
	for i := range slots {
		ids[i] = slots[i].ID
	}
	counts, err := s.bookingCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		slots[i].FillAvailability(counts[slots[i].ID])
	}
	return slots, nil
}

func (s *Store) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := s.db.WithContext(ctx).
		Joins(joinSlotSession).
		Joins(joinSlotStudy).
		Order("time_slots.start_time").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(slots))
	for i := range slots {
		ids[i] = slots[i].ID
	}
	counts, err := s.bookingCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		slots[i].FillAvailability(counts[slots[i].ID])
	}
	return slots, nil
}

func (s *Store) CreateTimeSlot(ctx context.Context, slot *models.TimeSlot) error {
	if slot.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be a positive integer", ErrValidation)
	}
	if !slot.EndTime.After(slot.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrValidation)
	}
	if _, err := s.GetSession(ctx, slot.SessionID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
		return err
	}
	slot.FillAvailability(0)
	return nil
}

// TimeSlotUpdate carries the fields a slot update may change; nil means
// "leave as is".
type TimeSlotUpdate struct {
	StartTime *time.Time
	EndTime   *time.Time
	Capacity  *int
}

// UpdateTimeSlot rewrites a slot's window or capacity. It holds the same
// row lock the admission path takes, so capacity can never be lowered
// below the number of bookings already admitted: the count seen under the
// lock is the count the new capacity is checked against.
func (s *Store) UpdateTimeSlot(ctx context.Context, id uint, upd TimeSlotUpdate) (*models.TimeSlot, error) {
	var updated models.TimeSlot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := lockSlot(tx, id)
		if err != nil {
			return err
		}
		if upd.StartTime != nil {
			slot.StartTime = *upd.StartTime
		}
		if upd.EndTime != nil {
			slot.EndTime = *upd.EndTime
		}
		if upd.Capacity != nil {
			slot.Capacity = *upd.Capacity
		}
		if slot.Capacity < 1 {
			return fmt.Errorf("%w: capacity must be a positive integer", ErrValidation)
		}
		if !slot.EndTime.After(slot.StartTime) {
			return fmt.Errorf("%w: end time must be after start time", ErrValidation)
		}

		var booked int64
		err = tx.Model(&models.Booking{}).
			Where("slot_id = ?", slot.ID).
			Count(&booked).Error
		if err != nil {
			return err
		}
		if int64(slot.Capacity) < booked {
			return fmt.Errorf("%w: capacity cannot be lower than the %d existing bookings", ErrValidation, booked)
		}

		if err := tx.Save(slot).Error; err != nil {
			return err
		}
		slot.FillAvailability(int(booked))
		updated = *slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// bookingCounts returns live booking totals per slot in one grouped query.
func (s *Store) bookingCounts(ctx context.Context, slotIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(slotIDs))
	if len(slotIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		SlotID uint
		Total  int
	}
	err := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Select("slot_id, count(*) as total").
		Where("slot_id IN ?", slotIDs).
		Group("slot_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.SlotID] = r.Total
	}
	return counts, nil
}

// ----- bookings -----

func (s *Store) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Joins(joinBookingSlot).
		Joins(joinSlotSession).
		Joins(joinSlotStudy).
		First(&booking, "bookings.id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (s *Store) ListBookingsBySlot(ctx context.Context, slotID uint) ([]models.Booking, error) {
	if _, err := s.GetTimeSlot(ctx, slotID); err != nil {
		return nil, err
	}
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		Order("bookings.id").
		Find(&bookings).Error
	return bookings, err
}

// AuditBookingsBySlot returns every booking row ever admitted to the slot,
// soft-deleted ones included. This is the only read that bypasses the
// visibility filter; it exists for audit and is never served by default
// listings. The slot itself is looked up unscoped too, so history stays
// reachable after the slot or its ancestors are deleted.
func (s *Store) AuditBookingsBySlot(ctx context.Context, slotID uint) ([]models.Booking, error) {
	var slot models.TimeSlot
	if err := s.db.WithContext(ctx).Unscoped().First(&slot, slotID).Error; err != nil {
		return nil, notFound(err)
	}
	var bookings []models.Booking
	err := s.db.WithContext(ctx).Unscoped().
		Where("slot_id = ?", slotID).
		Order("bookings.id").
		Find(&bookings).Error
	return bookings, err
}

// ----- ownership lookups -----

// StudyOfSession resolves the study a session belongs to, honoring the
// visibility chain. Used by callers that need the owner for a gate check.
func (s *Store) StudyOfSession(ctx context.Context, sessionID uint) (*models.Study, error) {
	var study models.Study
	err := s.db.WithContext(ctx).
		Joins("JOIN sessions ON sessions.study_id = studies.id AND sessions.deleted_at IS NULL").
		First(&study, "sessions.id = ?", sessionID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &study, nil
}

func (s *Store) StudyOfSlot(ctx context.Context, slotID uint) (*models.Study, error) {
	var study models.Study
	err := s.db.WithContext(ctx).
		Joins("JOIN sessions ON sessions.study_id = studies.id AND sessions.deleted_at IS NULL").
		Joins("JOIN time_slots ON time_slots.session_id = sessions.id AND time_slots.deleted_at IS NULL").
		First(&study, "time_slots.id = ?", slotID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &study, nil
}

// StudyOfSlotAnyState resolves ownership for the audit path regardless of
// soft-delete state anywhere on the chain, so an owner can still reach the
// history of a deleted slot.
func (s *Store) StudyOfSlotAnyState(ctx context.Context, slotID uint) (*models.Study, error) {
	var study models.Study
	err := s.db.WithContext(ctx).Unscoped().
		Joins("JOIN sessions ON sessions.study_id = studies.id").
		Joins("JOIN time_slots ON time_slots.session_id = sessions.id").
		First(&study, "time_slots.id = ?", slotID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &study, nil
}

func (s *Store) StudyOfBooking(ctx context.Context, bookingID uint) (*models.Study, error) {
	var study models.Study
	err := s.db.WithContext(ctx).
		Joins("JOIN sessions ON sessions.study_id = studies.id AND sessions.deleted_at IS NULL").
		Joins("JOIN time_slots ON time_slots.session_id = sessions.id AND time_slots.deleted_at IS NULL").
		Joins("JOIN bookings ON bookings.slot_id = time_slots.id AND bookings.deleted_at IS NULL").
		First(&study, "bookings.id = ?", bookingID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &study, nil
}
