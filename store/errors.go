package store

import "errors"

var (
	// ErrNotFound covers entities that are absent, soft-deleted, or hidden
	// because an ancestor is soft-deleted.
	ErrNotFound = errors.New("record not found")

	// ErrSlotFull is returned when an admission attempt finds no remaining
	// capacity on the slot.
	ErrSlotFull = errors.New("slot is full")

	// ErrValidation marks input rejected before any storage mutation.
	ErrValidation = errors.New("validation failed")
)
