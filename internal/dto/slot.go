package dto

import "github.com/noah-isme/campus-slot-api/internal/models"

// CreateSlotRequest carries every field of a new slot.
type CreateSlotRequest struct {
	CampusID       int64             `json:"campus_id" validate:"required,gt=0"`
	StartTime      string            `json:"start_time" validate:"required"`
	EndTime        string            `json:"end_time" validate:"required"`
	Status         models.SlotStatus `json:"status" validate:"omitempty,oneof=V I"`
	SuspendedFrom  *models.Date      `json:"suspended_from"`
	SuspendedUntil *models.Date      `json:"suspended_until"`
}

// UpdateSlotRequest replaces the attributes of an existing slot. The slot is
// addressed by its key in the path; the key itself never changes here.
type UpdateSlotRequest struct {
	EndTime        string            `json:"end_time" validate:"required"`
	Status         models.SlotStatus `json:"status" validate:"omitempty,oneof=V I"`
	SuspendedFrom  *models.Date      `json:"suspended_from"`
	SuspendedUntil *models.Date      `json:"suspended_until"`
}

// RekeySlotRequest moves a slot to a new start time, replacing its attributes
// in the same step.
type RekeySlotRequest struct {
	NewStartTime   string            `json:"new_start_time" validate:"required"`
	EndTime        string            `json:"end_time" validate:"required"`
	Status         models.SlotStatus `json:"status" validate:"omitempty,oneof=V I"`
	SuspendedFrom  *models.Date      `json:"suspended_from"`
	SuspendedUntil *models.Date      `json:"suspended_until"`
}

// SlotAvailability pairs a slot with its derived availability on a date.
type SlotAvailability struct {
	Slot          models.Slot `json:"slot"`
	Allocatable   bool        `json:"allocatable"`
	ReferenceDate models.Date `json:"reference_date"`
}

// AllocatableSlots is the payload of the campus allocatable listing. CacheHit
// reports whether it was served from the slot cache.
type AllocatableSlots struct {
	CampusID      int64         `json:"campus_id"`
	ReferenceDate models.Date   `json:"reference_date"`
	From          string        `json:"from,omitempty"`
	Slots         []models.Slot `json:"slots"`
	CacheHit      bool          `json:"-"`
}
