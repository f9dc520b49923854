package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-slot-api/internal/dto"
	"github.com/noah-isme/campus-slot-api/internal/models"
	appErrors "github.com/noah-isme/campus-slot-api/pkg/errors"
)

type slotRepository interface {
	ListAll(ctx context.Context) ([]models.Slot, error)
	ListByCampus(ctx context.Context, campusID int64) ([]models.Slot, error)
	ListAllocatable(ctx context.Context, campusID int64, today models.Date) ([]models.Slot, error)
	ListAllocatableFrom(ctx context.Context, campusID int64, cutoff string, today models.Date) ([]models.Slot, error)
	FindByKey(ctx context.Context, campusID int64, startTime string) (*models.Slot, error)
	Create(ctx context.Context, slot *models.Slot) error
	Update(ctx context.Context, slot *models.Slot) (int64, error)
	Delete(ctx context.Context, campusID int64, startTime string) (int64, error)
	Rekey(ctx context.Context, campusID int64, oldStart string, slot *models.Slot) (int64, error)
}

// SlotServiceConfig tunes slot validation and caching.
type SlotServiceConfig struct {
	StrictValidation bool
	DefaultCutoff    string
	CacheTTL         time.Duration
}

// SlotService exposes slot queries and mutations with error mapping, cache
// and metrics around the repository.
type SlotService struct {
	repo      slotRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SlotServiceConfig
	now       func() time.Time
}

// NewSlotService creates a slot service. cache and metrics may be nil.
func NewSlotService(repo slotRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SlotServiceConfig) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultCutoff == "" {
		cfg.DefaultCutoff = models.MidnightCutoff
	}
	return &SlotService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock overrides the clock used to derive the reference date.
func (s *SlotService) WithClock(now func() time.Time) *SlotService {
	if now != nil {
		s.now = now
	}
	return s
}

// Today returns the current reference date in the process' local zone.
func (s *SlotService) Today() models.Date {
	return models.DateOf(s.now())
}

func (s *SlotService) referenceDate(on *models.Date) models.Date {
	if on != nil && !on.IsZero() {
		return *on
	}
	return s.Today()
}

// ListAll returns every Valid slot ordered by campus then start time.
func (s *SlotService) ListAll(ctx context.Context) ([]models.Slot, error) {
	key := allSlotsCacheKey()
	var cached []models.Slot
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	start := time.Now()
	slots, err := s.repo.ListAll(ctx)
	s.observe("slots.list_all", start, err)
	if err != nil {
		s.logger.Error("list slots failed", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to list slots")
	}

	_ = s.cache.Set(ctx, key, slots, s.cfg.CacheTTL)
	return slots, nil
}

// ListAllocatable returns the campus slots allocatable on the given date,
// or today when on is nil.
func (s *SlotService) ListAllocatable(ctx context.Context, campusID int64, on *models.Date) (*dto.AllocatableSlots, error) {
	if err := validateCampusID(campusID); err != nil {
		return nil, err
	}
	today := s.referenceDate(on)

	key := allocatableCacheKey(campusID, today, "")
	var cached []models.Slot
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &dto.AllocatableSlots{CampusID: campusID, ReferenceDate: today, Slots: cached, CacheHit: true}, nil
	}

	start := time.Now()
	slots, err := s.repo.ListAllocatable(ctx, campusID, today)
	s.observe("slots.list_allocatable", start, err)
	if err != nil {
		s.logger.Error("list allocatable slots failed", zap.Int64("campus_id", campusID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to list allocatable slots")
	}

	_ = s.cache.Set(ctx, key, slots, s.cfg.CacheTTL)
	return &dto.AllocatableSlots{CampusID: campusID, ReferenceDate: today, Slots: slots}, nil
}

// ListAllocatableFrom is ListAllocatable restricted to slots ending after
// cutoff. An empty cutoff uses the configured default.
func (s *SlotService) ListAllocatableFrom(ctx context.Context, campusID int64, cutoff string, on *models.Date) (*dto.AllocatableSlots, error) {
	if err := validateCampusID(campusID); err != nil {
		return nil, err
	}
	if cutoff == "" {
		cutoff = s.cfg.DefaultCutoff
	}
	normalized, err := models.NormalizeClock(cutoff)
	if err != nil {
		return nil, appErrors.Validation(err, "from must be a time of day (HH:MM:SS)")
	}
	today := s.referenceDate(on)

	key := allocatableCacheKey(campusID, today, normalized)
	var cached []models.Slot
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &dto.AllocatableSlots{CampusID: campusID, ReferenceDate: today, From: normalized, Slots: cached, CacheHit: true}, nil
	}

	start := time.Now()
	slots, err := s.repo.ListAllocatableFrom(ctx, campusID, normalized, today)
	s.observe("slots.list_allocatable_from", start, err)
	if err != nil {
		s.logger.Error("list allocatable slots from cutoff failed", zap.Int64("campus_id", campusID), zap.String("from", normalized), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to list allocatable slots")
	}

	_ = s.cache.Set(ctx, key, slots, s.cfg.CacheTTL)
	return &dto.AllocatableSlots{CampusID: campusID, ReferenceDate: today, From: normalized, Slots: slots}, nil
}

// Availability loads one slot and evaluates it against the reference date.
func (s *SlotService) Availability(ctx context.Context, campusID int64, startTime string, on *models.Date) (*dto.SlotAvailability, error) {
	if err := validateCampusID(campusID); err != nil {
		return nil, err
	}
	key, err := normalizeKeyTime(startTime)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	slot, err := s.repo.FindByKey(ctx, campusID, key)
	s.observe("slots.find_by_key", start, ignoreNoRows(err))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Internal(err, "failed to load slot")
	}

	today := s.referenceDate(on)
	return &dto.SlotAvailability{Slot: *slot, Allocatable: slot.IsAllocatableOn(today), ReferenceDate: today}, nil
}

// CampusDay returns every Valid slot of a campus with its availability on
// the reference date, in start time order.
func (s *SlotService) CampusDay(ctx context.Context, campusID int64, on *models.Date) ([]dto.SlotAvailability, models.Date, error) {
	today := s.referenceDate(on)
	if err := validateCampusID(campusID); err != nil {
		return nil, today, err
	}

	start := time.Now()
	slots, err := s.repo.ListByCampus(ctx, campusID)
	s.observe("slots.list_by_campus", start, err)
	if err != nil {
		s.logger.Error("list campus slots failed", zap.Int64("campus_id", campusID), zap.Error(err))
		return nil, today, appErrors.Internal(err, "failed to list campus slots")
	}

	out := make([]dto.SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		out = append(out, dto.SlotAvailability{Slot: slot, Allocatable: slot.IsAllocatableOn(today), ReferenceDate: today})
	}
	return out, today, nil
}

// Create inserts a new slot. Duplicate keys surface as conflicts.
func (s *SlotService) Create(ctx context.Context, req dto.CreateSlotRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid slot payload")
	}
	startTime, err := normalizeKeyTime(req.StartTime)
	if err != nil {
		return nil, err
	}
	endTime, err := models.NormalizeClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Validation(err, "end_time must be a time of day (HH:MM:SS)")
	}

	slot := &models.Slot{
		CampusID:       req.CampusID,
		StartTime:      startTime,
		EndTime:        endTime,
		Status:         defaultStatus(req.Status),
		SuspendedFrom:  req.SuspendedFrom,
		SuspendedUntil: req.SuspendedUntil,
	}
	if err := s.checkConsistency(slot); err != nil {
		return nil, err
	}

	begin := time.Now()
	err = s.repo.Create(ctx, slot)
	s.observe("slots.create", begin, err)
	if err != nil {
		s.metrics.RecordSlotMutation("create", "error")
		s.logger.Warn("create slot failed", zap.Int64("campus_id", slot.CampusID), zap.String("start_time", slot.StartTime), zap.Error(err))
		return nil, mapStoreError(err, "failed to create slot")
	}

	s.metrics.RecordSlotMutation("create", "ok")
	s.invalidate(ctx)
	return slot, nil
}

// Update replaces the attributes of the slot at (campusID, startTime).
func (s *SlotService) Update(ctx context.Context, campusID int64, startTime string, req dto.UpdateSlotRequest) (*models.Slot, error) {
	if err := validateCampusID(campusID); err != nil {
		return nil, err
	}
	key, err := normalizeKeyTime(startTime)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid slot payload")
	}
	endTime, err := models.NormalizeClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Validation(err, "end_time must be a time of day (HH:MM:SS)")
	}

	slot := &models.Slot{
		CampusID:       campusID,
		StartTime:      key,
		EndTime:        endTime,
		Status:         defaultStatus(req.Status),
		SuspendedFrom:  req.SuspendedFrom,
		SuspendedUntil: req.SuspendedUntil,
	}
	if err := s.checkConsistency(slot); err != nil {
		return nil, err
	}

	begin := time.Now()
	affected, err := s.repo.Update(ctx, slot)
	s.observe("slots.update", begin, err)
	if err != nil {
		s.metrics.RecordSlotMutation("update", "error")
		s.logger.Warn("update slot failed", zap.Int64("campus_id", campusID), zap.String("start_time", key), zap.Error(err))
		return nil, mapStoreError(err, "failed to update slot")
	}
	if affected == 0 {
		s.metrics.RecordSlotMutation("update", "not_found")
		return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}

	s.metrics.RecordSlotMutation("update", "ok")
	s.invalidate(ctx)
	return slot, nil
}

// Rekey moves the slot at (campusID, startTime) to a new start time and
// replaces its attributes as one operation.
func (s *SlotService) Rekey(ctx context.Context, campusID int64, startTime string, req dto.RekeySlotRequest) (*models.Slot, error) {
	if err := validateCampusID(campusID); err != nil {
		return nil, err
	}
	oldKey, err := normalizeKeyTime(startTime)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid rekey payload")
	}
	newKey, err := models.NormalizeClock(req.NewStartTime)
	if err != nil {
		return nil, appErrors.Validation(err, "new_start_time must be a time of day (HH:MM:SS)")
	}
	endTime, err := models.NormalizeClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Validation(err, "end_time must be a time of day (HH:MM:SS)")
	}

	slot := &models.Slot{
		CampusID:       campusID,
		StartTime:      newKey,
		EndTime:        endTime,
		Status:         defaultStatus(req.Status),
		SuspendedFrom:  req.SuspendedFrom,
		SuspendedUntil: req.SuspendedUntil,
	}
	if err := s.checkConsistency(slot); err != nil {
		return nil, err
	}

	begin := time.Now()
	affected, err := s.repo.Rekey(ctx, campusID, oldKey, slot)
	s.observe("slots.rekey", begin, err)
	if err != nil {
		s.metrics.RecordSlotMutation("rekey", "error")
		s.logger.Warn("rekey slot failed", zap.Int64("campus_id", campusID), zap.String("start_time", oldKey), zap.String("new_start_time", newKey), zap.Error(err))
		return nil, mapStoreError(err, "failed to move slot")
	}
	if affected == 0 {
		s.metrics.RecordSlotMutation("rekey", "not_found")
		return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}

	s.metrics.RecordSlotMutation("rekey", "ok")
	s.invalidate(ctx)
	return slot, nil
}

// Delete removes the slot at (campusID, startTime).
func (s *SlotService) Delete(ctx context.Context, campusID int64, startTime string) error {
	if err := validateCampusID(campusID); err != nil {
		return err
	}
	key, err := normalizeKeyTime(startTime)
	if err != nil {
		return err
	}

	begin := time.Now()
	affected, err := s.repo.Delete(ctx, campusID, key)
	s.observe("slots.delete", begin, err)
	if err != nil {
		s.metrics.RecordSlotMutation("delete", "error")
		s.logger.Warn("delete slot failed", zap.Int64("campus_id", campusID), zap.String("start_time", key), zap.Error(err))
		return mapStoreError(err, "failed to delete slot")
	}
	if affected == 0 {
		s.metrics.RecordSlotMutation("delete", "not_found")
		return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}

	s.metrics.RecordSlotMutation("delete", "ok")
	s.invalidate(ctx)
	return nil
}

// checkConsistency enforces interval and window ordering in strict mode only.
func (s *SlotService) checkConsistency(slot *models.Slot) error {
	if !s.cfg.StrictValidation {
		return nil
	}
	if slot.EndTime <= slot.StartTime {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if slot.SuspendedFrom != nil && slot.SuspendedUntil != nil && slot.SuspendedUntil.Before(*slot.SuspendedFrom) {
		return appErrors.Clone(appErrors.ErrValidation, "suspended_until must not be before suspended_from")
	}
	return nil
}

func (s *SlotService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateSlots(ctx); err != nil {
		s.logger.Warn("slot cache invalidation failed", zap.Error(err))
	}
}

func (s *SlotService) observe(label string, start time.Time, err error) {
	s.metrics.ObserveDBQuery(label, time.Since(start), err)
}

func validateCampusID(campusID int64) error {
	if campusID <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "campus id must be a positive integer")
	}
	return nil
}

func normalizeKeyTime(raw string) (string, error) {
	v, err := models.NormalizeClock(raw)
	if err != nil {
		return "", appErrors.Validation(err, "start_time must be a time of day (HH:MM:SS)")
	}
	return v, nil
}

func defaultStatus(status models.SlotStatus) models.SlotStatus {
	if status == "" {
		return models.SlotStatusValid
	}
	return status
}

func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// PostgreSQL SQLSTATE codes surfaced to callers as client errors.
const (
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
	pqInvalidDatetime     = "22007"
	pqDatetimeOutOfRange  = "22008"
	pqInvalidTextEncoding = "22P02"
)

// mapStoreError classifies store failures for the HTTP layer. The repository
// passes them through untouched.
func mapStoreError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "slot already exists for campus and start time")
		case pqCheckViolation, pqInvalidDatetime, pqDatetimeOutOfRange, pqInvalidTextEncoding:
			return appErrors.Validation(err, "slot rejected by store constraints")
		}
	}
	return appErrors.Internal(err, message)
}
