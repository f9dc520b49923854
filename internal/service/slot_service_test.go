package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-slot-api/internal/dto"
	"github.com/noah-isme/campus-slot-api/internal/models"
	"github.com/noah-isme/campus-slot-api/internal/repository"
	appErrors "github.com/noah-isme/campus-slot-api/pkg/errors"
)

// slotRepoStub mirrors the store semantics over an in-memory table.
type slotRepoStub struct {
	rows      map[models.SlotKey]models.Slot
	err       error
	createErr error
	calls     map[string]int
	lastToday models.Date
	lastFrom  string
}

func newSlotRepoStub(slots ...models.Slot) *slotRepoStub {
	s := &slotRepoStub{rows: map[models.SlotKey]models.Slot{}, calls: map[string]int{}}
	for _, slot := range slots {
		s.rows[slot.Key()] = slot
	}
	return s
}

func (s *slotRepoStub) sorted(filter func(models.Slot) bool) []models.Slot {
	out := []models.Slot{}
	for _, slot := range s.rows {
		if filter(slot) {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CampusID != out[j].CampusID {
			return out[i].CampusID < out[j].CampusID
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (s *slotRepoStub) ListAll(ctx context.Context) ([]models.Slot, error) {
	s.calls["ListAll"]++
	if s.err != nil {
		return nil, s.err
	}
	return s.sorted(func(slot models.Slot) bool { return slot.Status == models.SlotStatusValid }), nil
}

func (s *slotRepoStub) ListByCampus(ctx context.Context, campusID int64) ([]models.Slot, error) {
	s.calls["ListByCampus"]++
	if s.err != nil {
		return nil, s.err
	}
	return s.sorted(func(slot models.Slot) bool {
		return slot.CampusID == campusID && slot.Status == models.SlotStatusValid
	}), nil
}

func (s *slotRepoStub) ListAllocatable(ctx context.Context, campusID int64, today models.Date) ([]models.Slot, error) {
	s.calls["ListAllocatable"]++
	s.lastToday = today
	if s.err != nil {
		return nil, s.err
	}
	return s.sorted(func(slot models.Slot) bool {
		return slot.CampusID == campusID && slot.IsAllocatableOn(today)
	}), nil
}

func (s *slotRepoStub) ListAllocatableFrom(ctx context.Context, campusID int64, cutoff string, today models.Date) ([]models.Slot, error) {
	s.calls["ListAllocatableFrom"]++
	s.lastToday = today
	s.lastFrom = cutoff
	if s.err != nil {
		return nil, s.err
	}
	return s.sorted(func(slot models.Slot) bool {
		return slot.CampusID == campusID && slot.IsAllocatableOn(today) && slot.EndTime > cutoff
	}), nil
}

func (s *slotRepoStub) FindByKey(ctx context.Context, campusID int64, startTime string) (*models.Slot, error) {
	if s.err != nil {
		return nil, s.err
	}
	slot, ok := s.rows[models.SlotKey{CampusID: campusID, StartTime: startTime}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &slot, nil
}

func (s *slotRepoStub) Create(ctx context.Context, slot *models.Slot) error {
	s.calls["Create"]++
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.rows[slot.Key()]; exists {
		return &pq.Error{Code: "23505"}
	}
	s.rows[slot.Key()] = *slot
	return nil
}

func (s *slotRepoStub) Update(ctx context.Context, slot *models.Slot) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if _, exists := s.rows[slot.Key()]; !exists {
		return 0, nil
	}
	s.rows[slot.Key()] = *slot
	return 1, nil
}

func (s *slotRepoStub) Delete(ctx context.Context, campusID int64, startTime string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	key := models.SlotKey{CampusID: campusID, StartTime: startTime}
	if _, exists := s.rows[key]; !exists {
		return 0, nil
	}
	delete(s.rows, key)
	return 1, nil
}

func (s *slotRepoStub) Rekey(ctx context.Context, campusID int64, oldStart string, slot *models.Slot) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	oldKey := models.SlotKey{CampusID: campusID, StartTime: oldStart}
	if _, exists := s.rows[oldKey]; !exists {
		return 0, nil
	}
	if _, taken := s.rows[slot.Key()]; taken && slot.StartTime != oldStart {
		return 0, &pq.Error{Code: "23505"}
	}
	delete(s.rows, oldKey)
	s.rows[slot.Key()] = *slot
	return 1, nil
}

var fixedNow = time.Date(2026, time.October, 18, 10, 0, 0, 0, time.Local)

func today() models.Date { return models.DateOf(fixedNow) }

func dayOffset(n int) *models.Date {
	d := today().AddDays(n)
	return &d
}

func newTestSlotService(repo *slotRepoStub, cfg SlotServiceConfig) *SlotService {
	return NewSlotService(repo, nil, nil, nil, nil, cfg).WithClock(func() time.Time { return fixedNow })
}

func assertAppError(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, want.Code, appErr.Code)
	assert.Equal(t, want.Status, appErr.Status)
}

func TestSlotServiceListAllocatableUsesInjectedDate(t *testing.T) {
	repo := newSlotRepoStub(
		models.Slot{CampusID: 1, StartTime: "08:00:00", EndTime: "09:00:00", Status: models.SlotStatusValid},
		models.Slot{CampusID: 1, StartTime: "09:00:00", EndTime: "10:00:00", Status: models.SlotStatusValid, SuspendedFrom: dayOffset(1)},
		models.Slot{CampusID: 1, StartTime: "10:00:00", EndTime: "11:00:00", Status: models.SlotStatusInvalid},
	)
	svc := newTestSlotService(repo, SlotServiceConfig{})

	got, err := svc.ListAllocatable(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, today(), got.ReferenceDate)
	assert.Equal(t, today(), repo.lastToday)
	require.Len(t, got.Slots, 2)
	assert.Equal(t, "08:00:00", got.Slots[0].StartTime)
	assert.Equal(t, "09:00:00", got.Slots[1].StartTime)

	got, err = svc.ListAllocatable(context.Background(), 1, dayOffset(1))
	require.NoError(t, err)
	require.Len(t, got.Slots, 1)
	assert.Equal(t, "08:00:00", got.Slots[0].StartTime)
}

func TestSlotServiceListAllocatableFromDefaultsCutoff(t *testing.T) {
	repo := newSlotRepoStub(
		models.Slot{CampusID: 2, StartTime: "08:00:00", EndTime: "09:00:00", Status: models.SlotStatusValid},
		models.Slot{CampusID: 2, StartTime: "13:00:00", EndTime: "14:00:00", Status: models.SlotStatusValid},
	)
	svc := newTestSlotService(repo, SlotServiceConfig{})

	got, err := svc.ListAllocatableFrom(context.Background(), 2, "", nil)
	require.NoError(t, err)
	assert.Equal(t, models.MidnightCutoff, repo.lastFrom)
	assert.Len(t, got.Slots, 2)

	got, err = svc.ListAllocatableFrom(context.Background(), 2, "12:00", nil)
	require.NoError(t, err)
	assert.Equal(t, "12:00:00", got.From)
	require.Len(t, got.Slots, 1)
	assert.Equal(t, "13:00:00", got.Slots[0].StartTime)

	got, err = svc.ListAllocatableFrom(context.Background(), 2, "14:00:00", nil)
	require.NoError(t, err)
	assert.Empty(t, got.Slots)
}

func TestSlotServiceListAllocatableValidation(t *testing.T) {
	svc := newTestSlotService(newSlotRepoStub(), SlotServiceConfig{})

	_, err := svc.ListAllocatable(context.Background(), 0, nil)
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = svc.ListAllocatableFrom(context.Background(), 1, "noon", nil)
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestSlotServiceStoreFailureIsInternal(t *testing.T) {
	repo := newSlotRepoStub()
	repo.err = errors.New("connection refused")
	svc := newTestSlotService(repo, SlotServiceConfig{})

	_, err := svc.ListAll(context.Background())
	assertAppError(t, err, appErrors.ErrInternal)
	assert.ErrorIs(t, err, repo.err)

	_, err = svc.ListAllocatable(context.Background(), 1, nil)
	assertAppError(t, err, appErrors.ErrInternal)
}

func TestSlotServiceCreateNormalizesAndDefaults(t *testing.T) {
	repo := newSlotRepoStub()
	svc := newTestSlotService(repo, SlotServiceConfig{})

	slot, err := svc.Create(context.Background(), dto.CreateSlotRequest{CampusID: 3, StartTime: "8:00", EndTime: "09:30"})
	require.NoError(t, err)
	assert.Equal(t, "08:00:00", slot.StartTime)
	assert.Equal(t, "09:30:00", slot.EndTime)
	assert.Equal(t, models.SlotStatusValid, slot.Status)

	_, err = svc.Create(context.Background(), dto.CreateSlotRequest{CampusID: 3, StartTime: "08:00:00", EndTime: "10:00:00"})
	assertAppError(t, err, appErrors.ErrConflict)
}

func TestSlotServiceCreateValidation(t *testing.T) {
	svc := newTestSlotService(newSlotRepoStub(), SlotServiceConfig{})

	cases := []dto.CreateSlotRequest{
		{StartTime: "08:00:00", EndTime: "09:00:00"},
		{CampusID: 1, EndTime: "09:00:00"},
		{CampusID: 1, StartTime: "08:00:00", EndTime: "09:00:00", Status: "X"},
		{CampusID: 1, StartTime: "8h", EndTime: "09:00:00"},
		{CampusID: 1, StartTime: "08:00:00", EndTime: "later"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		assertAppError(t, err, appErrors.ErrValidation)
	}
}

func TestSlotServiceStrictValidation(t *testing.T) {
	inverted := dto.CreateSlotRequest{CampusID: 1, StartTime: "10:00:00", EndTime: "09:00:00"}
	window := dto.CreateSlotRequest{CampusID: 1, StartTime: "11:00:00", EndTime: "12:00:00", SuspendedFrom: dayOffset(3), SuspendedUntil: dayOffset(1)}

	lenient := newTestSlotService(newSlotRepoStub(), SlotServiceConfig{})
	_, err := lenient.Create(context.Background(), inverted)
	require.NoError(t, err)
	_, err = lenient.Create(context.Background(), window)
	require.NoError(t, err)

	strict := newTestSlotService(newSlotRepoStub(), SlotServiceConfig{StrictValidation: true})
	_, err = strict.Create(context.Background(), inverted)
	assertAppError(t, err, appErrors.ErrValidation)
	_, err = strict.Create(context.Background(), window)
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestSlotServiceUpdateAndDeleteNotFound(t *testing.T) {
	svc := newTestSlotService(newSlotRepoStub(), SlotServiceConfig{})

	_, err := svc.Update(context.Background(), 9, "08:00:00", dto.UpdateSlotRequest{EndTime: "09:00:00"})
	assertAppError(t, err, appErrors.ErrNotFound)

	err = svc.Delete(context.Background(), 9, "08:00:00")
	assertAppError(t, err, appErrors.ErrNotFound)

	_, err = svc.Rekey(context.Background(), 9, "08:00:00", dto.RekeySlotRequest{NewStartTime: "09:00:00", EndTime: "10:00:00"})
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestSlotServiceRekey(t *testing.T) {
	repo := newSlotRepoStub(
		models.Slot{CampusID: 1, StartTime: "08:00:00", EndTime: "09:00:00", Status: models.SlotStatusValid},
		models.Slot{CampusID: 1, StartTime: "10:00:00", EndTime: "11:00:00", Status: models.SlotStatusValid},
	)
	svc := newTestSlotService(repo, SlotServiceConfig{})

	moved, err := svc.Rekey(context.Background(), 1, "08:00", dto.RekeySlotRequest{NewStartTime: "08:30", EndTime: "09:30"})
	require.NoError(t, err)
	assert.Equal(t, "08:30:00", moved.StartTime)
	_, stillThere := repo.rows[models.SlotKey{CampusID: 1, StartTime: "08:00:00"}]
	assert.False(t, stillThere)

	_, err = svc.Rekey(context.Background(), 1, "08:30:00", dto.RekeySlotRequest{NewStartTime: "10:00:00", EndTime: "11:00:00"})
	assertAppError(t, err, appErrors.ErrConflict)
}

func TestSlotServiceAvailability(t *testing.T) {
	repo := newSlotRepoStub(models.Slot{CampusID: 4, StartTime: "08:00:00", EndTime: "09:00:00", Status: models.SlotStatusValid, SuspendedFrom: dayOffset(0)})
	svc := newTestSlotService(repo, SlotServiceConfig{})

	got, err := svc.Availability(context.Background(), 4, "08:00", nil)
	require.NoError(t, err)
	assert.False(t, got.Allocatable)
	assert.Equal(t, today(), got.ReferenceDate)

	got, err = svc.Availability(context.Background(), 4, "08:00:00", dayOffset(-1))
	require.NoError(t, err)
	assert.True(t, got.Allocatable)

	_, err = svc.Availability(context.Background(), 4, "09:00:00", nil)
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestSlotServiceCampusDay(t *testing.T) {
	repo := newSlotRepoStub(
		models.Slot{CampusID: 5, StartTime: "08:00:00", EndTime: "09:00:00", Status: models.SlotStatusValid},
		models.Slot{CampusID: 5, StartTime: "09:00:00", EndTime: "10:00:00", Status: models.SlotStatusValid, SuspendedFrom: dayOffset(-1)},
		models.Slot{CampusID: 5, StartTime: "10:00:00", EndTime: "11:00:00", Status: models.SlotStatusInvalid},
	)
	svc := newTestSlotService(repo, SlotServiceConfig{})

	day, ref, err := svc.CampusDay(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.Equal(t, today(), ref)
	require.Len(t, day, 2)
	assert.True(t, day[0].Allocatable)
	assert.False(t, day[1].Allocatable)
}

func TestSlotServiceCachesReadsAndInvalidatesOnWrite(t *testing.T) {
	repo := newSlotRepoStub(models.Slot{CampusID: 1, StartTime: "08:00:00", EndTime: "09:00:00", Status: models.SlotStatusValid})
	memory, err := repository.NewMemoryCacheRepository(16)
	require.NoError(t, err)
	metrics := NewMetricsService()
	cache := NewCacheService(memory, metrics, time.Minute, nil, true)
	svc := NewSlotService(repo, cache, metrics, nil, nil, SlotServiceConfig{}).WithClock(func() time.Time { return fixedNow })

	for i := 0; i < 3; i++ {
		got, err := svc.ListAllocatable(context.Background(), 1, nil)
		require.NoError(t, err)
		require.Len(t, got.Slots, 1)
	}
	assert.Equal(t, 1, repo.calls["ListAllocatable"])

	_, err = svc.Create(context.Background(), dto.CreateSlotRequest{CampusID: 1, StartTime: "10:00:00", EndTime: "11:00:00"})
	require.NoError(t, err)
	assert.Equal(t, 0, memory.Len())

	got, err := svc.ListAllocatable(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Len(t, got.Slots, 2)
	assert.Equal(t, 2, repo.calls["ListAllocatable"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.CacheHits)
}

// Walks a slot through suspension and reinstatement against a moving clock.
func TestSlotServiceLifecycle(t *testing.T) {
	repo := newSlotRepoStub()
	now := fixedNow
	svc := NewSlotService(repo, nil, nil, nil, nil, SlotServiceConfig{}).WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateSlotRequest{CampusID: 7, StartTime: "08:00:00", EndTime: "09:00:00", Status: models.SlotStatusValid})
	require.NoError(t, err)

	listed, err := svc.ListAllocatable(ctx, 7, nil)
	require.NoError(t, err)
	require.Len(t, listed.Slots, 1)

	_, err = svc.Update(ctx, 7, "08:00:00", dto.UpdateSlotRequest{EndTime: "09:00:00", Status: models.SlotStatusValid, SuspendedFrom: dayOffset(0), SuspendedUntil: dayOffset(2)})
	require.NoError(t, err)

	listed, err = svc.ListAllocatable(ctx, 7, nil)
	require.NoError(t, err)
	assert.Empty(t, listed.Slots)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	now = fixedNow.AddDate(0, 0, 3)
	listed, err = svc.ListAllocatable(ctx, 7, nil)
	require.NoError(t, err)
	assert.Len(t, listed.Slots, 1)

	require.NoError(t, svc.Delete(ctx, 7, "08:00"))
	err = svc.Delete(ctx, 7, "08:00:00")
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestMapStoreError(t *testing.T) {
	err := mapStoreError(&pq.Error{Code: "23505"}, "x")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	err = mapStoreError(&pq.Error{Code: "22007"}, "x")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	err = mapStoreError(errors.New("boom"), "failed")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, "failed", appErrors.FromError(err).Message)
}
