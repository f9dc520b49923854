package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-slot-api/internal/models"
)

const slotColumns = `campus_id, to_char(start_time, 'HH24:MI:SS') AS start_time, to_char(end_time, 'HH24:MI:SS') AS end_time, status, suspended_from, suspended_until`

// allocatableClause filters Valid slots whose suspension window is not in
// effect on the reference date bound at position $2.
const allocatableClause = `status = 'V' AND (suspended_from IS NULL OR suspended_from > $2::date OR (suspended_until IS NOT NULL AND suspended_until < $2::date))`

// SlotRepository persists campus slots keyed by (campus_id, start_time).
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository builds a slot repository over the shared pool.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// ListAll returns every Valid slot ordered by campus and start time.
func (r *SlotRepository) ListAll(ctx context.Context) ([]models.Slot, error) {
	query := "SELECT " + slotColumns + " FROM campus_slots WHERE status = 'V' ORDER BY campus_id ASC, start_time ASC"
	slots := []models.Slot{}
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// ListByCampus returns the Valid slots of a campus ignoring suspensions.
func (r *SlotRepository) ListByCampus(ctx context.Context, campusID int64) ([]models.Slot, error) {
	query := "SELECT " + slotColumns + " FROM campus_slots WHERE campus_id = $1 AND status = 'V' ORDER BY start_time ASC"
	slots := []models.Slot{}
	if err := r.db.SelectContext(ctx, &slots, query, campusID); err != nil {
		return nil, fmt.Errorf("list campus slots: %w", err)
	}
	return slots, nil
}

// ListAllocatable returns the campus slots allocatable on today.
func (r *SlotRepository) ListAllocatable(ctx context.Context, campusID int64, today models.Date) ([]models.Slot, error) {
	query := "SELECT " + slotColumns + " FROM campus_slots WHERE campus_id = $1 AND " + allocatableClause + " ORDER BY start_time ASC"
	slots := []models.Slot{}
	if err := r.db.SelectContext(ctx, &slots, query, campusID, today); err != nil {
		return nil, fmt.Errorf("list allocatable slots: %w", err)
	}
	return slots, nil
}

// ListAllocatableFrom returns the campus slots allocatable on today that end
// strictly after cutoff.
func (r *SlotRepository) ListAllocatableFrom(ctx context.Context, campusID int64, cutoff string, today models.Date) ([]models.Slot, error) {
	if cutoff == "" {
		cutoff = models.MidnightCutoff
	}
	query := "SELECT " + slotColumns + " FROM campus_slots WHERE campus_id = $1 AND " + allocatableClause + " AND end_time > $3::time ORDER BY start_time ASC"
	slots := []models.Slot{}
	if err := r.db.SelectContext(ctx, &slots, query, campusID, today, cutoff); err != nil {
		return nil, fmt.Errorf("list allocatable slots from %s: %w", cutoff, err)
	}
	return slots, nil
}

// FindByKey loads one slot regardless of status.
func (r *SlotRepository) FindByKey(ctx context.Context, campusID int64, startTime string) (*models.Slot, error) {
	query := "SELECT " + slotColumns + " FROM campus_slots WHERE campus_id = $1 AND start_time = $2::time"
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, campusID, startTime); err != nil {
		return nil, err
	}
	return &slot, nil
}

const insertSlotQuery = `INSERT INTO campus_slots (campus_id, start_time, end_time, status, suspended_from, suspended_until) VALUES (:campus_id, :start_time, :end_time, :status, :suspended_from, :suspended_until)`

// Create inserts a slot. Key uniqueness is enforced by the primary key only.
func (r *SlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	if _, err := r.db.NamedExecContext(ctx, insertSlotQuery, slot); err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// Update overwrites the attributes of the slot matching slot's key and
// returns the number of affected rows.
func (r *SlotRepository) Update(ctx context.Context, slot *models.Slot) (int64, error) {
	const query = `UPDATE campus_slots SET end_time = :end_time, status = :status, suspended_from = :suspended_from, suspended_until = :suspended_until WHERE campus_id = :campus_id AND start_time = :start_time`
	res, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		return 0, fmt.Errorf("update slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update slot rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes the slot with the given key and returns the number of
// affected rows.
func (r *SlotRepository) Delete(ctx context.Context, campusID int64, startTime string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campus_slots WHERE campus_id = $1 AND start_time = $2::time`, campusID, startTime)
	if err != nil {
		return 0, fmt.Errorf("delete slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete slot rows affected: %w", err)
	}
	return affected, nil
}

// Rekey moves the slot stored under (campusID, oldStart) to slot's key in
// one transaction. It returns 0 without inserting when the old key is absent.
func (r *SlotRepository) Rekey(ctx context.Context, campusID int64, oldStart string, slot *models.Slot) (affected int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rekey slot tx: %w", err)
	}
	defer func() {
		if err != nil || affected == 0 {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM campus_slots WHERE campus_id = $1 AND start_time = $2::time`, campusID, oldStart)
	if err != nil {
		return 0, fmt.Errorf("rekey slot delete: %w", err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rekey slot rows affected: %w", err)
	}
	if affected == 0 {
		return 0, nil
	}

	if _, err = tx.NamedExecContext(ctx, insertSlotQuery, slot); err != nil {
		return 0, fmt.Errorf("rekey slot insert: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rekey slot tx: %w", err)
	}
	return affected, nil
}
