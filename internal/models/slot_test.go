package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refDay = time.Date(2026, time.October, 18, 15, 30, 0, 0, time.Local)

func day(offset int) *Date {
	d := DateOf(refDay).AddDays(offset)
	return &d
}

func TestSlotIsAllocatable(t *testing.T) {
	cases := []struct {
		name string
		slot Slot
		want bool
	}{
		{"valid never suspended", Slot{Status: SlotStatusValid}, true},
		{"invalid never suspended", Slot{Status: SlotStatusInvalid}, false},
		{"invalid with elapsed window", Slot{Status: SlotStatusInvalid, SuspendedFrom: day(-5), SuspendedUntil: day(-3)}, false},
		{"unknown status", Slot{Status: "X"}, false},
		{"suspension starts tomorrow", Slot{Status: SlotStatusValid, SuspendedFrom: day(1)}, true},
		{"suspension starts today open ended", Slot{Status: SlotStatusValid, SuspendedFrom: day(0)}, false},
		{"suspension started yesterday open ended", Slot{Status: SlotStatusValid, SuspendedFrom: day(-1)}, false},
		{"window elapsed yesterday", Slot{Status: SlotStatusValid, SuspendedFrom: day(-1), SuspendedUntil: day(-1)}, true},
		{"window ends today", Slot{Status: SlotStatusValid, SuspendedFrom: day(-1), SuspendedUntil: day(0)}, false},
		{"inside window", Slot{Status: SlotStatusValid, SuspendedFrom: day(-2), SuspendedUntil: day(2)}, false},
		{"until without from", Slot{Status: SlotStatusValid, SuspendedUntil: day(3)}, true},
		{"until in past without from", Slot{Status: SlotStatusValid, SuspendedUntil: day(-3)}, true},
		{"inverted window in future", Slot{Status: SlotStatusValid, SuspendedFrom: day(3), SuspendedUntil: day(1)}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.slot.IsAllocatable(refDay))
		})
	}
}

func TestSlotSuspendedFromTomorrowOverTime(t *testing.T) {
	slot := Slot{Status: SlotStatusValid, SuspendedFrom: day(1)}

	assert.True(t, slot.IsAllocatable(refDay))
	assert.False(t, slot.IsAllocatable(refDay.AddDate(0, 0, 1)))
	assert.False(t, slot.IsAllocatable(refDay.AddDate(0, 1, 0)))
}

func TestSlotIsAllocatableIgnoresTimeOfDay(t *testing.T) {
	slot := Slot{Status: SlotStatusValid, SuspendedFrom: day(1)}
	lateNight := time.Date(2026, time.October, 18, 23, 59, 59, 0, time.Local)
	assert.True(t, slot.IsAllocatable(lateNight))
}

func TestFilterAllocatableKeepsOrder(t *testing.T) {
	slots := []Slot{
		{CampusID: 1, StartTime: "08:00:00", EndTime: "09:00:00", Status: SlotStatusValid},
		{CampusID: 1, StartTime: "09:00:00", EndTime: "10:00:00", Status: SlotStatusValid, SuspendedFrom: day(0)},
		{CampusID: 1, StartTime: "10:00:00", EndTime: "11:00:00", Status: SlotStatusValid},
	}

	got := FilterAllocatable(slots, refDay)
	require.Len(t, got, 2)
	assert.Equal(t, "08:00:00", got[0].StartTime)
	assert.Equal(t, "10:00:00", got[1].StartTime)
}

func TestNormalizeClock(t *testing.T) {
	v, err := NormalizeClock("8:05")
	require.NoError(t, err)
	assert.Equal(t, "08:05:00", v)

	v, err = NormalizeClock(" 23:59:59 ")
	require.NoError(t, err)
	assert.Equal(t, "23:59:59", v)

	for _, bad := range []string{"", "24:00:00", "10h", "10:61"} {
		_, err := NormalizeClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestDateComparisonsAndJSON(t *testing.T) {
	a := Date{Year: 2026, Month: time.October, Day: 18}
	b := a.AddDays(1)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.Equal(t, "2026-10-19", b.String())
	assert.Equal(t, Date{Year: 2027, Month: time.January, Day: 1}, Date{Year: 2026, Month: time.December, Day: 31}.AddDays(1))

	raw, err := json.Marshal(Slot{CampusID: 1, StartTime: "08:00:00", EndTime: "09:00:00", Status: SlotStatusValid, SuspendedFrom: &a})
	require.NoError(t, err)
	assert.JSONEq(t, `{"campus_id":1,"start_time":"08:00:00","end_time":"09:00:00","status":"V","suspended_from":"2026-10-18"}`, string(raw))

	var decoded Slot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.NotNil(t, decoded.SuspendedFrom)
	assert.Equal(t, a, *decoded.SuspendedFrom)
	assert.Nil(t, decoded.SuspendedUntil)
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-03-02", d.String())

	require.NoError(t, d.Scan([]byte("2026-04-05T00:00:00Z")))
	assert.Equal(t, "2026-04-05", d.String())

	assert.Error(t, d.Scan(42))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2026-04-05", v)
}
