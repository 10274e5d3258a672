package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ts(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func tp(hour, minute int) *time.Time {
	t := ts(hour, minute)
	return &t
}

func TestSnapshotEqual(t *testing.T) {
	base := CorrectionSnapshot{
		ClockInTime:  tp(9, 0),
		ClockOutTime: tp(18, 0),
		Breaks: []CorrectionBreakItem{
			{BreakStartTime: ts(12, 0), BreakEndTime: tp(12, 45)},
			{BreakStartTime: ts(15, 0), BreakEndTime: tp(15, 15)},
		},
	}

	same := CorrectionSnapshot{
		ClockInTime:  tp(9, 0),
		ClockOutTime: tp(18, 0),
		Breaks: []CorrectionBreakItem{
			{BreakStartTime: ts(12, 0), BreakEndTime: tp(12, 45)},
			{BreakStartTime: ts(15, 0), BreakEndTime: tp(15, 15)},
		},
	}
	require.True(t, base.Equal(same))

	shifted := same
	shifted.ClockInTime = tp(9, 5)
	require.False(t, base.Equal(shifted))

	// Equality is positional over breaks, not set-based.
	swapped := CorrectionSnapshot{
		ClockInTime:  tp(9, 0),
		ClockOutTime: tp(18, 0),
		Breaks: []CorrectionBreakItem{
			{BreakStartTime: ts(15, 0), BreakEndTime: tp(15, 15)},
			{BreakStartTime: ts(12, 0), BreakEndTime: tp(12, 45)},
		},
	}
	require.False(t, base.Equal(swapped))

	fewer := same
	fewer.Breaks = fewer.Breaks[:1]
	require.False(t, base.Equal(fewer))
}

func TestSnapshotEqualNilTimestamps(t *testing.T) {
	open := CorrectionSnapshot{ClockInTime: tp(9, 0)}
	require.True(t, open.Equal(CorrectionSnapshot{ClockInTime: tp(9, 0)}))
	require.False(t, open.Equal(CorrectionSnapshot{ClockInTime: tp(9, 0), ClockOutTime: tp(18, 0)}))

	openBreak := CorrectionSnapshot{
		ClockInTime: tp(9, 0),
		Breaks:      []CorrectionBreakItem{{BreakStartTime: ts(12, 0)}},
	}
	closedBreak := CorrectionSnapshot{
		ClockInTime: tp(9, 0),
		Breaks:      []CorrectionBreakItem{{BreakStartTime: ts(12, 0), BreakEndTime: tp(12, 30)}},
	}
	require.False(t, openBreak.Equal(closedBreak))
}

func TestSnapshotEqualIgnoresLocation(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	a := CorrectionSnapshot{ClockInTime: tp(9, 0)}
	inJST := ts(9, 0).In(jst)
	b := CorrectionSnapshot{ClockInTime: &inJST}
	require.True(t, a.Equal(b))
}

func TestSnapshotFromAttendance(t *testing.T) {
	att := &Attendance{ClockInTime: tp(9, 0), ClockOutTime: tp(18, 0)}
	breaks := []BreakRecord{
		{BreakStartTime: ts(12, 0), BreakEndTime: tp(12, 45)},
	}

	snap := SnapshotFromAttendance(att, breaks)
	require.True(t, snap.ClockInTime.Equal(ts(9, 0)))
	require.Len(t, snap.Breaks, 1)
	require.True(t, snap.Breaks[0].BreakEndTime.Equal(ts(12, 45)))

	empty := SnapshotFromAttendance(att, nil)
	require.NotNil(t, empty.Breaks)
	require.Empty(t, empty.Breaks)
}
