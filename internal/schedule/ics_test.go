package schedule

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//lab//schedule//EN
BEGIN:VEVENT
UID:ev-maint@lab
DTSTAMP:20260301T000000Z
DTSTART:20260302T090000Z
DTEND:20260302T110000Z
SUMMARY:Lab Maintenance
END:VEVENT
BEGIN:VEVENT
UID:ev-oh@lab
DTSTAMP:20260301T000000Z
DTSTART:20260302T130000Z
DTEND:20260302T150000Z
SUMMARY:Lab OH with TAs
END:VEVENT
BEGIN:VEVENT
UID:ev-section@lab
DTSTAMP:20260301T000000Z
DTSTART:20260302T160000Z
DTEND:20260302T180000Z
SUMMARY:EECS Lab Section 004
END:VEVENT
BEGIN:VEVENT
UID:ev-lecture@lab
DTSTAMP:20260301T000000Z
DTSTART:20260302T190000Z
DTEND:20260302T200000Z
SUMMARY:Guest Lecture
END:VEVENT
END:VCALENDAR
`

func writeCalendar(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.ics")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadICSClassifiesEvents(t *testing.T) {
	events, err := LoadICS(writeCalendar(t, sampleCalendar))
	require.NoError(t, err)
	// The lecture carries none of the recognized keywords and is skipped.
	require.Len(t, events, 3)

	kinds := make(map[Signal]Event, len(events))
	for _, e := range events {
		kinds[e.Kind] = e
	}

	maint := kinds[SignalMaintenance]
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), maint.Start.UTC())
	assert.Equal(t, time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), maint.End.UTC())

	assert.Contains(t, kinds, SignalOfficeHours)
	assert.Contains(t, kinds, SignalRestrictedSession)
}

func TestLoadICSMissingFile(t *testing.T) {
	events, err := LoadICS(filepath.Join(t.TempDir(), "nope.ics"))
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestLoadICSMalformed(t *testing.T) {
	_, err := LoadICS(writeCalendar(t, "this is not a calendar"))
	assert.ErrorIs(t, err, ErrMalformedSchedule)
}

func TestLoadICSEndBeforeStart(t *testing.T) {
	cal := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//lab//schedule//EN
BEGIN:VEVENT
UID:ev-bad@lab
DTSTAMP:20260301T000000Z
DTSTART:20260302T110000Z
DTEND:20260302T090000Z
SUMMARY:Lab Maintenance
END:VEVENT
END:VCALENDAR
`
	_, err := LoadICS(writeCalendar(t, cal))
	assert.ErrorIs(t, err, ErrMalformedSchedule)
}

func TestSourceServesLastGoodOnFailedReload(t *testing.T) {
	path := writeCalendar(t, sampleCalendar)
	src := NewSource(path, time.Minute)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	events, err := src.Events(now)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, SignalMaintenance, src.Resolve(now))

	// Corrupt the upload; the mtime change forces a reload attempt, which
	// fails and keeps serving the previous event set.
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	future := time.Unix(now.Unix()+3600, 0)
	require.NoError(t, os.Chtimes(path, future, future))

	events, err = src.Events(now.Add(2 * time.Minute))
	assert.ErrorIs(t, err, ErrMalformedSchedule)
	assert.Len(t, events, 3)
	assert.Equal(t, SignalMaintenance, src.Resolve(now))
}

func TestSourceMissingFileYieldsNone(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "absent.ics"), time.Minute)
	assert.Equal(t, SignalNone, src.Resolve(time.Now()))
}
