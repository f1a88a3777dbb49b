package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:17")
	require.NoError(t, err)
	require.Equal(t, TimeOfDay{Hour: 9, Minute: 17}, tod)

	_, err = ParseTimeOfDay("9:17:00")
	require.Error(t, err)
	_, err = ParseTimeOfDay("")
	require.Error(t, err)
}

func TestTimeOfDayAddMinutes(t *testing.T) {
	require.Equal(t, TimeOfDay{Hour: 9, Minute: 18}, TimeOfDay{Hour: 9, Minute: 17}.AddMinutes(1))
	require.Equal(t, TimeOfDay{Hour: 0, Minute: 1}, TimeOfDay{Hour: 23, Minute: 59}.AddMinutes(2))
	require.Equal(t, TimeOfDay{Hour: 9, Minute: 17}, TimeOfDay{Hour: 9, Minute: 17}.AddMinutes(0))
}

func TestTimeOfDayOn(t *testing.T) {
	ref := time.Date(2025, 9, 4, 14, 55, 31, 0, ist)
	instant := TimeOfDay{Hour: 9, Minute: 17}.On(ref)
	require.Equal(t, time.Date(2025, 9, 4, 9, 17, 0, 0, ist), instant)
}

func TestHasPassed(t *testing.T) {
	e := &Engine{now: func() time.Time {
		return time.Date(2025, 9, 4, 9, 17, 30, 0, ist)
	}}

	require.True(t, e.hasPassed(TimeOfDay{Hour: 9, Minute: 17}))
	require.True(t, e.hasPassed(TimeOfDay{Hour: 9, Minute: 16}))
	require.False(t, e.hasPassed(TimeOfDay{Hour: 9, Minute: 18}))

	// Seconds within the current minute do not count as past.
	require.False(t, e.strictlyPast(TimeOfDay{Hour: 9, Minute: 17}))
	require.True(t, e.strictlyPast(TimeOfDay{Hour: 9, Minute: 16}))
}
