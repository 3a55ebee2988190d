package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadZone(t *testing.T) {
	loc, err := LoadZone("")
	require.NoError(t, err)
	assert.Equal(t, AlmatyTZ, loc)

	loc, err = LoadZone("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadZone("Mars/Olympus")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	late := time.Date(2024, 3, 10, 18, 59, 0, 0, time.UTC) // 23:59 in Almaty
	early := time.Date(2024, 3, 10, 19, 1, 0, 0, time.UTC) // 00:01 next day

	assert.Equal(t, 1, DaysBetween(late, early, AlmatyTZ))
	assert.Equal(t, 0, DaysBetween(late, early, time.UTC))
	assert.Equal(t, -1, DaysBetween(early, late, AlmatyTZ))
}

func TestLastNDays(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, AlmatyTZ)

	days := LastNDays(now, 3, AlmatyTZ)
	require.Len(t, days, 3)
	assert.Equal(t, time.Date(2024, 2, 28, 0, 0, 0, 0, AlmatyTZ), days[0])
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, AlmatyTZ), days[2])
	assert.Nil(t, LastNDays(now, 0, AlmatyTZ))
}
