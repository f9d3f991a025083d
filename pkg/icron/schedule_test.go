package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo_EverySixHours(t *testing.T) {
	ref := time.Date(2025, 5, 10, 13, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 */6 * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 5, 10, 18, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, 90*time.Minute, info.TimeSinceLast)
	assert.Equal(t, 270*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfo_EveryMinutePicksLatest(t *testing.T) {
	ref := time.Date(2025, 5, 10, 13, 30, 20, 0, time.UTC)

	info, err := GetTriggerInfo("* * * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 10, 13, 30, 0, 0, time.UTC), info.Last)
	assert.Equal(t, time.Date(2025, 5, 10, 13, 31, 0, 0, time.UTC), info.Next)
}

func TestGetTriggerInfo_Invalid(t *testing.T) {
	_, err := GetTriggerInfo("every day", time.Now())
	require.Error(t, err)
}
