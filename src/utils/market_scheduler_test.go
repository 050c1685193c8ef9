package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarketScheduler_IntervalFor(t *testing.T) {
	ms := NewMarketScheduler(newTestCalendar(t), 5*time.Minute)

	assert.Equal(t, 15*time.Second, ms.IntervalFor(nyTime(t, "2025-01-06 10:00"), 15000))
	assert.Equal(t, 30*time.Second, ms.IntervalFor(nyTime(t, "2025-01-06 10:00"), 30000))
	assert.Equal(t, 5*time.Minute, ms.IntervalFor(nyTime(t, "2025-01-06 20:00"), 15000))
	assert.Equal(t, 5*time.Minute, ms.IntervalFor(nyTime(t, "2025-01-04 10:00"), 15000))
}

func TestMarketScheduler_Status(t *testing.T) {
	ms := NewMarketScheduler(newTestCalendar(t), 5*time.Minute)

	open := ms.Status(nyTime(t, "2025-01-06 14:05"))
	assert.True(t, open.IsOpen)
	assert.Equal(t, "Market Open", open.Message)
	assert.Equal(t, "02:05 PM", open.CurrentTime)
	assert.Equal(t, "Monday, January 6, 2025", open.CurrentDate)

	closed := ms.Status(nyTime(t, "2025-01-04 09:45"))
	assert.False(t, closed.IsOpen)
	assert.Equal(t, "Market Closed", closed.Message)
	assert.Equal(t, "09:45 AM", closed.CurrentTime)
	assert.Equal(t, "Saturday, January 4, 2025", closed.CurrentDate)
}
