package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "999", FormatCount(999))
	assert.Equal(t, "1,000", FormatCount(1000))
	assert.Equal(t, "12,345,678", FormatCount(12345678))
	assert.Equal(t, "-1,234", FormatCount(-1234))
}

func TestToPersianDigits(t *testing.T) {
	assert.Equal(t, "۱۲۳ abc", ToPersianDigits("123 abc"))
}

func TestClock_Gregorian(t *testing.T) {
	c, err := NewClock("", "UTC")
	require.NoError(t, err)

	ts := time.Date(2025, 3, 21, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "2025/03/21 - 09:05", c.Format(ts))
	assert.Equal(t, "20250321-090500", c.FileStamp(ts))
}

func TestClock_Jalali(t *testing.T) {
	c, err := NewClock(CalendarJalali, "Asia/Tehran")
	require.NoError(t, err)

	// 2025-03-21 00:00 Tehran is 1404/01/01.
	ts := time.Date(2025, 3, 20, 20, 30, 0, 0, time.UTC)
	assert.Equal(t, ToPersianDigits("1404/01/01 - 00:00"), c.Format(ts))
}

func TestNewClock_BadZone(t *testing.T) {
	_, err := NewClock("", "Not/AZone")
	assert.Error(t, err)
}
