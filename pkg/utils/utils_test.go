package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysPastDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueDate time.Time
		want    int
	}{
		{"due 100 days ago", now.AddDate(0, 0, -100), 100},
		{"due yesterday", now.AddDate(0, 0, -1), 1},
		{"due today", now, 0},
		{"due in the future", now.AddDate(0, 0, 30), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysPastDue(tt.dueDate, now))
		})
	}
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 45, DaysSince(now.AddDate(0, 0, -45), now))
	assert.Equal(t, 0, DaysSince(now, now))
	assert.Equal(t, 0, DaysSince(now.Add(-12*time.Hour), now), "partial days do not count")
}
