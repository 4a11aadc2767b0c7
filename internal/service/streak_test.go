package service

import (
	"testing"
	"time"

	"cherries_service/internal/model"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rows(dates ...string) []model.CheckIn {
	result := make([]model.CheckIn, 0, len(dates))
	for _, d := range dates {
		result = append(result, model.CheckIn{CheckInDate: day(d), Count: 1})
	}
	return result
}

func TestComputeStats_Streaks(t *testing.T) {
	tests := []struct {
		name            string
		checkins        []model.CheckIn
		today           string
		expectedCurrent int
		expectedLongest int
		expectedTotal   int
	}{
		{
			name:            "No check-ins",
			checkins:        nil,
			today:           "2024-01-06",
			expectedCurrent: 0,
			expectedLongest: 0,
			expectedTotal:   0,
		},
		{
			name:            "Gap after three days, last check-in today",
			checkins:        rows("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-06"),
			today:           "2024-01-06",
			expectedCurrent: 1,
			expectedLongest: 3,
			expectedTotal:   4,
		},
		{
			name:            "Yesterday still counts",
			checkins:        rows("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-06"),
			today:           "2024-01-07",
			expectedCurrent: 1,
			expectedLongest: 3,
			expectedTotal:   4,
		},
		{
			name:            "Streak lapsed",
			checkins:        rows("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-06"),
			today:           "2024-01-08",
			expectedCurrent: 0,
			expectedLongest: 3,
			expectedTotal:   4,
		},
		{
			name:            "Unbroken run ending today",
			checkins:        rows("2024-01-04", "2024-01-05", "2024-01-06"),
			today:           "2024-01-06",
			expectedCurrent: 3,
			expectedLongest: 3,
			expectedTotal:   3,
		},
		{
			name:            "Longest streak in the middle",
			checkins:        rows("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-10", "2024-01-11"),
			today:           "2024-01-11",
			expectedCurrent: 2,
			expectedLongest: 4,
			expectedTotal:   6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := computeStats(tt.checkins, day(tt.today))
			assert.Equal(t, tt.expectedCurrent, stats.CurrentStreak)
			assert.Equal(t, tt.expectedLongest, stats.LongestStreak)
			assert.Equal(t, tt.expectedTotal, stats.TotalCheckIns)
		})
	}
}

func TestComputeStats_SameDateTasksCollapseForStreak(t *testing.T) {
	// Two tasks on the same date: one date for streak purposes, two check-ins.
	checkins := []model.CheckIn{
		{CheckInDate: day("2024-01-05"), Count: 1},
		{CheckInDate: day("2024-01-05"), Count: 1},
		{CheckInDate: day("2024-01-06"), Count: 1},
	}

	stats := computeStats(checkins, day("2024-01-06"))
	assert.Equal(t, 3, stats.TotalCheckIns)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)
}

func TestComputeStats_CountsWeighHigherThanRows(t *testing.T) {
	checkins := []model.CheckIn{
		{CheckInDate: day("2024-01-05"), Count: 3},
	}

	stats := computeStats(checkins, day("2024-01-05"))
	assert.Equal(t, 3, stats.TotalCheckIns)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 1, stats.LongestStreak)
}
