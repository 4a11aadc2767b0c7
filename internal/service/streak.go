package service

import (
	"time"

	"cherries_service/internal/model"
)

// computeStats walks check-in rows ordered ascending by date and derives the
// streak figures. Rows for different tasks on the same calendar date collapse
// to one date for the streak walk but still each add their count to
// TotalCheckIns. The running streak carries into CurrentStreak only while the
// last check-in date is today or yesterday (UTC calendar days).
func computeStats(checkins []model.CheckIn, now time.Time) *model.CheckInStats {
	stats := &model.CheckInStats{}

	today := dateOnly(now)
	yesterday := today.AddDate(0, 0, -1)

	var (
		lastDate time.Time
		run      int
	)

	for _, c := range checkins {
		stats.TotalCheckIns += c.Count

		d := dateOnly(c.CheckInDate)
		switch {
		case run == 0:
			run = 1
		case d.Equal(lastDate):
			continue
		case d.Equal(lastDate.AddDate(0, 0, 1)):
			run++
		default:
			run = 1
		}

		if run > stats.LongestStreak {
			stats.LongestStreak = run
		}
		lastDate = d
	}

	if run > 0 && (lastDate.Equal(today) || lastDate.Equal(yesterday)) {
		stats.CurrentStreak = run
	}

	return stats
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
