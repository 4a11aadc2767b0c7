package model

import (
	"time"

	"github.com/google/uuid"
)

// CheckIn is one ledger cell: how many times a participant logged a task on a
// given UTC calendar date. A cell with count 0 is never stored.
type CheckIn struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	QuestID     uuid.UUID
	DailyTaskID uuid.UUID
	CheckInDate time.Time
	Count       int
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

type CheckInStats struct {
	QuestID       uuid.UUID
	UserID        uuid.UUID
	TotalCheckIns int
	TotalPoints   int
	CurrentStreak int
	LongestStreak int
}
