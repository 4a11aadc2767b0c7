package model

import (
	"time"

	"github.com/google/uuid"
)

type Quest struct {
	ID                 uuid.UUID
	Name               string
	Description        *string
	StartDate          time.Time
	EndDate            time.Time
	CreatorID          uuid.UUID
	ShareCode          string
	ShareCodeExpiresAt time.Time
	CreatedAt          time.Time
	DailyTasks         []DailyTask
}

type DailyTask struct {
	ID          uuid.UUID
	QuestID     uuid.UUID
	Title       string
	Description *string
	Points      int
	CreatedAt   time.Time
}

type Participant struct {
	QuestID     uuid.UUID
	UserID      uuid.UUID
	JoinedAt    time.Time
	TotalPoints int
}
