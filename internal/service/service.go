package service

import (
	"context"
	"errors"
	"time"

	"cherries_service/internal/model"
	"cherries_service/internal/realtime"

	"github.com/google/uuid"
)

var (
	ErrNotParticipant   = errors.New("not a participant of this quest")
	ErrNotFound         = errors.New("not found")
	ErrShareCodeExpired = errors.New("share code has expired")
	ErrAlreadyJoined    = errors.New("already a participant of this quest")
)

type Service struct {
	*QuestService
	*CheckInService
}

func NewService(questService *QuestService, checkInService *CheckInService) *Service {
	return &Service{
		QuestService:   questService,
		CheckInService: checkInService,
	}
}

type QuestServiceI interface {
	CreateQuest(ctx context.Context, creatorID uuid.UUID, quest *model.Quest, tasks []model.DailyTask) (*model.Quest, error)
	GetUserQuests(ctx context.Context, userID uuid.UUID) ([]*model.Quest, error)
	GetQuest(ctx context.Context, questID, userID uuid.UUID) (*model.Quest, error)
	JoinQuest(ctx context.Context, userID uuid.UUID, shareCode string) (*model.Participant, error)
	GetParticipants(ctx context.Context, questID, userID uuid.UUID) ([]*model.Participant, error)
	IsParticipant(ctx context.Context, questID, userID uuid.UUID) (bool, error)
}

type QuestRepository interface {
	CreateQuest(ctx context.Context, quest *model.Quest, tasks []model.DailyTask) error
	GetQuestByID(ctx context.Context, questID uuid.UUID) (*model.Quest, error)
	GetQuestByShareCode(ctx context.Context, shareCode string) (*model.Quest, error)
	GetQuestsByUser(ctx context.Context, userID uuid.UUID) ([]*model.Quest, error)
	GetParticipant(ctx context.Context, questID, userID uuid.UUID) (*model.Participant, error)
	AddParticipant(ctx context.Context, questID, userID uuid.UUID) (*model.Participant, error)
	ListParticipants(ctx context.Context, questID uuid.UUID) ([]*model.Participant, error)
}

type CheckInServiceI interface {
	Increment(ctx context.Context, questID, userID, taskID uuid.UUID, date time.Time, notes *string) (*model.CheckIn, error)
	Decrement(ctx context.Context, questID, userID, taskID uuid.UUID, date time.Time) (*model.CheckIn, bool, error)
	ListCheckIns(ctx context.Context, questID, userID uuid.UUID, month *time.Time) ([]model.CheckIn, error)
	Stats(ctx context.Context, questID, userID uuid.UUID) (*model.CheckInStats, error)
}

type CheckInRepository interface {
	GetParticipant(ctx context.Context, questID, userID uuid.UUID) (*model.Participant, error)
	GetDailyTask(ctx context.Context, taskID uuid.UUID) (*model.DailyTask, error)
	IncrementCheckIn(ctx context.Context, questID, userID, taskID uuid.UUID, date time.Time, points int, notes *string) (*model.CheckIn, error)
	DecrementCheckIn(ctx context.Context, questID, userID, taskID uuid.UUID, date time.Time, points int) (*model.CheckIn, bool, error)
	ListCheckIns(ctx context.Context, questID, userID uuid.UUID, from, to *time.Time) ([]model.CheckIn, error)
}

// Broadcaster is the registry surface the ledger needs to announce scoreboard
// changes.
type Broadcaster interface {
	Broadcast(questID uuid.UUID, event realtime.Event, excludeUserID uuid.UUID)
}
