package mocks

import (
	"context"
	"time"

	"cherries_service/internal/model"
	"cherries_service/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) CreateQuest(ctx context.Context, quest *model.Quest, tasks []model.DailyTask) error {
	args := m.Called(ctx, quest, tasks)
	return args.Error(0)
}

func (m *MockQuestRepository) GetQuestByID(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	args := m.Called(ctx, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetQuestByShareCode(ctx context.Context, shareCode string) (*model.Quest, error) {
	args := m.Called(ctx, shareCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetQuestsByUser(ctx context.Context, userID uuid.UUID) ([]*model.Quest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetParticipant(ctx context.Context, questID, userID uuid.UUID) (*model.Participant, error) {
	args := m.Called(ctx, questID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participant), args.Error(1)
}

func (m *MockQuestRepository) AddParticipant(ctx context.Context, questID, userID uuid.UUID) (*model.Participant, error) {
	args := m.Called(ctx, questID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participant), args.Error(1)
}

func (m *MockQuestRepository) ListParticipants(ctx context.Context, questID uuid.UUID) ([]*model.Participant, error) {
	args := m.Called(ctx, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Participant), args.Error(1)
}

type MockCheckInRepository struct {
	mock.Mock
}

func (m *MockCheckInRepository) GetParticipant(ctx context.Context, questID, userID uuid.UUID) (*model.Participant, error) {
	args := m.Called(ctx, questID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participant), args.Error(1)
}

func (m *MockCheckInRepository) GetDailyTask(ctx context.Context, taskID uuid.UUID) (*model.DailyTask, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyTask), args.Error(1)
}

func (m *MockCheckInRepository) IncrementCheckIn(ctx context.Context, questID, userID, taskID uuid.UUID,
	date time.Time, points int, notes *string) (*model.CheckIn, error) {
	args := m.Called(ctx, questID, userID, taskID, date, points, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckIn), args.Error(1)
}

func (m *MockCheckInRepository) DecrementCheckIn(ctx context.Context, questID, userID, taskID uuid.UUID,
	date time.Time, points int) (*model.CheckIn, bool, error) {
	args := m.Called(ctx, questID, userID, taskID, date, points)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.CheckIn), args.Bool(1), args.Error(2)
}

func (m *MockCheckInRepository) ListCheckIns(ctx context.Context, questID, userID uuid.UUID,
	from, to *time.Time) ([]model.CheckIn, error) {
	args := m.Called(ctx, questID, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CheckIn), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(questID uuid.UUID, event realtime.Event, excludeUserID uuid.UUID) {
	m.Called(questID, event, excludeUserID)
}
