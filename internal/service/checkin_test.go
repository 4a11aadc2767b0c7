package service

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"cherries_service/internal/model"
	"cherries_service/internal/realtime"
	"cherries_service/internal/repository"
	"cherries_service/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testQuestID = uuid.New()
	testUserID  = uuid.New()
	testTaskID  = uuid.New()
	testDate    = day("2024-03-10")
)

func testParticipant() *model.Participant {
	return &model.Participant{QuestID: testQuestID, UserID: testUserID, TotalPoints: 40}
}

func testTask() *model.DailyTask {
	return &model.DailyTask{ID: testTaskID, QuestID: testQuestID, Title: "Run 5k", Points: 20}
}

func TestCheckInService_Increment(t *testing.T) {
	tests := []struct {
		name          string
		mockSetup     func(repo *mocks.MockCheckInRepository, b *mocks.MockBroadcaster)
		expectedCount int
		expectedError error
	}{
		{
			name: "Not a participant",
			mockSetup: func(repo *mocks.MockCheckInRepository, b *mocks.MockBroadcaster) {
				repo.On("GetParticipant", mock.Anything, testQuestID, testUserID).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrNotParticipant,
		},
		{
			name: "Task not found",
			mockSetup: func(repo *mocks.MockCheckInRepository, b *mocks.MockBroadcaster) {
				repo.On("GetParticipant", mock.Anything, testQuestID, testUserID).
					Return(testParticipant(), nil)
				repo.On("GetDailyTask", mock.Anything, testTaskID).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrNotFound,
		},
		{
			name: "Task belongs to another quest",
			mockSetup: func(repo *mocks.MockCheckInRepository, b *mocks.MockBroadcaster) {
				repo.On("GetParticipant", mock.Anything, testQuestID, testUserID).
					Return(testParticipant(), nil)
				repo.On("GetDailyTask", mock.Anything, testTaskID).
					Return(&model.DailyTask{ID: testTaskID, QuestID: uuid.New(), Points: 20}, nil)
			},
			expectedError: ErrNotFound,
		},
		{
			name: "First increment creates cell and broadcasts",
			mockSetup: func(repo *mocks.MockCheckInRepository, b *mocks.MockBroadcaster) {
				repo.On("GetParticipant", mock.Anything, testQuestID, testUserID).
					Return(testParticipant(), nil)
				repo.On("GetDailyTask", mock.Anything, testTaskID).
					Return(testTask(), nil)
				repo.On("IncrementCheckIn", mock.Anything, testQuestID, testUserID, testTaskID,
					testDate, 20, (*string)(nil)).
					Return(&model.CheckIn{QuestID: testQuestID, Count: 1}, nil)
				b.On("Broadcast", testQuestID, realtime.ScoreboardUpdate(testQuestID), uuid.Nil).Once()
			},
			expectedCount: 1,
		},
		{
			name: "Conflict is retried once",
			mockSetup: func(repo *mocks.MockCheckInRepository, b *mocks.MockBroadcaster) {
				repo.On("GetParticipant", mock.Anything, testQuestID, testUserID).
					Return(testParticipant(), nil)
				repo.On("GetDailyTask", mock.Anything, testTaskID).
					Return(testTask(), nil)
				repo.On("IncrementCheckIn", mock.Anything, testQuestID, testUserID, testTaskID,
					testDate, 20, (*string)(nil)).
					Return(nil, repository.ErrConflict).Once()
				repo.On("IncrementCheckIn", mock.Anything, testQuestID, testUserID, testTaskID,
					testDate, 20, (*string)(nil)).
					Return(&model.CheckIn{QuestID: testQuestID, Count: 2}, nil).Once()
				b.On("Broadcast", testQuestID, realtime.ScoreboardUpdate(testQuestID), uuid.Nil).Once()
			},
			expectedCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockCheckInRepository{}
			mockBroadcaster := &mocks.MockBroadcaster{}
			tt.mockSetup(mockRepo, mockBroadcaster)

			s := NewCheckInService(mockRepo, mockBroadcaster)
			checkin, err := s.Increment(context.Background(), testQuestID, testUserID, testTaskID, testDate, nil)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, checkin)
				mockRepo.AssertNotCalled(t, "IncrementCheckIn",
					mock.Anything, mock.Anything, mock.Anything, mock.Anything,
					mock.Anything, mock.Anything, mock.Anything)
				mockBroadcaster.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedCount, checkin.Count)
			}

			mockRepo.AssertExpectations(t)
			mockBroadcaster.AssertExpectations(t)
		})
	}
}

func TestCheckInService_Decrement(t *testing.T) {
	t.Run("Missing cell is NotFound", func(t *testing.T) {
		mockRepo := &mocks.MockCheckInRepository{}
		mockBroadcaster := &mocks.MockBroadcaster{}

		mockRepo.On("GetParticipant", mock.Anything, testQuestID, testUserID).
			Return(testParticipant(), nil)
		mockRepo.On("GetDailyTask", mock.Anything, testTaskID).
			Return(testTask(), nil)
		mockRepo.On("DecrementCheckIn", mock.Anything, testQuestID, testUserID, testTaskID,
			testDate, 20).
			Return(nil, false, repository.ErrNotFound)

		s := NewCheckInService(mockRepo, mockBroadcaster)
		checkin, cleared, err := s.Decrement(context.Background(), testQuestID, testUserID, testTaskID, testDate)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, checkin)
		assert.False(t, cleared)
		mockBroadcaster.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Count one clears the cell", func(t *testing.T) {
		mockRepo := &mocks.MockCheckInRepository{}
		mockBroadcaster := &mocks.MockBroadcaster{}

		mockRepo.On("GetParticipant", mock.Anything, testQuestID, testUserID).
			Return(testParticipant(), nil)
		mockRepo.On("GetDailyTask", mock.Anything, testTaskID).
			Return(testTask(), nil)
		mockRepo.On("DecrementCheckIn", mock.Anything, testQuestID, testUserID, testTaskID,
			testDate, 20).
			Return(nil, true, nil)
		mockBroadcaster.On("Broadcast", testQuestID, realtime.ScoreboardUpdate(testQuestID), uuid.Nil).Once()

		s := NewCheckInService(mockRepo, mockBroadcaster)
		checkin, cleared, err := s.Decrement(context.Background(), testQuestID, testUserID, testTaskID, testDate)

		require.NoError(t, err)
		assert.Nil(t, checkin)
		assert.True(t, cleared)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("Higher count is reduced in place", func(t *testing.T) {
		mockRepo := &mocks.MockCheckInRepository{}
		mockBroadcaster := &mocks.MockBroadcaster{}

		mockRepo.On("GetParticipant", mock.Anything, testQuestID, testUserID).
			Return(testParticipant(), nil)
		mockRepo.On("GetDailyTask", mock.Anything, testTaskID).
			Return(testTask(), nil)
		mockRepo.On("DecrementCheckIn", mock.Anything, testQuestID, testUserID, testTaskID,
			testDate, 20).
			Return(&model.CheckIn{QuestID: testQuestID, Count: 2}, false, nil)
		mockBroadcaster.On("Broadcast", testQuestID, realtime.ScoreboardUpdate(testQuestID), uuid.Nil).Once()

		s := NewCheckInService(mockRepo, mockBroadcaster)
		checkin, cleared, err := s.Decrement(context.Background(), testQuestID, testUserID, testTaskID, testDate)

		require.NoError(t, err)
		assert.False(t, cleared)
		assert.Equal(t, 2, checkin.Count)
	})
}

func TestCheckInService_Stats(t *testing.T) {
	mockRepo := &mocks.MockCheckInRepository{}
	mockBroadcaster := &mocks.MockBroadcaster{}

	mockRepo.On("GetParticipant", mock.Anything, testQuestID, testUserID).
		Return(testParticipant(), nil)
	mockRepo.On("ListCheckIns", mock.Anything, testQuestID, testUserID,
		(*time.Time)(nil), (*time.Time)(nil)).
		Return(rows("2024-01-01", "2024-01-02"), nil)

	s := NewCheckInService(mockRepo, mockBroadcaster)
	stats, err := s.Stats(context.Background(), testQuestID, testUserID)

	require.NoError(t, err)
	assert.Equal(t, testQuestID, stats.QuestID)
	assert.Equal(t, testUserID, stats.UserID)
	assert.Equal(t, 40, stats.TotalPoints)
	assert.Equal(t, 2, stats.TotalCheckIns)
	assert.Equal(t, 2, stats.LongestStreak)
}

// fakeLedgerRepo emulates the durable store with a deliberately racy
// read-modify-write: count is read, the goroutine yields, then the new value
// is written. Without the service's per-cell serialization this loses updates.
type fakeLedgerRepo struct {
	mu     sync.Mutex
	counts map[string]int
	points int
	task   *model.DailyTask
}

func newFakeLedgerRepo(task *model.DailyTask) *fakeLedgerRepo {
	return &fakeLedgerRepo{
		counts: make(map[string]int),
		task:   task,
	}
}

func cellKey(userID, taskID uuid.UUID, date time.Time) string {
	return userID.String() + taskID.String() + date.Format("2006-01-02")
}

func (f *fakeLedgerRepo) GetParticipant(_ context.Context, questID, userID uuid.UUID) (*model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.Participant{QuestID: questID, UserID: userID, TotalPoints: f.points}, nil
}

func (f *fakeLedgerRepo) GetDailyTask(_ context.Context, _ uuid.UUID) (*model.DailyTask, error) {
	return f.task, nil
}

func (f *fakeLedgerRepo) IncrementCheckIn(_ context.Context, questID, userID, taskID uuid.UUID,
	date time.Time, points int, notes *string) (*model.CheckIn, error) {

	key := cellKey(userID, taskID, date)

	f.mu.Lock()
	count := f.counts[key]
	f.mu.Unlock()

	runtime.Gosched()

	f.mu.Lock()
	f.counts[key] = count + 1
	f.points += points
	result := f.counts[key]
	f.mu.Unlock()

	return &model.CheckIn{QuestID: questID, UserID: userID, DailyTaskID: taskID,
		CheckInDate: date, Count: result}, nil
}

func (f *fakeLedgerRepo) DecrementCheckIn(_ context.Context, questID, userID, taskID uuid.UUID,
	date time.Time, points int) (*model.CheckIn, bool, error) {

	key := cellKey(userID, taskID, date)

	f.mu.Lock()
	count, ok := f.counts[key]
	f.mu.Unlock()

	if !ok {
		return nil, false, repository.ErrNotFound
	}

	runtime.Gosched()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.points -= points
	if f.points < 0 {
		f.points = 0
	}

	if count <= 1 {
		delete(f.counts, key)
		return nil, true, nil
	}
	f.counts[key] = count - 1
	return &model.CheckIn{QuestID: questID, UserID: userID, DailyTaskID: taskID,
		CheckInDate: date, Count: count - 1}, false, nil
}

func (f *fakeLedgerRepo) ListCheckIns(_ context.Context, _, _ uuid.UUID, _, _ *time.Time) ([]model.CheckIn, error) {
	return nil, nil
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(uuid.UUID, realtime.Event, uuid.UUID) {}

func TestCheckInService_ConcurrentIncrementsDoNotLoseUpdates(t *testing.T) {
	const incs = 50
	const decs = 20

	fake := newFakeLedgerRepo(testTask())
	s := NewCheckInService(fake, nopBroadcaster{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < incs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Increment(ctx, testQuestID, testUserID, testTaskID, testDate, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := 0; i < decs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Decrement(ctx, testQuestID, testUserID, testTaskID, testDate)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	key := cellKey(testUserID, testTaskID, testDate)
	assert.Equal(t, incs-decs, fake.counts[key])
	assert.Equal(t, (incs-decs)*testTask().Points, fake.points)
}

func TestCheckInService_OverDecrementLeavesNoNegativeState(t *testing.T) {
	fake := newFakeLedgerRepo(testTask())
	s := NewCheckInService(fake, nopBroadcaster{})
	ctx := context.Background()

	_, err := s.Increment(ctx, testQuestID, testUserID, testTaskID, testDate, nil)
	require.NoError(t, err)

	_, cleared, err := s.Decrement(ctx, testQuestID, testUserID, testTaskID, testDate)
	require.NoError(t, err)
	assert.True(t, cleared)

	// Cell is absent now; a further decrement must fail and change nothing.
	_, _, err = s.Decrement(ctx, testQuestID, testUserID, testTaskID, testDate)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, fake.points)
	assert.Empty(t, fake.counts)
}
