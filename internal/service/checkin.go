package service

import (
	"context"
	"errors"
	"time"

	"cherries_service/internal/model"
	"cherries_service/internal/realtime"
	"cherries_service/internal/repository"
	"cherries_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckInService is the only component that mutates check-in cells and
// participant point totals. Each mutation is serialized per
// (user, task, date) so read-modify-write on count and total_points never
// interleaves, then announced to the quest's live subscribers.
type CheckInService struct {
	repo     CheckInRepository
	registry Broadcaster
	locks    cellLocks
}

func NewCheckInService(repo CheckInRepository, registry Broadcaster) *CheckInService {
	return &CheckInService{
		repo:     repo,
		registry: registry,
	}
}

func (s *CheckInService) Increment(ctx context.Context, questID, userID, taskID uuid.UUID,
	date time.Time, notes *string) (*model.CheckIn, error) {

	date = dateOnly(date)

	task, err := s.requireCell(ctx, questID, userID, taskID)
	if err != nil {
		return nil, err
	}

	mu := s.locks.cell(userID, taskID, date)
	mu.Lock()
	defer mu.Unlock()

	checkin, err := s.repo.IncrementCheckIn(ctx, questID, userID, taskID, date, task.Points, notes)
	if errors.Is(err, repository.ErrConflict) {
		checkin, err = s.repo.IncrementCheckIn(ctx, questID, userID, taskID, date, task.Points, notes)
	}
	if err != nil {
		return nil, err
	}

	s.notify(questID)
	return checkin, nil
}

// Decrement reverses one unit on the cell. The bool result reports that the
// cell went back to absent, which is a normal outcome, not an error.
func (s *CheckInService) Decrement(ctx context.Context, questID, userID, taskID uuid.UUID,
	date time.Time) (*model.CheckIn, bool, error) {

	date = dateOnly(date)

	task, err := s.requireCell(ctx, questID, userID, taskID)
	if err != nil {
		return nil, false, err
	}

	mu := s.locks.cell(userID, taskID, date)
	mu.Lock()
	defer mu.Unlock()

	checkin, cleared, err := s.repo.DecrementCheckIn(ctx, questID, userID, taskID, date, task.Points)
	if errors.Is(err, repository.ErrConflict) {
		checkin, cleared, err = s.repo.DecrementCheckIn(ctx, questID, userID, taskID, date, task.Points)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	s.notify(questID)
	return checkin, cleared, nil
}

func (s *CheckInService) ListCheckIns(ctx context.Context, questID, userID uuid.UUID,
	month *time.Time) ([]model.CheckIn, error) {

	if err := s.requireParticipant(ctx, questID, userID); err != nil {
		return nil, err
	}

	var from, to *time.Time
	if month != nil {
		start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		from, to = &start, &end
	}

	return s.repo.ListCheckIns(ctx, questID, userID, from, to)
}

func (s *CheckInService) Stats(ctx context.Context, questID, userID uuid.UUID) (*model.CheckInStats, error) {
	participant, err := s.repo.GetParticipant(ctx, questID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}

	checkins, err := s.repo.ListCheckIns(ctx, questID, userID, nil, nil)
	if err != nil {
		return nil, err
	}

	stats := computeStats(checkins, time.Now().UTC())
	stats.QuestID = questID
	stats.UserID = userID
	stats.TotalPoints = participant.TotalPoints

	return stats, nil
}

// requireCell gates a mutation: the actor must hold a participant row and the
// task must belong to the quest.
func (s *CheckInService) requireCell(ctx context.Context, questID, userID, taskID uuid.UUID) (*model.DailyTask, error) {
	if err := s.requireParticipant(ctx, questID, userID); err != nil {
		return nil, err
	}

	task, err := s.repo.GetDailyTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.QuestID != questID {
		return nil, ErrNotFound
	}

	return task, nil
}

func (s *CheckInService) requireParticipant(ctx context.Context, questID, userID uuid.UUID) error {
	_, err := s.repo.GetParticipant(ctx, questID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}
	return nil
}

// notify fans out a scoreboard_update to the whole room, the actor included:
// clients treat it as an invalidation signal and re-fetch. Delivery failures
// stay inside the registry and never fail the mutation.
func (s *CheckInService) notify(questID uuid.UUID) {
	s.registry.Broadcast(questID, realtime.ScoreboardUpdate(questID), uuid.Nil)
	logger.Logger().Debug("scoreboard update broadcast",
		zap.String("quest_id", questID.String()))
}
