package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"cherries_service/internal/model"
	"cherries_service/internal/repository"

	"github.com/google/uuid"
)

const (
	shareCodeLength   = 9
	shareCodeValidity = 3 * 24 * time.Hour
	defaultTaskPoints = 10
)

type QuestService struct {
	repo QuestRepository
}

func NewQuestService(repo QuestRepository) *QuestService {
	return &QuestService{
		repo: repo,
	}
}

func (s *QuestService) CreateQuest(ctx context.Context, creatorID uuid.UUID,
	quest *model.Quest, tasks []model.DailyTask) (*model.Quest, error) {

	code, err := generateShareCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share code: %w", err)
	}

	quest.CreatorID = creatorID
	quest.ShareCode = code
	quest.ShareCodeExpiresAt = time.Now().UTC().Add(shareCodeValidity)

	for i := range tasks {
		if tasks[i].Points <= 0 {
			tasks[i].Points = defaultTaskPoints
		}
	}

	if err := s.repo.CreateQuest(ctx, quest, tasks); err != nil {
		return nil, err
	}

	return quest, nil
}

func (s *QuestService) GetUserQuests(ctx context.Context, userID uuid.UUID) ([]*model.Quest, error) {
	return s.repo.GetQuestsByUser(ctx, userID)
}

func (s *QuestService) GetQuest(ctx context.Context, questID, userID uuid.UUID) (*model.Quest, error) {
	if err := s.requireParticipant(ctx, questID, userID); err != nil {
		return nil, err
	}

	quest, err := s.repo.GetQuestByID(ctx, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return quest, nil
}

func (s *QuestService) JoinQuest(ctx context.Context, userID uuid.UUID, shareCode string) (*model.Participant, error) {
	quest, err := s.repo.GetQuestByShareCode(ctx, shareCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if time.Now().UTC().After(quest.ShareCodeExpiresAt) {
		return nil, ErrShareCodeExpired
	}

	participant, err := s.repo.AddParticipant(ctx, quest.ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantExists) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}

	return participant, nil
}

func (s *QuestService) GetParticipants(ctx context.Context, questID, userID uuid.UUID) ([]*model.Participant, error) {
	if err := s.requireParticipant(ctx, questID, userID); err != nil {
		return nil, err
	}

	return s.repo.ListParticipants(ctx, questID)
}

func (s *QuestService) IsParticipant(ctx context.Context, questID, userID uuid.UUID) (bool, error) {
	_, err := s.repo.GetParticipant(ctx, questID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *QuestService) requireParticipant(ctx context.Context, questID, userID uuid.UUID) error {
	_, err := s.repo.GetParticipant(ctx, questID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}
	return nil
}

func generateShareCode() (string, error) {
	code := make([]byte, shareCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = byte('0') + byte(n.Int64())
	}
	return string(code), nil
}
