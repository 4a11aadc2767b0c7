package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cherries_service/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Quest struct {
	ID                 uuid.UUID `db:"id"`
	Name               string    `db:"name"`
	Description        *string   `db:"description"`
	StartDate          time.Time `db:"start_date"`
	EndDate            time.Time `db:"end_date"`
	CreatorID          uuid.UUID `db:"creator_id"`
	ShareCode          string    `db:"share_code"`
	ShareCodeExpiresAt time.Time `db:"share_code_expires_at"`
	CreatedAt          time.Time `db:"created_at"`
}

type DailyTask struct {
	ID          uuid.UUID `db:"id"`
	QuestID     uuid.UUID `db:"quest_id"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	Points      int       `db:"points"`
	CreatedAt   time.Time `db:"created_at"`
}

type Participant struct {
	QuestID     uuid.UUID `db:"quest_id"`
	UserID      uuid.UUID `db:"user_id"`
	JoinedAt    time.Time `db:"joined_at"`
	TotalPoints int       `db:"total_points"`
}

// CreateQuest inserts the quest, its daily tasks and the creator's participant
// row in one transaction. Quest and task IDs are filled in on the passed model.
func (r *Repository) CreateQuest(ctx context.Context, quest *model.Quest, tasks []model.DailyTask) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		quest.ID = uuid.New()
		quest.CreatedAt = time.Now().UTC()

		query, args, err := squirrel.
			Insert("quests").
			SetMap(map[string]interface{}{
				"id":                    quest.ID,
				"name":                  quest.Name,
				"description":           quest.Description,
				"start_date":            quest.StartDate,
				"end_date":              quest.EndDate,
				"creator_id":            quest.CreatorID,
				"share_code":            quest.ShareCode,
				"share_code_expires_at": quest.ShareCodeExpiresAt,
				"created_at":            quest.CreatedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quest insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert quest: %w", err)
		}

		for i := range tasks {
			tasks[i].ID = uuid.New()
			tasks[i].QuestID = quest.ID
			tasks[i].CreatedAt = quest.CreatedAt

			taskQuery, taskArgs, err := squirrel.
				Insert("daily_tasks").
				SetMap(map[string]interface{}{
					"id":          tasks[i].ID,
					"quest_id":    tasks[i].QuestID,
					"title":       tasks[i].Title,
					"description": tasks[i].Description,
					"points":      tasks[i].Points,
					"created_at":  tasks[i].CreatedAt,
				}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build daily task insert query: %w", err)
			}

			_, err = tx.ExecContext(ctx, taskQuery, taskArgs...)
			if err != nil {
				return fmt.Errorf("failed to insert daily task: %w", err)
			}
		}

		participantQuery, participantArgs, err := squirrel.
			Insert("quest_participants").
			SetMap(map[string]interface{}{
				"quest_id":     quest.ID,
				"user_id":      quest.CreatorID,
				"joined_at":    quest.CreatedAt,
				"total_points": 0,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build participant insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, participantQuery, participantArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert creator participant: %w", err)
		}

		quest.DailyTasks = tasks
		return nil
	})
}

func (r *Repository) GetQuestByID(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	var quest Quest

	query, args, err := squirrel.
		Select("id", "name", "description", "start_date", "end_date",
			"creator_id", "share_code", "share_code_expires_at", "created_at").
		From("quests").
		Where(squirrel.Eq{"id": questID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &quest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	tasks, err := r.getDailyTasks(ctx, quest.ID)
	if err != nil {
		return nil, err
	}

	return questToModel(&quest, tasks), nil
}

func (r *Repository) GetQuestByShareCode(ctx context.Context, shareCode string) (*model.Quest, error) {
	var quest Quest

	query, args, err := squirrel.
		Select("id", "name", "description", "start_date", "end_date",
			"creator_id", "share_code", "share_code_expires_at", "created_at").
		From("quests").
		Where(squirrel.Eq{"share_code": shareCode}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &quest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return questToModel(&quest, nil), nil
}

func (r *Repository) GetQuestsByUser(ctx context.Context, userID uuid.UUID) ([]*model.Quest, error) {
	var quests []Quest

	query, args, err := squirrel.
		Select("q.id", "q.name", "q.description", "q.start_date", "q.end_date",
			"q.creator_id", "q.share_code", "q.share_code_expires_at", "q.created_at").
		From("quests q").
		Join("quest_participants p ON p.quest_id = q.id").
		Where(squirrel.Eq{"p.user_id": userID}).
		OrderBy("q.created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &quests, query, args...)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Quest, 0, len(quests))
	for i := range quests {
		tasks, err := r.getDailyTasks(ctx, quests[i].ID)
		if err != nil {
			return nil, err
		}
		result = append(result, questToModel(&quests[i], tasks))
	}

	return result, nil
}

func (r *Repository) GetDailyTask(ctx context.Context, taskID uuid.UUID) (*model.DailyTask, error) {
	var task DailyTask

	query, args, err := squirrel.
		Select("id", "quest_id", "title", "description", "points", "created_at").
		From("daily_tasks").
		Where(squirrel.Eq{"id": taskID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &task, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return taskToModel(&task), nil
}

func (r *Repository) GetParticipant(ctx context.Context, questID, userID uuid.UUID) (*model.Participant, error) {
	var p Participant

	query, args, err := squirrel.
		Select("quest_id", "user_id", "joined_at", "total_points").
		From("quest_participants").
		Where(squirrel.Eq{"quest_id": questID, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &p, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return participantToModel(&p), nil
}

func (r *Repository) AddParticipant(ctx context.Context, questID, userID uuid.UUID) (*model.Participant, error) {
	now := time.Now().UTC()

	query, args, err := squirrel.
		Insert("quest_participants").
		SetMap(map[string]interface{}{
			"quest_id":     questID,
			"user_id":      userID,
			"joined_at":    now,
			"total_points": 0,
		}).
		Suffix("ON CONFLICT (quest_id, user_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrParticipantExists
	}

	return &model.Participant{
		QuestID:     questID,
		UserID:      userID,
		JoinedAt:    now,
		TotalPoints: 0,
	}, nil
}

func (r *Repository) ListParticipants(ctx context.Context, questID uuid.UUID) ([]*model.Participant, error) {
	var participants []Participant

	query, args, err := squirrel.
		Select("quest_id", "user_id", "joined_at", "total_points").
		From("quest_participants").
		Where(squirrel.Eq{"quest_id": questID}).
		OrderBy("total_points DESC", "joined_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &participants, query, args...)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Participant, 0, len(participants))
	for i := range participants {
		result = append(result, participantToModel(&participants[i]))
	}

	return result, nil
}

func (r *Repository) getDailyTasks(ctx context.Context, questID uuid.UUID) ([]model.DailyTask, error) {
	var tasks []DailyTask

	query, args, err := squirrel.
		Select("id", "quest_id", "title", "description", "points", "created_at").
		From("daily_tasks").
		Where(squirrel.Eq{"quest_id": questID}).
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &tasks, query, args...)
	if err != nil {
		return nil, err
	}

	result := make([]model.DailyTask, 0, len(tasks))
	for i := range tasks {
		result = append(result, *taskToModel(&tasks[i]))
	}

	return result, nil
}

func questToModel(q *Quest, tasks []model.DailyTask) *model.Quest {
	return &model.Quest{
		ID:                 q.ID,
		Name:               q.Name,
		Description:        q.Description,
		StartDate:          q.StartDate,
		EndDate:            q.EndDate,
		CreatorID:          q.CreatorID,
		ShareCode:          q.ShareCode,
		ShareCodeExpiresAt: q.ShareCodeExpiresAt,
		CreatedAt:          q.CreatedAt,
		DailyTasks:         tasks,
	}
}

func taskToModel(t *DailyTask) *model.DailyTask {
	return &model.DailyTask{
		ID:          t.ID,
		QuestID:     t.QuestID,
		Title:       t.Title,
		Description: t.Description,
		Points:      t.Points,
		CreatedAt:   t.CreatedAt,
	}
}

func participantToModel(p *Participant) *model.Participant {
	return &model.Participant{
		QuestID:     p.QuestID,
		UserID:      p.UserID,
		JoinedAt:    p.JoinedAt,
		TotalPoints: p.TotalPoints,
	}
}
