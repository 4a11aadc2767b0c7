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

type CheckIn struct {
	ID          uuid.UUID  `db:"id"`
	UserID      uuid.UUID  `db:"user_id"`
	QuestID     uuid.UUID  `db:"quest_id"`
	DailyTaskID uuid.UUID  `db:"daily_task_id"`
	CheckInDate time.Time  `db:"check_in_date"`
	Count       int        `db:"count"`
	Notes       *string    `db:"notes"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

// IncrementCheckIn bumps the (user, task, date) cell by one and credits the
// participant's total_points, all in one transaction. The cell row is locked
// with FOR UPDATE so two concurrent increments never read the same prior count.
func (r *Repository) IncrementCheckIn(ctx context.Context, questID, userID, taskID uuid.UUID,
	date time.Time, points int, notes *string) (*model.CheckIn, error) {

	var result *model.CheckIn

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		cell, err := getCheckInForUpdate(ctx, tx, userID, taskID, date)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		now := time.Now().UTC()

		if cell == nil {
			cell = &CheckIn{
				ID:          uuid.New(),
				UserID:      userID,
				QuestID:     questID,
				DailyTaskID: taskID,
				CheckInDate: date,
				Count:       1,
				Notes:       notes,
				CreatedAt:   now,
			}

			query, args, err := squirrel.
				Insert("check_ins").
				SetMap(map[string]interface{}{
					"id":            cell.ID,
					"user_id":       cell.UserID,
					"quest_id":      cell.QuestID,
					"daily_task_id": cell.DailyTaskID,
					"check_in_date": cell.CheckInDate,
					"count":         cell.Count,
					"notes":         cell.Notes,
					"created_at":    cell.CreatedAt,
				}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build check-in insert query: %w", err)
			}

			_, err = tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to insert check-in: %w", err)
			}
		} else {
			cell.Count++
			cell.UpdatedAt = &now
			if notes != nil {
				cell.Notes = notes
			}

			query, args, err := squirrel.
				Update("check_ins").
				Set("count", cell.Count).
				Set("notes", cell.Notes).
				Set("updated_at", now).
				Where(squirrel.Eq{"id": cell.ID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build check-in update query: %w", err)
			}

			_, err = tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to update check-in: %w", err)
			}
		}

		if err := adjustParticipantPoints(ctx, tx, questID, userID, points); err != nil {
			return err
		}

		result = checkInToModel(cell)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DecrementCheckIn reverses one unit on the cell. A count-1 cell is deleted
// and reported as cleared; a missing cell is ErrNotFound. total_points is
// floored at zero.
func (r *Repository) DecrementCheckIn(ctx context.Context, questID, userID, taskID uuid.UUID,
	date time.Time, points int) (*model.CheckIn, bool, error) {

	var (
		result  *model.CheckIn
		cleared bool
	)

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		cell, err := getCheckInForUpdate(ctx, tx, userID, taskID, date)
		if err != nil {
			return err
		}

		if cell.Count <= 1 {
			query, args, err := squirrel.
				Delete("check_ins").
				Where(squirrel.Eq{"id": cell.ID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build check-in delete query: %w", err)
			}

			_, err = tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to delete check-in: %w", err)
			}

			cleared = true
			result = nil
		} else {
			now := time.Now().UTC()
			cell.Count--
			cell.UpdatedAt = &now

			query, args, err := squirrel.
				Update("check_ins").
				Set("count", cell.Count).
				Set("updated_at", now).
				Where(squirrel.Eq{"id": cell.ID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build check-in update query: %w", err)
			}

			_, err = tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to update check-in: %w", err)
			}

			result = checkInToModel(cell)
		}

		return adjustParticipantPoints(ctx, tx, questID, userID, -points)
	})
	if err != nil {
		return nil, false, err
	}

	return result, cleared, nil
}

func (r *Repository) ListCheckIns(ctx context.Context, questID, userID uuid.UUID,
	from, to *time.Time) ([]model.CheckIn, error) {

	builder := squirrel.
		Select("id", "user_id", "quest_id", "daily_task_id", "check_in_date",
			"count", "notes", "created_at", "updated_at").
		From("check_ins").
		Where(squirrel.Eq{"quest_id": questID, "user_id": userID}).
		OrderBy("check_in_date ASC").
		PlaceholderFormat(squirrel.Dollar)

	if from != nil {
		builder = builder.Where(squirrel.GtOrEq{"check_in_date": *from})
	}
	if to != nil {
		builder = builder.Where(squirrel.Lt{"check_in_date": *to})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []CheckIn
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	result := make([]model.CheckIn, 0, len(rows))
	for i := range rows {
		result = append(result, *checkInToModel(&rows[i]))
	}

	return result, nil
}

func getCheckInForUpdate(ctx context.Context, tx *sqlx.Tx, userID, taskID uuid.UUID,
	date time.Time) (*CheckIn, error) {

	query, args, err := squirrel.
		Select("id", "user_id", "quest_id", "daily_task_id", "check_in_date",
			"count", "notes", "created_at", "updated_at").
		From("check_ins").
		Where(squirrel.Eq{
			"user_id":       userID,
			"daily_task_id": taskID,
			"check_in_date": date,
		}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var cell CheckIn
	err = tx.GetContext(ctx, &cell, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &cell, nil
}

func adjustParticipantPoints(ctx context.Context, tx *sqlx.Tx, questID, userID uuid.UUID, delta int) error {
	query, args, err := squirrel.
		Update("quest_participants").
		Set("total_points", squirrel.Expr("GREATEST(total_points + ?, 0)", delta)).
		Where(squirrel.Eq{"quest_id": questID, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build participant points query: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update participant points: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func checkInToModel(c *CheckIn) *model.CheckIn {
	if c == nil {
		return nil
	}
	return &model.CheckIn{
		ID:          c.ID,
		UserID:      c.UserID,
		QuestID:     c.QuestID,
		DailyTaskID: c.DailyTaskID,
		CheckInDate: c.CheckInDate,
		Count:       c.Count,
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
