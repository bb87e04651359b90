package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// AddSubmission сохраняет отметку о решении задачи.
func (s *Storage) AddSubmission(ctx context.Context, sub models.Submission) error {
	const op = "storage.AddSubmission"

	_, err := s.DB.ExecContext(ctx, `INSERT INTO submissions (user_id, problem_id, correct, submitted_at)
			  VALUES ($1, $2, $3, $4)`,
		sub.UserID, sub.ProblemID, sub.Correct, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubmissions возвращает все отправки пользователя в порядке времени.
func (s *Storage) ListSubmissions(ctx context.Context, userID string) ([]models.Submission, error) {
	const op = "storage.ListSubmissions"

	rows, err := s.DB.QueryContext(ctx, `SELECT user_id, problem_id, correct, submitted_at
			  FROM submissions
			  WHERE user_id = $1
			  ORDER BY submitted_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Submission
	for rows.Next() {
		var sub models.Submission
		if err := rows.Scan(&sub.UserID, &sub.ProblemID, &sub.Correct, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
