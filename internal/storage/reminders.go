package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// FindExpiring возвращает активных пользователей, у которых период заканчивается
// в [from, to) и напоминание для этого конца периода ещё не отправлено.
func (s *Storage) FindExpiring(ctx context.Context, from, to time.Time) ([]models.ExpiringUser, error) {
	const op = "storage.FindExpiring"

	rows, err := s.DB.QueryContext(ctx, `SELECT id, email, name, tier, current_period_end
			  FROM users
			  WHERE subscription_status = 'active'
			    AND current_period_end >= $1
			    AND current_period_end < $2
			    AND expiry_reminder_sent_for IS DISTINCT FROM current_period_end
			  ORDER BY current_period_end`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ExpiringUser
	for rows.Next() {
		var u models.ExpiringUser
		if err := rows.Scan(&u.UserID, &u.Email, &u.Name, &u.Tier, &u.CurrentPeriodEnd); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkExpiryReminded запоминает, что напоминание для periodEnd отправлено.
func (s *Storage) MarkExpiryReminded(ctx context.Context, userID string, periodEnd time.Time) error {
	const op = "storage.MarkExpiryReminded"

	_, err := s.DB.ExecContext(ctx, `UPDATE users
			  SET expiry_reminder_sent_for = $1
			  WHERE id = $2`, periodEnd, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
