package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// EntitlementMutation вычисляет новое состояние доступа из текущего.
type EntitlementMutation func(models.Entitlement) models.Entitlement

// markEventProcessed записывает событие. Повторная запись того же события
// возвращает ErrEventProcessed; параллельная вставка ждёт коммита первой.
func markEventProcessed(ctx context.Context, tx *sql.Tx, eventID, eventType string) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO processed_webhook_events (event_id, event_type)
			  VALUES ($1, $2)
			  ON CONFLICT (event_id) DO NOTHING`, eventID, eventType)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventProcessed
	}
	return nil
}

func lockEntitlement(ctx context.Context, tx *sql.Tx, userID string) (models.Entitlement, error) {
	var st models.Entitlement
	var periodEnd sql.NullTime
	err := tx.QueryRowContext(ctx, `SELECT tier, subscription_status, customer_id, subscription_id, current_period_end
			  FROM users
			  WHERE id = $1
			  FOR UPDATE`, userID).
		Scan(&st.Tier, &st.SubscriptionStatus, &st.CustomerID, &st.SubscriptionID, &periodEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return st, ErrUserNotFound
	}
	if err != nil {
		return st, err
	}
	if periodEnd.Valid {
		t := periodEnd.Time.UTC()
		st.CurrentPeriodEnd = &t
	}
	return st, nil
}

func saveEntitlement(ctx context.Context, tx *sql.Tx, userID string, st models.Entitlement) error {
	var periodEnd sql.NullTime
	if st.CurrentPeriodEnd != nil {
		periodEnd = sql.NullTime{Time: *st.CurrentPeriodEnd, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `UPDATE users
			  SET tier = $1,
			      subscription_status = $2,
			      customer_id = $3,
			      subscription_id = $4,
			      current_period_end = $5
			  WHERE id = $6`,
		st.Tier, st.SubscriptionStatus, st.CustomerID, st.SubscriptionID, periodEnd, userID)
	return err
}

// ApplyEntitlement атомарно отмечает событие eventID обработанным и применяет
// mutate к состоянию доступа пользователя под блокировкой строки.
// Для уже обработанного события возвращает ErrEventProcessed без изменений.
func (s *Storage) ApplyEntitlement(ctx context.Context, eventID, eventType, userID string, mutate EntitlementMutation) (models.Entitlement, error) {
	const op = "storage.ApplyEntitlement"

	var result models.Entitlement
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := markEventProcessed(ctx, tx, eventID, eventType); err != nil {
			return err
		}
		st, err := lockEntitlement(ctx, tx, userID)
		if err != nil {
			return err
		}
		result = mutate(st)
		return saveEntitlement(ctx, tx, userID, result)
	})
	if errors.Is(err, ErrEventProcessed) || errors.Is(err, ErrUserNotFound) {
		return models.Entitlement{}, err
	}
	if err != nil {
		return models.Entitlement{}, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// AddTutoringPackage атомарно отмечает событие обработанным, сохраняет пакет
// занятий и применяет mutate к состоянию доступа. Пакет уникален по
// идентификатору платёжной сессии.
func (s *Storage) AddTutoringPackage(ctx context.Context, eventID, eventType string, pkg models.TutoringPackage, mutate EntitlementMutation) (models.Entitlement, error) {
	const op = "storage.AddTutoringPackage"

	var result models.Entitlement
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := markEventProcessed(ctx, tx, eventID, eventType); err != nil {
			return err
		}
		st, err := lockEntitlement(ctx, tx, pkg.UserID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO tutoring_packages (user_id, checkout_session_id, sessions, valid_until)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (checkout_session_id) DO NOTHING`,
			pkg.UserID, pkg.CheckoutSessionID, pkg.Sessions, pkg.ValidUntil)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrEventProcessed
		}
		result = mutate(st)
		return saveEntitlement(ctx, tx, pkg.UserID, result)
	})
	if errors.Is(err, ErrEventProcessed) || errors.Is(err, ErrUserNotFound) {
		return models.Entitlement{}, err
	}
	if err != nil {
		return models.Entitlement{}, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListTutoringPackages возвращает пакеты занятий пользователя, новые первыми.
func (s *Storage) ListTutoringPackages(ctx context.Context, userID string) ([]models.TutoringPackage, error) {
	const op = "storage.ListTutoringPackages"

	rows, err := s.DB.QueryContext(ctx, `SELECT id, user_id, checkout_session_id, sessions, valid_until, created_at
			  FROM tutoring_packages
			  WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.TutoringPackage{}
	for rows.Next() {
		var p models.TutoringPackage
		if err := rows.Scan(&p.ID, &p.UserID, &p.CheckoutSessionID, &p.Sessions, &p.ValidUntil, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
