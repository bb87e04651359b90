package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/examprep/internal/models"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return &Storage{DB: db}, mock
}

var userRowColumns = []string{"id", "email", "name", "password_hash", "tier", "subscription_status",
	"customer_id", "subscription_id", "current_period_end", "created_at"}

func TestCreateUser(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`INSERT INTO users \(email, name, password_hash\)`).
			WithArgs("a@example.com", "Alice", "hash").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow("u1", "a@example.com", "Alice", "hash", "none", "none", "", "", nil, created))

		u, err := s.CreateUser(context.Background(), models.User{Email: "a@example.com", Name: "Alice", PasswordHash: "hash"})
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
		assert.Equal(t, "none", u.Entitlement.Tier)
		assert.Nil(t, u.Entitlement.CurrentPeriodEnd)
		assert.Equal(t, created, u.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := s.CreateUser(context.Background(), models.User{Email: "a@example.com"})
		assert.ErrorIs(t, err, ErrUserExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error is wrapped", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("boom"))

		_, err := s.CreateUser(context.Background(), models.User{Email: "a@example.com"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.CreateUser")
	})
}

func TestGetUser(t *testing.T) {
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("by id with period end", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE id = \$1`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow("u1", "a@example.com", "Alice", "hash", "enhanced", "active", "cus_1", "cs_1", end, end))

		u, err := s.GetUser(context.Background(), "u1")
		require.NoError(t, err)
		require.NotNil(t, u.Entitlement.CurrentPeriodEnd)
		assert.True(t, end.Equal(*u.Entitlement.CurrentPeriodEnd))
		assert.Equal(t, "cus_1", u.Entitlement.CustomerID)
	})

	t.Run("by email not found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE email = \$1`).
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		_, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestApplyEntitlement(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	upgrade := func(st models.Entitlement) models.Entitlement {
		st.Tier = "enhanced"
		st.SubscriptionStatus = models.StatusActive
		st.CurrentPeriodEnd = &end
		return st
	}
	lockColumns := []string{"tier", "subscription_status", "customer_id", "subscription_id", "current_period_end"}

	t.Run("applies under lock", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO processed_webhook_events`).
			WithArgs("evt_1", "checkout.session.completed").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT tier, subscription_status, .+ FOR UPDATE`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("starter", "active", "", "", start))
		mock.ExpectExec(`UPDATE users`).
			WithArgs("enhanced", "active", "", "", sqlmock.AnyArg(), "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, err := s.ApplyEntitlement(context.Background(), "evt_1", "checkout.session.completed", "u1", upgrade)
		require.NoError(t, err)
		assert.Equal(t, "enhanced", got.Tier)
		assert.Equal(t, end, *got.CurrentPeriodEnd)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redelivered event changes nothing", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO processed_webhook_events`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		called := false
		_, err := s.ApplyEntitlement(context.Background(), "evt_1", "checkout.session.completed", "u1",
			func(st models.Entitlement) models.Entitlement {
				called = true
				return st
			})
		assert.ErrorIs(t, err, ErrEventProcessed)
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user rolls back", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO processed_webhook_events`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(lockColumns))
		mock.ExpectRollback()

		_, err := s.ApplyEntitlement(context.Background(), "evt_2", "checkout.session.completed", "ghost", upgrade)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update failure is wrapped", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO processed_webhook_events`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("none", "none", "", "", nil))
		mock.ExpectExec(`UPDATE users`).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := s.ApplyEntitlement(context.Background(), "evt_3", "checkout.session.completed", "u1", upgrade)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.ApplyEntitlement")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAddTutoringPackage(t *testing.T) {
	validUntil := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	pkg := models.TutoringPackage{UserID: "u1", CheckoutSessionID: "cs_1", Sessions: 5, ValidUntil: validUntil}
	lockColumns := []string{"tier", "subscription_status", "customer_id", "subscription_id", "current_period_end"}
	keep := func(st models.Entitlement) models.Entitlement { return st }

	t.Run("inserts package", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO processed_webhook_events`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("none", "none", "", "", nil))
		mock.ExpectExec(`INSERT INTO tutoring_packages`).
			WithArgs("u1", "cs_1", 5, validUntil).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE users`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := s.AddTutoringPackage(context.Background(), "evt_1", "checkout.session.completed", pkg, keep)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same checkout session twice", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO processed_webhook_events`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(lockColumns).AddRow("none", "none", "", "", nil))
		mock.ExpectExec(`INSERT INTO tutoring_packages`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := s.AddTutoringPackage(context.Background(), "evt_2", "checkout.session.async_payment_succeeded", pkg, keep)
		assert.ErrorIs(t, err, ErrEventProcessed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListTutoringPackages(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM tutoring_packages\s+WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "checkout_session_id", "sessions", "valid_until", "created_at"}).
			AddRow(int64(2), "u1", "cs_2", 5, now.AddDate(0, 6, 0), now))

	got, err := s.ListTutoringPackages(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cs_2", got[0].CheckoutSessionID)
	assert.Equal(t, 5, got[0].Sessions)
}

func TestSubmissions(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("add", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectExec(`INSERT INTO submissions`).
			WithArgs("u1", "3", true, at).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := s.AddSubmission(context.Background(), models.Submission{UserID: "u1", ProblemID: "3", Correct: true, SubmittedAt: at})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM submissions\s+WHERE user_id = \$1`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "problem_id", "correct", "submitted_at"}).
				AddRow("u1", "1", false, at).
				AddRow("u1", "1", true, at.Add(time.Hour)))

		got, err := s.ListSubmissions(context.Background(), "u1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[1].Correct)
	})

	t.Run("list error", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM submissions`).WillReturnError(errors.New("boom"))

		_, err := s.ListSubmissions(context.Background(), "u1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.ListSubmissions")
	})
}

func TestFindExpiring(t *testing.T) {
	s, mock := newMockStorage(t)
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)
	end := from.Add(48 * time.Hour)

	mock.ExpectQuery(`expiry_reminder_sent_for IS DISTINCT FROM current_period_end`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "tier", "current_period_end"}).
			AddRow("u1", "a@example.com", "Alice", "starter", end))
	mock.ExpectExec(`UPDATE users\s+SET expiry_reminder_sent_for = \$1`).
		WithArgs(end, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := s.FindExpiring(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "starter", got[0].Tier)

	require.NoError(t, s.MarkExpiryReminded(context.Background(), got[0].UserID, got[0].CurrentPeriodEnd))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckDatabaseReady(t *testing.T) {
	tests := []struct {
		name    string
		exists  bool
		wantErr bool
	}{
		{name: "ready", exists: true},
		{name: "not migrated", exists: false, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			mock.ExpectQuery(`information_schema.tables`).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			err := s.CheckDatabaseReady(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
