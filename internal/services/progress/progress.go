// Package progress принимает отметки о решении задач и строит снимок прогресса.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/examprep/internal/catalog"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// ErrProblemNotFound возвращается при отправке по несуществующей задаче.
var ErrProblemNotFound = errors.New("problem not found")

// Сообщения ответа на отправку.
const (
	MessageCorrect   = "Correct! Great work!"
	MessageIncorrect = "Not quite right. Try again or check the solution."
)

// SubmissionRepository хранит отправки.
type SubmissionRepository interface {
	AddSubmission(ctx context.Context, sub models.Submission) error
	ListSubmissions(ctx context.Context, userID string) ([]models.Submission, error)
}

// Catalog - часть каталога, нужная сервису.
type Catalog interface {
	Get(id string) (models.Problem, error)
	All() []models.Problem
}

// SubmitResult - ответ на отправку.
type SubmitResult struct {
	Correct  bool   `json:"correct"`
	Message  string `json:"message"`
	Solution string `json:"solution,omitempty"`
}

// Service реализует отправки и дашборд прогресса.
type Service struct {
	repo    SubmissionRepository
	catalog Catalog
	log     *slog.Logger
	now     func() time.Time
}

// NewService создаёт Service.
func NewService(repo SubmissionRepository, catalog Catalog, log *slog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, log: log, now: time.Now}
}

// Submit сохраняет отметку пользователя о решении. Верность задаётся самим
// пользователем; при неверной отметке в ответ добавляется решение.
func (s *Service) Submit(ctx context.Context, userID, problemID string, solved bool) (SubmitResult, error) {
	const op = "progress.Submit"

	p, err := s.catalog.Get(problemID)
	if errors.Is(err, catalog.ErrNotFound) {
		return SubmitResult{}, ErrProblemNotFound
	}
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%s: %w", op, err)
	}

	sub := models.Submission{
		UserID:      userID,
		ProblemID:   problemID,
		Correct:     solved,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.repo.AddSubmission(ctx, sub); err != nil {
		return SubmitResult{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("submission stored",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("problem_id", problemID),
		slog.Bool("correct", solved),
	)

	if solved {
		return SubmitResult{Correct: true, Message: MessageCorrect}, nil
	}
	return SubmitResult{Correct: false, Message: MessageIncorrect, Solution: p.Solution}, nil
}

// Progress строит снимок прогресса пользователя.
func (s *Service) Progress(ctx context.Context, userID string) (models.Progress, error) {
	subs, err := s.Submissions(ctx, userID)
	if err != nil {
		return models.Progress{}, err
	}
	return Summarize(s.catalog.All(), subs), nil
}

// Submissions возвращает отправки пользователя.
func (s *Service) Submissions(ctx context.Context, userID string) ([]models.Submission, error) {
	const op = "progress.Submissions"
	subs, err := s.repo.ListSubmissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}
