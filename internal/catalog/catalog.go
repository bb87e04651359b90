// Package catalog хранит каталог задач в памяти и отдаёт отфильтрованные выборки.
//
// Каталог загружается целиком из Source и заменяется атомарно. При ошибке
// загрузки предыдущий набор сохраняется, а ошибка доступна через Err до
// следующей успешной загрузки.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Ошибки каталога.
var (
	ErrNotFound    = errors.New("problem not found")
	ErrInvalidData = errors.New("invalid catalog data")
)

// Store - потокобезопасный каталог задач.
type Store struct {
	src Source
	log *slog.Logger

	mu       sync.RWMutex
	problems []models.Problem
	byID     map[string]int
	loadErr  error
}

// New создаёт пустой каталог; данные появляются после Load.
func New(src Source, log *slog.Logger) *Store {
	return &Store{
		src:  src,
		log:  log,
		byID: map[string]int{},
	}
}

// Load заменяет каталог содержимым источника.
func (s *Store) Load(ctx context.Context) error {
	const op = "catalog.Load"
	log := s.log.With(slog.String("op", op))

	problems, err := s.src.Problems(ctx)
	if err != nil {
		s.mu.Lock()
		s.loadErr = err
		s.mu.Unlock()
		log.Error("failed to load catalog, keeping previous", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	byID := make(map[string]int, len(problems))
	for i, p := range problems {
		byID[p.ID] = i
	}

	s.mu.Lock()
	s.problems = problems
	s.byID = byID
	s.loadErr = nil
	s.mu.Unlock()

	log.Info("catalog loaded", slog.Int("problems", len(problems)))
	return nil
}

// Err возвращает ошибку последней загрузки или nil.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Len возвращает размер каталога.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.problems)
}

// All возвращает весь каталог в исходном порядке.
func (s *Store) All() []models.Problem {
	return s.Filter(DefaultFilter())
}

// Filter возвращает задачи, проходящие f, в исходном порядке.
func (s *Store) Filter(f Filter) []models.Problem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Problem, 0, len(s.problems))
	for _, p := range s.problems {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Get возвращает задачу по идентификатору.
func (s *Store) Get(id string) (models.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return models.Problem{}, ErrNotFound
	}
	return s.problems[i], nil
}

// Topics возвращает отсортированный список различных тем.
func (s *Store) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := map[string]struct{}{}
	for _, p := range s.problems {
		for _, t := range p.Topics {
			set[t] = struct{}{}
		}
	}
	topics := make([]string, 0, len(set))
	for t := range set {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}
