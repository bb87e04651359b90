package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/magabrotheeeer/examprep/internal/models"
)

//go:embed data/problems.json
var defaultProblems []byte

//go:embed data/schema.json
var problemsSchema []byte

// Source отдаёт полный набор задач.
type Source interface {
	Problems(ctx context.Context) ([]models.Problem, error)
}

// FileSource читает задачи из JSON-файла. С пустым путём используется
// встроенный набор.
type FileSource struct {
	path string
}

// NewFileSource создаёт FileSource.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Problems читает, проверяет по схеме и декодирует набор задач.
func (s *FileSource) Problems(ctx context.Context) ([]models.Problem, error) {
	const op = "catalog.FileSource.Problems"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	raw := defaultProblems
	if s.path != "" {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		raw = b
	}

	problems, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return problems, nil
}

// Decode проверяет документ по схеме каталога, декодирует его и отбрасывает
// наборы с повторяющимися идентификаторами.
func Decode(raw []byte) ([]models.Problem, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(problemsSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidData, strings.Join(errs, "; "))
	}

	var problems []models.Problem
	if err := json.Unmarshal(raw, &problems); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	seen := make(map[string]struct{}, len(problems))
	for _, p := range problems {
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidData, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return problems, nil
}
