// Package models содержит доменные структуры: задачи каталога, пользователя
// с состоянием доступа, отправки решений и агрегаты прогресса.
package models

import "strings"

// Subject - предмет задачи.
type Subject string

// Предметы каталога. IntroAE - введение в аэрокосмическую технику.
const (
	SubjectMath    Subject = "math"
	SubjectPhysics Subject = "physics"
	SubjectIntroAE Subject = "introAE"
)

// Difficulty - сложность задачи.
type Difficulty string

// Уровни сложности.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Problem - неизменяемая запись каталога.
type Problem struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Subject    Subject    `json:"subject"`
	Difficulty Difficulty `json:"difficulty"`
	Topics     []string   `json:"topics"`
	Statement  string     `json:"statement"`
	Solution   string     `json:"solution"`
	Hint       string     `json:"hint"`
}

// HasTopic сообщает, отмечена ли задача темой topic.
func (p Problem) HasTopic(topic string) bool {
	for _, t := range p.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Matches сообщает, входит ли query без учёта регистра в заголовок или условие.
// Пустой query подходит всегда.
func (p Problem) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Statement), q)
}

// ProblemSummary - задача без решения и подсказки, для списков.
type ProblemSummary struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Subject    Subject    `json:"subject"`
	Difficulty Difficulty `json:"difficulty"`
	Topics     []string   `json:"topics"`
	Statement  string     `json:"statement"`
}

// Summary отбрасывает решение и подсказку.
func (p Problem) Summary() ProblemSummary {
	return ProblemSummary{
		ID:         p.ID,
		Title:      p.Title,
		Subject:    p.Subject,
		Difficulty: p.Difficulty,
		Topics:     p.Topics,
		Statement:  p.Statement,
	}
}
