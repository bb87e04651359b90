// Package analysis строит разбор прогресса: слабые темы, рекомендованные
// задачи, четырёхнедельный план и выводы.
//
// Analyzer - точка подключения внешнего сервиса анализа. Heuristic -
// детерминированная реализация на правилах.
package analysis

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/progress"
)

// Пороги точности по теме, в процентах.
const (
	weakThreshold      = 80.0
	recommendThreshold = 70.0
	strongThreshold    = 90.0
)

const (
	maxWeakTopics   = 5
	maxRecommended  = 4
	planWeeks       = 4
	problemsPerWeek = 3
	activeWindow    = 7 * 24 * time.Hour
	activeMinimum   = 3
)

// Input - данные для анализа одного пользователя.
type Input struct {
	Problems    []models.Problem
	Submissions []models.Submission
}

// Analyzer строит анализ прогресса.
type Analyzer interface {
	Analyze(ctx context.Context, in Input) (models.Analysis, error)
}

// Heuristic - анализатор на правилах.
type Heuristic struct {
	now func() time.Time
}

// NewHeuristic создаёт Heuristic.
func NewHeuristic() *Heuristic {
	return &Heuristic{now: time.Now}
}

// Analyze реализует Analyzer.
func (h *Heuristic) Analyze(ctx context.Context, in Input) (models.Analysis, error) {
	const op = "analysis.Analyze"
	if err := ctx.Err(); err != nil {
		return models.Analysis{}, fmt.Errorf("%s: %w", op, err)
	}

	summary := progress.Summarize(in.Problems, in.Submissions)
	solved := solvedSet(in.Submissions)
	weak := weakTopics(summary.TopicAccuracy)

	return models.Analysis{
		WeakTopics:          weak,
		RecommendedProblems: recommend(in.Problems, solved, weak),
		StudyPlan:           studyPlan(in.Problems, solved, weak, summary.TopicAccuracy),
		OverallProgress:     progress.Percent(summary.SolvedProblems, summary.TotalProblems),
		Insights:            h.insights(summary, weak, in.Submissions),
	}, nil
}

func solvedSet(subs []models.Submission) map[string]bool {
	out := map[string]bool{}
	for _, s := range subs {
		if s.Correct {
			out[s.ProblemID] = true
		}
	}
	return out
}

func weakTopics(acc []models.TopicAccuracy) []models.WeakTopic {
	out := make([]models.WeakTopic, 0, len(acc))
	for _, a := range acc {
		if a.Accuracy >= weakThreshold {
			continue
		}
		out = append(out, models.WeakTopic{
			Topic:           a.Topic,
			Accuracy:        a.Accuracy,
			TotalAttempts:   a.Total,
			CorrectAttempts: a.Correct,
			Recommended:     a.Accuracy < recommendThreshold,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy < out[j].Accuracy
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > maxWeakTopics {
		out = out[:maxWeakTopics]
	}
	return out
}

var difficultyOrder = map[models.Difficulty]int{
	models.DifficultyEasy:   0,
	models.DifficultyMedium: 1,
	models.DifficultyHard:   2,
}

// unsolvedFor возвращает нерешённые задачи темы от простых к сложным.
func unsolvedFor(problems []models.Problem, solved map[string]bool, topic string) []models.Problem {
	var out []models.Problem
	for _, p := range problems {
		if !solved[p.ID] && (topic == "" || p.HasTopic(topic)) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return difficultyOrder[out[i].Difficulty] < difficultyOrder[out[j].Difficulty]
	})
	return out
}

func recommend(problems []models.Problem, solved map[string]bool, weak []models.WeakTopic) []models.RecommendedProblem {
	out := []models.RecommendedProblem{}
	seen := map[string]bool{}
	add := func(p models.Problem, reason string) bool {
		if seen[p.ID] {
			return len(out) < maxRecommended
		}
		seen[p.ID] = true
		out = append(out, models.RecommendedProblem{
			ProblemID:  p.ID,
			Title:      p.Title,
			Difficulty: p.Difficulty,
			Reason:     reason,
		})
		return len(out) < maxRecommended
	}

	for _, w := range weak {
		for _, p := range unsolvedFor(problems, solved, w.Topic) {
			reason := "Strengthen your " + w.Topic + " fundamentals"
			if p.Difficulty == models.DifficultyHard {
				reason = "Challenge yourself with " + w.Topic
			}
			if !add(p, reason) {
				return out
			}
		}
	}
	beginner := len(weak) == 0 && len(solved) == 0
	for _, p := range unsolvedFor(problems, solved, "") {
		reason := "Keep building momentum with new problems"
		if beginner {
			if p.Difficulty != models.DifficultyEasy {
				continue
			}
			reason = "Start with the fundamentals"
		}
		if !add(p, reason) {
			return out
		}
	}
	return out
}

func studyPlan(problems []models.Problem, solved map[string]bool, weak []models.WeakTopic, acc []models.TopicAccuracy) []models.StudyWeek {
	var focus []string
	for _, w := range weak {
		focus = append(focus, w.Topic)
	}
	// Недостающие недели заполняются наименее отработанными темами.
	practiced := map[string]int{}
	for _, a := range acc {
		practiced[a.Topic] = a.Total
	}
	var rest []string
	for _, t := range topicsOf(problems) {
		if !slices.Contains(focus, t) {
			rest = append(rest, t)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return practiced[rest[i]] < practiced[rest[j]] })
	focus = append(focus, rest...)

	plan := make([]models.StudyWeek, 0, planWeeks)
	used := map[string]bool{}
	for week := 1; week < planWeeks && week-1 < len(focus); week++ {
		topic := focus[week-1]
		var ids []string
		for _, p := range unsolvedFor(problems, solved, topic) {
			if used[p.ID] {
				continue
			}
			used[p.ID] = true
			ids = append(ids, p.ID)
			if len(ids) == problemsPerWeek {
				break
			}
		}
		plan = append(plan, models.StudyWeek{
			WeekNumber:     week,
			Topics:         []string{topic},
			EstimatedHours: 6 + 2*len(ids),
			ProblemIDs:     ids,
		})
	}

	var review []string
	for _, p := range problems {
		if !used[p.ID] {
			review = append(review, p.ID)
			if len(review) == problemsPerWeek {
				break
			}
		}
	}
	plan = append(plan, models.StudyWeek{
		WeekNumber:     len(plan) + 1,
		Topics:         []string{"Review and Practice", "Mixed Problems"},
		EstimatedHours: 8,
		ProblemIDs:     review,
	})
	return plan
}

func (h *Heuristic) insights(summary models.Progress, weak []models.WeakTopic, subs []models.Submission) []string {
	if len(subs) == 0 {
		return []string{"Solve a few problems to unlock personalised insights."}
	}

	var out []string
	for _, a := range summary.TopicAccuracy {
		if a.Accuracy >= strongThreshold {
			out = append(out, fmt.Sprintf("You have a strong foundation in %s (%.1f%% accuracy)", a.Topic, a.Accuracy))
		}
	}
	if len(weak) > 0 {
		out = append(out, fmt.Sprintf("Focus on %s - your accuracy there is %.1f%%", weak[0].Topic, weak[0].Accuracy))
	}

	since := h.now().Add(-activeWindow)
	recent := 0
	for _, s := range subs {
		if s.SubmittedAt.After(since) {
			recent++
		}
	}
	if recent >= activeMinimum {
		out = append(out, "You are solving problems consistently - keep up the good work!")
	} else {
		out = append(out, "Try to practise a little every day to build momentum.")
	}
	return out
}

func topicsOf(problems []models.Problem) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range problems {
		for _, t := range p.Topics {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}
