package progress

import (
	"math"
	"sort"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// RecentLimit - длина ленты последних действий.
const RecentLimit = 5

// Summarize собирает снимок прогресса из каталога и отправок пользователя.
//
// Решённой считается задача хотя бы с одной верной отправкой. Точность
// считается по всем отправкам; по темам каждая отправка учитывается во всех
// темах задачи. Отправки по задачам, которых уже нет в каталоге, попадают
// в общую точность и ленту, но не в темы.
func Summarize(problems []models.Problem, subs []models.Submission) models.Progress {
	byID := make(map[string]models.Problem, len(problems))
	for _, p := range problems {
		byID[p.ID] = p
	}

	solved := map[string]struct{}{}
	type counter struct{ correct, total int }
	topics := map[string]*counter{}
	correct := 0

	for _, s := range subs {
		if s.Correct {
			correct++
			if _, ok := byID[s.ProblemID]; ok {
				solved[s.ProblemID] = struct{}{}
			}
		}
		p, ok := byID[s.ProblemID]
		if !ok {
			continue
		}
		for _, topic := range p.Topics {
			c := topics[topic]
			if c == nil {
				c = &counter{}
				topics[topic] = c
			}
			c.total++
			if s.Correct {
				c.correct++
			}
		}
	}

	topicAccuracy := make([]models.TopicAccuracy, 0, len(topics))
	for topic, c := range topics {
		topicAccuracy = append(topicAccuracy, models.TopicAccuracy{
			Topic:    topic,
			Correct:  c.correct,
			Total:    c.total,
			Accuracy: Percent(c.correct, c.total),
		})
	}
	sort.Slice(topicAccuracy, func(i, j int) bool {
		return topicAccuracy[i].Topic < topicAccuracy[j].Topic
	})

	return models.Progress{
		TotalProblems:  len(problems),
		SolvedProblems: len(solved),
		Accuracy:       Percent(correct, len(subs)),
		TopicAccuracy:  topicAccuracy,
		RecentActivity: recent(byID, subs),
	}
}

func recent(byID map[string]models.Problem, subs []models.Submission) []models.Activity {
	sorted := make([]models.Submission, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SubmittedAt.After(sorted[j].SubmittedAt)
	})
	if len(sorted) > RecentLimit {
		sorted = sorted[:RecentLimit]
	}

	out := make([]models.Activity, 0, len(sorted))
	for _, s := range sorted {
		title := s.ProblemID
		if p, ok := byID[s.ProblemID]; ok {
			title = p.Title
		}
		out = append(out, models.Activity{
			ProblemID:    s.ProblemID,
			ProblemTitle: title,
			Solved:       s.Correct,
			Date:         s.SubmittedAt,
		})
	}
	return out
}

// Percent возвращает part/total в процентах с одним знаком после запятой; 0 при total == 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}
