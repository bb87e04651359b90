package catalog

import "github.com/magabrotheeeer/examprep/internal/models"

// All отключает соответствующий предикат фильтра.
const All = "all"

// Filter - состояние фильтра каталога. Четыре предиката объединяются по И.
type Filter struct {
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
	Search     string `json:"search"`
}

// FilterPatch - частичное обновление фильтра; nil-поля не меняются.
type FilterPatch struct {
	Subject    *string
	Difficulty *string
	Topic      *string
	Search     *string
}

// DefaultFilter возвращает фильтр, пропускающий весь каталог.
func DefaultFilter() Filter {
	return Filter{Subject: All, Difficulty: All, Topic: All, Search: ""}
}

// Apply накладывает patch поверх f.
func (f Filter) Apply(patch FilterPatch) Filter {
	if patch.Subject != nil {
		f.Subject = *patch.Subject
	}
	if patch.Difficulty != nil {
		f.Difficulty = *patch.Difficulty
	}
	if patch.Topic != nil {
		f.Topic = *patch.Topic
	}
	if patch.Search != nil {
		f.Search = *patch.Search
	}
	return f
}

// Reset возвращает фильтр в состояние по умолчанию.
func (f *Filter) Reset() {
	*f = DefaultFilter()
}

// Match сообщает, проходит ли задача все четыре предиката.
func (f Filter) Match(p models.Problem) bool {
	return (f.Subject == All || string(p.Subject) == f.Subject) &&
		(f.Difficulty == All || string(p.Difficulty) == f.Difficulty) &&
		(f.Topic == All || p.HasTopic(f.Topic)) &&
		p.Matches(f.Search)
}
