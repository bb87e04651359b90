package models

import "time"

// Submission - отметка пользователя о решении задачи.
type Submission struct {
	UserID      string    `json:"userId"`
	ProblemID   string    `json:"problemId"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// TopicAccuracy - точность по одной теме.
type TopicAccuracy struct {
	Topic    string  `json:"topic"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// Activity - элемент ленты последних действий.
type Activity struct {
	ProblemID    string    `json:"problemId"`
	ProblemTitle string    `json:"problemTitle"`
	Solved       bool      `json:"solved"`
	Date         time.Time `json:"date"`
}

// Progress - снимок прогресса для дашборда.
type Progress struct {
	TotalProblems  int             `json:"totalProblems"`
	SolvedProblems int             `json:"solvedProblems"`
	Accuracy       float64         `json:"accuracy"`
	TopicAccuracy  []TopicAccuracy `json:"topicAccuracy"`
	RecentActivity []Activity      `json:"recentActivity"`
}
