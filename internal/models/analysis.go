package models

// WeakTopic - тема с недостаточной точностью.
type WeakTopic struct {
	Topic           string  `json:"topic"`
	Accuracy        float64 `json:"accuracy"`
	TotalAttempts   int     `json:"totalAttempts"`
	CorrectAttempts int     `json:"correctAttempts"`
	Recommended     bool    `json:"recommended"`
}

// RecommendedProblem - задача, предложенная для тренировки.
type RecommendedProblem struct {
	ProblemID  string     `json:"problemId"`
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
	Reason     string     `json:"reason"`
}

// StudyWeek - неделя учебного плана.
type StudyWeek struct {
	WeekNumber     int      `json:"weekNumber"`
	Topics         []string `json:"topics"`
	EstimatedHours int      `json:"estimatedHours"`
	ProblemIDs     []string `json:"problemIds"`
}

// Analysis - результат анализа прогресса пользователя.
type Analysis struct {
	WeakTopics          []WeakTopic          `json:"weakTopics"`
	RecommendedProblems []RecommendedProblem `json:"recommendedProblems"`
	StudyPlan           []StudyWeek          `json:"studyPlan"`
	OverallProgress     float64              `json:"overallProgress"`
	Insights            []string             `json:"insights"`
}
