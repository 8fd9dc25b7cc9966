package dto

// UserStatsResponse aggregates a user's practice progress for the dashboard.
type UserStatsResponse struct {
	TotalSolved       int                  `json:"totalSolved"`
	TotalProblems     int                  `json:"totalProblems"`
	EasySolved        int                  `json:"easySolved"`
	MediumSolved      int                  `json:"mediumSolved"`
	HardSolved        int                  `json:"hardSolved"`
	SolvedByTopic     []TopicProgress      `json:"solvedByTopic"`
	StreakDays        int                  `json:"streakDays"`
	WeeklySolved      int                  `json:"weeklySolved"`
	WeeklyGoal        int                  `json:"weeklyGoal"`
	TotalSubmissions  int                  `json:"totalSubmissions"`
	RecentSubmissions []SubmissionResponse `json:"recentSubmissions"`
}

// TopicProgress counts solved problems within a topic.
type TopicProgress struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// ProgressUpdateRequest marks a problem as solved.
type ProgressUpdateRequest struct {
	QuestionID uint `json:"questionId" validate:"required,gt=0"`
}

// SolvedProblemsResponse lists the ids in a user's solved set.
type SolvedProblemsResponse struct {
	SolvedProblems []uint `json:"solvedProblems"`
}
