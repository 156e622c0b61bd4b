package models

// FeedbackRecord is one stored visitor feedback.
type FeedbackRecord struct {
	ID               int64
	BoothID          string
	PraiseRatio      int
	AdviceRatio      int
	RawText          string
	VisitorAttribute string
	SummaryText      string
	IsProcessed      bool
}

// Member links a student email to the booth their team presents at.
type Member struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	BoothID  string `yaml:"booth_id"`
	TeamName string `yaml:"team_name"`
}
