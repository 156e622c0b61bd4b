package service

// Submission is the result of storing one feedback record.
type Submission struct {
	ID      int64
	BoothID string
}

// Member is a resolved team membership.
type Member struct {
	Email    string
	Name     string
	BoothID  string
	TeamName string
}

// FeedbackItem is one record as shown on the dashboard. Score is the
// record's praise ratio.
type FeedbackItem struct {
	ID               int64
	VisitorAttribute string
	RawText          string
	SummaryText      string
	IsProcessed      bool
	Score            float64
}

// Aggregation is the dashboard data for one booth.
type Aggregation struct {
	TeamName        string
	BoothID         string
	AverageScore    *float64
	TotalCount      int
	TotalTeamsCount int
	TeamMembers     []Member
	Feedbacks       []FeedbackItem
}

// TranscribeInput is an encoded recording to transcribe.
type TranscribeInput struct {
	AudioData string
	MimeType  string
	BoothID   string
}

// Transcription is the recognized text and its summary.
type Transcription struct {
	Text    string
	Summary string
}
