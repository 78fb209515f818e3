package model

import "time"

// Usage is the token accounting reported by the candidate generator.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// UserFailure records one user whose feed could not be produced.
type UserFailure struct {
	UserID string `json:"userId"`
	Error  string `json:"error"`
}

// RunSummary is returned by a distribution run.
type RunSummary struct {
	Date           string        `json:"date"`
	UsersProcessed int           `json:"usersProcessed"`
	UsersFailed    int           `json:"usersFailed"`
	Failures       []UserFailure `json:"failures,omitempty"`
	Strategic      int           `json:"strategic"`
	Opportunistic  int           `json:"opportunistic"`
	Risk           int           `json:"risk"`
	FeedItems      int           `json:"feedItems"`
}

// RunRecord is the telemetry entry for one distribution run.
type RunRecord struct {
	ID         string      `json:"id"`
	Date       string      `json:"date"`
	Model      string      `json:"model"`
	Mode       string      `json:"mode"`
	Usage      Usage       `json:"usage"`
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"startedAt"`
	DurationMs int64       `json:"durationMs"`
	Summary    *RunSummary `json:"summary,omitempty"`
}
