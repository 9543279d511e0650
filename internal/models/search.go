package models

import "time"

type SearchRecord struct {
	ID         string    `json:"id"`
	Keyword    string    `json:"keyword"`
	CreatedAt  time.Time `json:"created_at"`
	VideoCount int       `json:"video_count"`
}

type GeneratedPrompt struct {
	ID         string    `json:"id"`
	SearchID   string    `json:"search_id"`
	PromptText string    `json:"prompt_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// SearchResponse is the body returned by the search and re-analyze endpoints.
type SearchResponse struct {
	SearchID    string          `json:"search_id"`
	Keyword     string          `json:"keyword"`
	Videos      []VideoRecord   `json:"videos"`
	Analysis    *AnalysisResult `json:"analysis"`
	Prompt      string          `json:"prompt"`
	Demo        bool            `json:"demo,omitempty"`
	VideoFilter VideoFilter     `json:"videoFilter,omitempty"`
}

// DigestReport collects the briefs produced by one watchlist run.
type DigestReport struct {
	Date   time.Time      `json:"date"`
	Briefs []*DigestEntry `json:"briefs"`
	Failed []string       `json:"failed"`
}

type DigestEntry struct {
	Keyword  string          `json:"keyword"`
	SearchID string          `json:"search_id"`
	Analysis *AnalysisResult `json:"analysis"`
	Prompt   string          `json:"prompt"`

	// NewVideoIDs lists top videos that were not in the previous run's list.
	NewVideoIDs []string `json:"new_video_ids,omitempty"`
}
