package models

import "time"

// TopVideoCount is how many of the ranked videos the analysis and the prompt embed.
const TopVideoCount = 10

// VideoRecord is one search hit, normalized from the YouTube Data API.
type VideoRecord struct {
	ID              string    `json:"youtube_id" yaml:"id"`
	Title           string    `json:"title" yaml:"title"`
	ChannelName     string    `json:"channel_name" yaml:"channel"`
	PublishedAt     time.Time `json:"published_at" yaml:"published_at"`
	ViewCount       int64     `json:"view_count" yaml:"views"`
	LikeCount       int64     `json:"like_count" yaml:"likes"`
	CommentCount    int64     `json:"comment_count" yaml:"comments"`
	Tags            []string  `json:"tags" yaml:"tags"`
	Duration        string    `json:"duration,omitempty" yaml:"-"`
	DurationSeconds *int      `json:"duration_seconds,omitempty" yaml:"duration_seconds"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty" yaml:"thumbnail"`
	EngagementRate  float64   `json:"engagement_rate" yaml:"-"`
}

// EngagementRate returns likes as a percentage of views, 0 when there are no views.
func EngagementRate(views, likes int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(likes) / float64(views) * 100
}

// AnalysisResult holds the aggregate statistics and recurring patterns of a batch.
type AnalysisResult struct {
	TitleFormats      []string      `json:"titleFormats"`
	PowerWords        []string      `json:"powerWords"`
	AvgEngagementRate float64       `json:"avgEngagementRate"`
	CommonTags        []string      `json:"commonTags"`
	AvgViewCount      int64         `json:"avgViewCount"`
	TopVideos         []VideoRecord `json:"topVideos"`
}

// VideoFilter restricts a search by video length.
type VideoFilter string

const (
	FilterAll      VideoFilter = "all"
	FilterShorts   VideoFilter = "shorts"
	FilterLongform VideoFilter = "longform"
)

// ShortsMaxSeconds is the longest a video can be and still count as a Short.
const ShortsMaxSeconds = 180

// ParseVideoFilter maps unknown values to FilterAll.
func ParseVideoFilter(s string) VideoFilter {
	switch VideoFilter(s) {
	case FilterShorts, FilterLongform:
		return VideoFilter(s)
	default:
		return FilterAll
	}
}

// Valid reports whether f is one of the known filters.
func (f VideoFilter) Valid() bool {
	return f == FilterAll || f == FilterShorts || f == FilterLongform
}

// Keep reports whether a video of the given length passes the filter.
// Shorts treat an unknown length as 0, long-form keeps unknown lengths.
func (f VideoFilter) Keep(durationSeconds *int) bool {
	switch f {
	case FilterShorts:
		return durationSeconds == nil || *durationSeconds <= ShortsMaxSeconds
	case FilterLongform:
		return durationSeconds == nil || *durationSeconds > ShortsMaxSeconds
	default:
		return true
	}
}
