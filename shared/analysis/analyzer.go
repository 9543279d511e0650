package analysis

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"trend-brief/internal/models"
)

const (
	maxTitleFormats = 6
	maxPowerWords   = 10
	maxCommonTags   = 15

	minFormatCount = 2
	minTagCount    = 2
	minTagLength   = 3
)

// Analyzer detects recurring title, vocabulary and tag patterns in a batch of videos.
// It holds only read-only tables, so one Analyzer can serve concurrent callers.
type Analyzer struct {
	powerWords   []string
	titleFormats []TitleFormat
}

// NewAnalyzer returns an Analyzer over the default vocabulary and format table.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		powerWords:   DefaultPowerWords,
		titleFormats: DefaultTitleFormats,
	}
}

// NewAnalyzerWithTables lets callers swap in their own vocabulary or format table.
// Power words are matched lowercase, so they should be given lowercase.
func NewAnalyzerWithTables(powerWords []string, formats []TitleFormat) *Analyzer {
	return &Analyzer{powerWords: powerWords, titleFormats: formats}
}

var defaultAnalyzer = NewAnalyzer()

// Analyze runs the default Analyzer.
func Analyze(videos []models.VideoRecord) *models.AnalysisResult {
	return defaultAnalyzer.Analyze(videos)
}

// Analyze never fails: an empty batch yields zero statistics and empty pattern lists.
func (a *Analyzer) Analyze(videos []models.VideoRecord) *models.AnalysisResult {
	if len(videos) == 0 {
		return &models.AnalysisResult{
			TitleFormats: []string{},
			PowerWords:   []string{},
			CommonTags:   []string{},
			TopVideos:    []models.VideoRecord{},
		}
	}

	titles := make([]string, len(videos))
	var totalEngagement, totalViews float64
	for i, v := range videos {
		titles[i] = v.Title
		if !math.IsNaN(v.EngagementRate) && !math.IsInf(v.EngagementRate, 0) {
			totalEngagement += v.EngagementRate
		}
		totalViews += float64(v.ViewCount)
	}
	n := float64(len(videos))

	top := videos[:min(len(videos), models.TopVideoCount)]

	return &models.AnalysisResult{
		TitleFormats:      a.titleFormatsOf(titles),
		PowerWords:        a.powerWordsOf(titles),
		AvgEngagementRate: roundTo(totalEngagement/n, 2),
		CommonTags:        commonTags(videos),
		AvgViewCount:      int64(math.Round(totalViews / n)),
		TopVideos:         slices.Clone(top),
	}
}

// powerWordsOf counts each vocabulary term at most once per title, by substring
// containment, so "noob" also counts "noobs".
func (a *Analyzer) powerWordsOf(titles []string) []string {
	counts := make([]int, len(a.powerWords))
	for _, title := range titles {
		lower := strings.ToLower(title)
		for i, word := range a.powerWords {
			if strings.Contains(lower, word) {
				counts[i]++
			}
		}
	}

	ranked := rankByCount(counts, 1, maxPowerWords)
	words := make([]string, len(ranked))
	for i, idx := range ranked {
		words[i] = a.powerWords[idx]
	}
	return words
}

// titleFormatsOf keeps formats seen in at least two titles and labels them with their count.
func (a *Analyzer) titleFormatsOf(titles []string) []string {
	counts := make([]int, len(a.titleFormats))
	for _, title := range titles {
		for i, f := range a.titleFormats {
			if f.Pattern.MatchString(title) {
				counts[i]++
			}
		}
	}

	ranked := rankByCount(counts, minFormatCount, maxTitleFormats)
	labels := make([]string, len(ranked))
	for i, idx := range ranked {
		labels[i] = fmt.Sprintf("%s (%d videos)", a.titleFormats[idx].Label, counts[idx])
	}
	return labels
}

// commonTags ranks normalized tags; equal counts keep first-seen order.
func commonTags(videos []models.VideoRecord) []string {
	var order []string
	index := make(map[string]int)
	var counts []int

	for _, v := range videos {
		for _, tag := range v.Tags {
			normalized := strings.TrimSpace(strings.ToLower(tag))
			if utf8.RuneCountInString(normalized) < minTagLength {
				continue
			}
			idx, ok := index[normalized]
			if !ok {
				idx = len(order)
				index[normalized] = idx
				order = append(order, normalized)
				counts = append(counts, 0)
			}
			counts[idx]++
		}
	}

	ranked := rankByCount(counts, minTagCount, maxCommonTags)
	tags := make([]string, len(ranked))
	for i, idx := range ranked {
		tags[i] = order[idx]
	}
	return tags
}

// rankByCount returns the indexes whose count reaches minCount, highest count first.
// The sort is stable over index order, so ties follow table (or first-seen) order.
func rankByCount(counts []int, minCount, limit int) []int {
	var idxs []int
	for i, c := range counts {
		if c >= minCount {
			idxs = append(idxs, i)
		}
	}
	slices.SortStableFunc(idxs, func(a, b int) int {
		return counts[b] - counts[a]
	})
	if len(idxs) > limit {
		idxs = idxs[:limit]
	}
	return idxs
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
