package brief

import (
	"trend-brief/internal/models"
	"trend-brief/shared/analysis"
	"trend-brief/shared/prompt"
)

// Brief is one keyword's research output. Analysis and Prompt are both derived
// from Videos, so the ranked list they embed is always the same.
type Brief struct {
	Keyword  string
	Videos   []models.VideoRecord
	Analysis *models.AnalysisResult
	Prompt   string
}

// Builder pairs an Analyzer with a Composer.
type Builder struct {
	analyzer *analysis.Analyzer
	composer *prompt.Composer
}

func NewBuilder(analyzer *analysis.Analyzer, composer *prompt.Composer) *Builder {
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer()
	}
	if composer == nil {
		composer = prompt.NewComposer(nil)
	}
	return &Builder{analyzer: analyzer, composer: composer}
}

// Build expects videos already ranked by the source, highest views first.
func (b *Builder) Build(keyword string, videos []models.VideoRecord) *Brief {
	result := b.analyzer.Analyze(videos)
	return &Brief{
		Keyword:  keyword,
		Videos:   videos,
		Analysis: result,
		Prompt:   b.composer.Compose(keyword, videos, result),
	}
}
