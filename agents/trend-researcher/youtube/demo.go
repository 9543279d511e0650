package youtube

import (
	"context"
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"trend-brief/internal/models"
)

//go:embed demo_videos.yaml
var demoVideosYAML []byte

// DemoSource serves a fixed set of gaming videos so the service can be tried
// without API credentials.
type DemoSource struct {
	videos []models.VideoRecord
}

func NewDemoSource() (*DemoSource, error) {
	var videos []models.VideoRecord
	if err := yaml.Unmarshal(demoVideosYAML, &videos); err != nil {
		return nil, fmt.Errorf("failed to parse demo videos: %w", err)
	}

	for i := range videos {
		v := &videos[i]
		if v.Tags == nil {
			v.Tags = []string{}
		}
		if v.DurationSeconds != nil {
			v.Duration = formatDuration(*v.DurationSeconds)
		}
		v.EngagementRate = models.EngagementRate(v.ViewCount, v.LikeCount)
	}

	return &DemoSource{videos: videos}, nil
}

func (d *DemoSource) Demo() bool { return true }

// Search ignores the keyword. The fixture is cut to maxResults before the
// length filter applies, so a narrow filter can come back empty.
func (d *DemoSource) Search(_ context.Context, _ string, maxResults int, filter models.VideoFilter) ([]models.VideoRecord, error) {
	capped := d.videos[:max(0, min(maxResults, len(d.videos)))]

	out := make([]models.VideoRecord, 0, len(capped))
	for _, v := range capped {
		if filter.Keep(v.DurationSeconds) {
			v.Tags = slices.Clone(v.Tags)
			out = append(out, v)
		}
	}
	return out, nil
}
