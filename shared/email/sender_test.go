package email

import (
	"strings"
	"testing"
	"time"

	"trend-brief/internal/models"
	"trend-brief/shared/config"
)

func newTestSender(t *testing.T) *Sender {
	t.Helper()
	s, err := NewSender(&config.EmailConfig{SMTPServer: "smtp.invalid", SMTPPort: 587}, nil)
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	return s
}

func testReport() *models.DigestReport {
	return &models.DigestReport{
		Date: time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC),
		Briefs: []*models.DigestEntry{
			{
				Keyword: "minecraft",
				Analysis: &models.AnalysisResult{
					TitleFormats:      []string{"Challenge/Experiment"},
					PowerWords:        []string{"insane"},
					AvgEngagementRate: 4.5,
					AvgViewCount:      1234567,
					TopVideos: []models.VideoRecord{
						{ID: "old1", Title: "Old favourite", ChannelName: "Steve", ViewCount: 2000000},
						{ID: "new1", Title: "Fresh <entry>", ChannelName: "Alex", ViewCount: 469134, Duration: "0:45"},
					},
				},
				Prompt:      "Generate 5 viral video ideas",
				NewVideoIDs: []string{"new1"},
			},
		},
		Failed: []string{"fortnite"},
	}
}

func TestGenerateEmailBody(t *testing.T) {
	s := newTestSender(t)

	body, err := s.generateEmailBody(testReport())
	if err != nil {
		t.Fatalf("generateEmailBody() error = %v", err)
	}

	for _, want := range []string{
		"3/7/2025",
		"<h2>minecraft</h2>",
		"1,234,567",
		"4.50%",
		"Challenge/Experiment",
		"https://www.youtube.com/watch?v=old1",
		"Fresh &lt;entry&gt;",
		"0:45",
		"Generate 5 viral video ideas",
		"fortnite",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	if n := strings.Count(body, `class="new"`); n != 1 {
		t.Errorf("found %d new badges, want 1", n)
	}
}

func TestSendDigestSkipsEmptyReport(t *testing.T) {
	s := newTestSender(t)

	if err := s.SendDigest(&models.DigestReport{Date: time.Now()}); err != nil {
		t.Errorf("SendDigest() with no briefs error = %v, want nil", err)
	}
	if err := s.SendDigest(nil); err == nil {
		t.Error("SendDigest(nil) expected error")
	}
}
