package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TopListTracker remembers which videos appeared in each keyword's top list so
// a watchlist run can point out newcomers.
type TopListTracker struct {
	filePath string
	seen     map[string]map[string]time.Time // keyword -> video ID -> last seen
	mu       sync.RWMutex
	maxAge   time.Duration
}

// TrackedEntry is one keyword/video pair in the tracker file.
type TrackedEntry struct {
	Keyword  string    `json:"keyword"`
	VideoID  string    `json:"video_id"`
	LastSeen time.Time `json:"last_seen"`
}

// NewTopListTracker loads (or starts) the tracker file in dataDir.
func NewTopListTracker(dataDir string, maxAge time.Duration) (*TopListTracker, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	tracker := &TopListTracker{
		filePath: filepath.Join(dataDir, "top_lists.json"),
		seen:     make(map[string]map[string]time.Time),
		maxAge:   maxAge,
	}

	if err := tracker.load(); err != nil {
		return nil, fmt.Errorf("failed to load top list tracker data: %w", err)
	}

	tracker.cleanup()

	return tracker, nil
}

// NewIDs returns the IDs, in input order, not seen for keyword within maxAge.
func (t *TopListTracker) NewIDs(keyword string, ids []string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	known := t.seen[normalizeKeyword(keyword)]
	var fresh []string
	for _, id := range ids {
		lastSeen, ok := known[id]
		if !ok || time.Since(lastSeen) >= t.maxAge {
			fresh = append(fresh, id)
		}
	}
	return fresh
}

// Record marks ids as seen for keyword and saves the file.
func (t *TopListTracker) Record(keyword string, ids []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := normalizeKeyword(keyword)
	known, ok := t.seen[key]
	if !ok {
		known = make(map[string]time.Time)
		t.seen[key] = known
	}

	now := time.Now()
	for _, id := range ids {
		known[id] = now
	}
	return t.save()
}

// Count returns the number of tracked keyword/video pairs.
func (t *TopListTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, known := range t.seen {
		n += len(known)
	}
	return n
}

func (t *TopListTracker) cleanup() {
	cutoff := time.Now().Add(-t.maxAge)

	for keyword, known := range t.seen {
		for id, lastSeen := range known {
			if lastSeen.Before(cutoff) {
				delete(known, id)
			}
		}
		if len(known) == 0 {
			delete(t.seen, keyword)
		}
	}
}

func (t *TopListTracker) load() error {
	file, err := os.Open(t.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open tracker file: %w", err)
	}
	defer file.Close()

	var entries []TrackedEntry
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode tracker data: %w", err)
	}

	for _, e := range entries {
		known, ok := t.seen[e.Keyword]
		if !ok {
			known = make(map[string]time.Time)
			t.seen[e.Keyword] = known
		}
		known[e.VideoID] = e.LastSeen
	}

	return nil
}

func (t *TopListTracker) save() error {
	var entries []TrackedEntry
	for keyword, known := range t.seen {
		for id, lastSeen := range known {
			entries = append(entries, TrackedEntry{Keyword: keyword, VideoID: id, LastSeen: lastSeen})
		}
	}

	file, err := os.Create(t.filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

func normalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}
