// Package stats records how AI requests went (latency, outcome, size)
// and persists them to ~/.sapphire/stats.json.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/arin/sapphire/internal/config"
)

const (
	fileName   = "stats.json"
	maxRecords = 1000
)

// Outcomes, matching the stream terminal states.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Record is a single AI request.
type Record struct {
	Timestamp time.Time     `json:"timestamp"`
	Kind      string        `json:"kind"` // "generate", "chat", "action", "suggest-tags", ...
	Action    string        `json:"action,omitempty"`
	Model     string        `json:"model"`
	Outcome   string        `json:"outcome"`
	Latency   time.Duration `json:"latency_ms"`
	Fragments int           `json:"fragments,omitempty"`
	Chars     int           `json:"chars,omitempty"`
}

// Summary is the aggregated stats dashboard.
type Summary struct {
	TotalRequests  int            `json:"total_requests"`
	Completed      int            `json:"completed"`
	Cancelled      int            `json:"cancelled"`
	Failed         int            `json:"failed"`
	SuccessRate    float64        `json:"success_rate"`
	AvgLatencyMs   int64          `json:"avg_latency_ms"`
	KindBreakdown  map[string]int `json:"kind_breakdown"`
	ModelBreakdown map[string]int `json:"model_breakdown"`
	TopActions     []ActionCount  `json:"top_actions"`
	TodayCount     int            `json:"today_count"`
	ThisWeekCount  int            `json:"this_week_count"`
}

// ActionCount pairs an action with its usage count.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

var fileMu sync.Mutex

func statsPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new record to the stats file.
func Save(r Record) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	// Store durations as milliseconds for readability.
	r.Latency = r.Latency / time.Millisecond

	records, _ := loadAll()
	records = append(records, r)

	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statsPath(), data, 0o600)
}

// LoadAll returns all stored records.
func LoadAll() ([]Record, error) {
	return loadAll()
}

func loadAll() ([]Record, error) {
	data, err := os.ReadFile(statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Summarize computes aggregated stats from all records.
func Summarize() (*Summary, error) {
	records, err := loadAll()
	if err != nil {
		return nil, err
	}
	return summarize(records, time.Now()), nil
}

func summarize(records []Record, now time.Time) *Summary {
	s := &Summary{
		TotalRequests:  len(records),
		KindBreakdown:  map[string]int{},
		ModelBreakdown: map[string]int{},
	}
	if len(records) == 0 {
		return s
	}

	var totalLatency int64
	actionFreq := map[string]int{}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	for _, r := range records {
		switch r.Outcome {
		case OutcomeCompleted:
			s.Completed++
		case OutcomeCancelled:
			s.Cancelled++
		case OutcomeFailed:
			s.Failed++
		}
		totalLatency += int64(r.Latency)
		if r.Kind != "" {
			s.KindBreakdown[r.Kind]++
		}
		if r.Model != "" {
			s.ModelBreakdown[r.Model]++
		}
		if r.Action != "" {
			actionFreq[r.Action]++
		}
		if !r.Timestamp.Before(today) {
			s.TodayCount++
		}
		if r.Timestamp.After(weekAgo) {
			s.ThisWeekCount++
		}
	}

	// Cancellations are the user's choice, not failures.
	if decided := s.Completed + s.Failed; decided > 0 {
		s.SuccessRate = float64(s.Completed) / float64(decided) * 100
	}
	s.AvgLatencyMs = totalLatency / int64(len(records))
	s.TopActions = topN(actionFreq, 5)
	return s
}

func topN(freq map[string]int, n int) []ActionCount {
	all := make([]ActionCount, 0, len(freq))
	for action, count := range freq {
		all = append(all, ActionCount{Action: action, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Action < all[j].Action
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
