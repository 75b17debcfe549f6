package store

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-energy-forecast/internal/energy"
	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

var (
	// ErrNotFound is returned when no probe result is available for a site.
	ErrNotFound = errors.New("no probe results for site")
)

// ProbeResult is the outcome of one scheduled pipeline run for a site.
type ProbeResult struct {
	Site     string                   `json:"site"`
	Mode     weather.Mode             `json:"mode"`
	RanAt    time.Time                `json:"ran_at"`
	Duration time.Duration            `json:"duration_ns"`
	Records  int                      `json:"records"`
	First    *energy.PredictionRecord `json:"first,omitempty"`
	Last     *energy.PredictionRecord `json:"last,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// OK reports whether the run succeeded.
func (r ProbeResult) OK() bool {
	return r.Error == ""
}

// ProbeHistory holds a time-ordered list of probe results for a site.
type ProbeHistory struct {
	Results []ProbeResult
}

// MemoryStore is a concurrency-safe in-memory store of probe results.
type MemoryStore struct {
	mu sync.RWMutex

	// key: site key, value: history
	data map[string]*ProbeHistory

	maxHistory int           // max number of results per site
	maxAge     time.Duration // optional max age for results
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ProbeHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

func siteKey(site string) string {
	return strings.ToLower(strings.TrimSpace(site))
}

// Save appends a result for its site and enforces retention.
func (s *MemoryStore) Save(result ProbeResult) {
	key := siteKey(result.Site)

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &ProbeHistory{}
		s.data[key] = history
	}

	history.Results = append(history.Results, result)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Results) > s.maxHistory {
		over := len(history.Results) - s.maxHistory
		history.Results = history.Results[over:]
	}

	// Enforce retention by age; the newest result is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Results)-1; i++ {
			if !history.Results[i].RanAt.Before(cutoff) {
				break
			}
		}
		history.Results = history.Results[i:]
	}
}

// Latest returns the most recent result for a site.
func (s *MemoryStore) Latest(site string) (ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[siteKey(site)]
	if !ok || len(history.Results) == 0 {
		return ProbeResult{}, ErrNotFound
	}
	return history.Results[len(history.Results)-1], nil
}

// History returns a copy of every retained result for a site, oldest first.
func (s *MemoryStore) History(site string) ([]ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[siteKey(site)]
	if !ok || len(history.Results) == 0 {
		return nil, ErrNotFound
	}
	return slices.Clone(history.Results), nil
}

// LatestAll returns the latest result of every site, ordered by site key.
func (s *MemoryStore) LatestAll() []ProbeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k, h := range s.data {
		if len(h.Results) > 0 {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	out := make([]ProbeResult, 0, len(keys))
	for _, k := range keys {
		results := s.data[k].Results
		out = append(out, results[len(results)-1])
	}
	return out
}
