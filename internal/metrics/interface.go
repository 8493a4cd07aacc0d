// Per-pipeline tick timing and process resource sampling
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Stats summarises the ticks of one pipeline.
type Stats struct {
	Name      string
	Ticks     int
	Errors    int
	Last      time.Duration
	Mean      time.Duration
	Max       time.Duration
	LastCount int
	total     time.Duration
}

// Recorder accumulates Stats by pipeline name. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	stats map[string]*Stats
}

func NewRecorder() *Recorder {
	return &Recorder{
		stats: make(map[string]*Stats),
	}
}

// Observe records one tick. count is the pipeline's result size (blobs or
// markers found); it is ignored for failed ticks.
func (r *Recorder) Observe(name string, elapsed time.Duration, count int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[name]
	if !ok {
		s = &Stats{Name: name}
		r.stats[name] = s
	}

	s.Ticks++
	s.Last = elapsed
	s.total += elapsed
	s.Mean = s.total / time.Duration(s.Ticks)
	if elapsed > s.Max {
		s.Max = elapsed
	}
	if err != nil {
		s.Errors++
		return
	}
	s.LastCount = count
}

// Start returns a function that observes the time elapsed since Start.
func (r *Recorder) Start(name string) func(count int, err error) {
	began := time.Now()
	return func(count int, err error) {
		r.Observe(name, time.Since(began), count, err)
	}
}

// Get returns the stats for one pipeline.
func (r *Recorder) Get(name string) (Stats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[name]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// Snapshot returns all stats ordered by name.
func (r *Recorder) Snapshot() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Stats, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears all stats.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = make(map[string]*Stats)
}
