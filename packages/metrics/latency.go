package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1us to 10min, 3 significant digits.
const (
	minLatencyUs = 1
	maxLatencyUs = 600_000_000
)

// Latency keeps one histogram per operation name.
type Latency struct {
	mu         sync.Mutex
	histograms map[string]*hdrhistogram.Histogram
}

// Summary is the percentile view of one operation.
type Summary struct {
	Name  string
	Count int64
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
	Mean  time.Duration
}

func NewLatency() *Latency {
	return &Latency{histograms: make(map[string]*hdrhistogram.Histogram)}
}

// Record adds one observation, clamped to the histogram range.
func (l *Latency) Record(name string, d time.Duration) {
	if l == nil {
		return
	}
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.histograms[name]
	if !ok {
		h = hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
		l.histograms[name] = h
	}
	_ = h.RecordValue(us)
}

// Summaries returns every operation ordered by name.
func (l *Latency) Summaries() []Summary {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Summary, 0, len(l.histograms))
	for name, h := range l.histograms {
		out = append(out, Summary{
			Name:  name,
			Count: h.TotalCount(),
			P50:   us(h.ValueAtQuantile(50)),
			P95:   us(h.ValueAtQuantile(95)),
			P99:   us(h.ValueAtQuantile(99)),
			Max:   us(h.Max()),
			Mean:  time.Duration(h.Mean()) * time.Microsecond,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func us(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
