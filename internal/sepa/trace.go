package sepa

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Reasons a candidate interval is rejected.
const (
	ReasonEmptyInterval = "empty interval"
	ReasonNoUptrend     = "no uptrend at base start"
	ReasonUnclassified  = "no base type matched"
	ReasonNoResistance  = "non-positive resistance"
	ReasonDuplicate     = "duplicate start date"
)

// TraceEvent records how one candidate interval was evaluated.
type TraceEvent struct {
	Source        Source    `json:"source"`
	Hi            int       `json:"hi"`
	End           int       `json:"end"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	DurationWeeks int       `json:"duration_weeks"`
	DepthPct      float64   `json:"depth_pct"`
	Uptrend       bool      `json:"uptrend"`
	UptrendRetry  bool      `json:"uptrend_retry"` // passed one week before the start
	LowsInSegment int       `json:"lows_in_segment"`
	HasHandle     bool      `json:"has_handle"`
	PriorGain     float64   `json:"prior_gain"`
	HasPriorGain  bool      `json:"has_prior_gain"`
	BaseType      BaseType  `json:"base_type,omitempty"`
	Accepted      bool      `json:"accepted"`
	Reason        string    `json:"reason,omitempty"`
}

// Tracer receives one event per evaluated candidate, plus one per base
// dropped during deduplication.
type Tracer interface {
	Trace(ev TraceEvent)
}

// LogTracer writes trace events at debug level.
type LogTracer struct {
	Logger zerolog.Logger
}

func (t LogTracer) Trace(ev TraceEvent) {
	e := t.Logger.Debug().
		Str("source", string(ev.Source)).
		Int("hi", ev.Hi).
		Int("end", ev.End).
		Time("start", ev.StartDate).
		Int("weeks", ev.DurationWeeks).
		Float64("depth_pct", ev.DepthPct).
		Bool("uptrend", ev.Uptrend).
		Int("lows", ev.LowsInSegment).
		Bool("handle", ev.HasHandle).
		Bool("accepted", ev.Accepted)
	if ev.BaseType != "" {
		e = e.Str("base_type", string(ev.BaseType))
	}
	if ev.Reason != "" {
		e = e.Str("reason", ev.Reason)
	}
	e.Msg("base candidate")
}

// RecordingTracer keeps events in memory.
type RecordingTracer struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (t *RecordingTracer) Trace(ev TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

// Events returns a copy of the recorded events.
func (t *RecordingTracer) Events() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEvent, len(t.events))
	copy(out, t.events)
	return out
}

type noopTracer struct{}

func (noopTracer) Trace(TraceEvent) {}
