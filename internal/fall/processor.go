package fall

import (
	"math"
	"time"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

const (
	// DefaultFallThreshold is the smoothed delta that signals a fall.
	DefaultFallThreshold = 2.0
	// DefaultImpactThreshold is the raw magnitude (m/s²) that signals an impact.
	DefaultImpactThreshold = 12.0
	// DefaultSmoothing is the decay applied to the accumulator on every sample.
	DefaultSmoothing = 0.9
	// DefaultFreeFallThreshold is the magnitude under which a sample looks like free fall.
	DefaultFreeFallThreshold = 3.0
)

// Config holds the detector thresholds.
type Config struct {
	// FallThreshold is compared against the absolute smoothed delta.
	FallThreshold float64
	// ImpactThreshold is compared against the raw magnitude.
	ImpactThreshold float64
	// Smoothing is the accumulator decay factor.
	Smoothing float64
	// FreeFallThreshold only flags readings; it never signals a fall.
	FreeFallThreshold float64
}

// DefaultConfig returns the thresholds tuned for handheld devices.
func DefaultConfig() Config {
	return Config{
		FallThreshold:     DefaultFallThreshold,
		ImpactThreshold:   DefaultImpactThreshold,
		Smoothing:         DefaultSmoothing,
		FreeFallThreshold: DefaultFreeFallThreshold,
	}
}

// Cause tells which threshold produced an event.
type Cause string

const (
	// CauseSuddenChange means the smoothed delta exceeded FallThreshold.
	CauseSuddenChange Cause = "sudden_change"
	// CauseImpact means the magnitude exceeded ImpactThreshold.
	CauseImpact Cause = "impact"
)

// Event is a suspected fall.
type Event struct {
	Timestamp     time.Time
	Magnitude     float64
	SmoothedDelta float64
	Cause         Cause
}

// Reading is the processor's view of one sample.
type Reading struct {
	Magnitude     float64
	SmoothedDelta float64
	// FreeFall is set when the magnitude dropped below FreeFallThreshold.
	FreeFall bool
}

// SignalState is the accumulator carried between samples.
type SignalState struct {
	LastMagnitude float64
	SmoothedDelta float64
}

// Processor is not safe for concurrent use; the session controller owns it.
type Processor struct {
	cfg   Config
	state SignalState
	// armed allows events to be emitted.
	armed bool
	// latched is set once an event was emitted and cleared by Rearm.
	latched bool
	// unavailable is set when the motion source was lost.
	unavailable bool
}

// NewProcessor creates a disarmed processor at the neutral baseline.
// Zero-valued thresholds fall back to the defaults.
func NewProcessor(cfg Config) *Processor {
	defaults := DefaultConfig()

	if cfg.FallThreshold <= 0 {
		cfg.FallThreshold = defaults.FallThreshold
	}

	if cfg.ImpactThreshold <= 0 {
		cfg.ImpactThreshold = defaults.ImpactThreshold
	}

	if cfg.Smoothing <= 0 || cfg.Smoothing >= 1 {
		cfg.Smoothing = defaults.Smoothing
	}

	if cfg.FreeFallThreshold <= 0 {
		cfg.FreeFallThreshold = defaults.FreeFallThreshold
	}

	p := &Processor{cfg: cfg}
	p.Reset()

	return p
}

// Reset returns to the neutral baseline: one standard gravity, zero delta,
// disarmed, not latched and with the sensor considered available.
func (p *Processor) Reset() {
	p.state = SignalState{
		LastMagnitude: walk.StandardGravity,
		SmoothedDelta: 0,
	}
	p.armed = false
	p.latched = false
	p.unavailable = false
}

// Arm permits events.
func (p *Processor) Arm() {
	p.armed = true
}

// Disarm forbids events; samples still update the accumulator.
func (p *Processor) Disarm() {
	p.armed = false
}

// Rearm clears the latch after the user acknowledged a suspected fall.
// The accumulator is left untouched.
func (p *Processor) Rearm() {
	p.latched = false
}

// MarkUnavailable disables detection until the next Reset.
func (p *Processor) MarkUnavailable() {
	p.unavailable = true
}

// Available reports whether the motion source is usable.
func (p *Processor) Available() bool {
	return !p.unavailable
}

// Armed reports whether events may currently be emitted.
func (p *Processor) Armed() bool {
	return p.armed && !p.latched && !p.unavailable
}

// State returns a copy of the accumulator.
func (p *Processor) State() SignalState {
	return p.state
}

// OnSample feeds one sample and returns an event when a fall is signaled.
func (p *Processor) OnSample(sample walk.MotionSample) (Reading, *Event) {
	magnitude := math.Sqrt(sample.X*sample.X + sample.Y*sample.Y + sample.Z*sample.Z)

	delta := magnitude - p.state.LastMagnitude
	p.state.LastMagnitude = magnitude
	p.state.SmoothedDelta = p.state.SmoothedDelta*p.cfg.Smoothing + delta

	reading := Reading{
		Magnitude:     magnitude,
		SmoothedDelta: p.state.SmoothedDelta,
		FreeFall:      magnitude < p.cfg.FreeFallThreshold,
	}

	if !p.Armed() {
		return reading, nil
	}

	var cause Cause

	switch {
	case math.Abs(p.state.SmoothedDelta) > p.cfg.FallThreshold:
		cause = CauseSuddenChange
	case magnitude > p.cfg.ImpactThreshold:
		cause = CauseImpact
	default:
		return reading, nil
	}

	p.latched = true

	return reading, &Event{
		Timestamp:     sample.Timestamp,
		Magnitude:     magnitude,
		SmoothedDelta: p.state.SmoothedDelta,
		Cause:         cause,
	}
}
