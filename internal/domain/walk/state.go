package walk

import "time"

// State is the lifecycle state of a Safe-Walk session.
type State int

const (
	// StateNotStarted means no session is running.
	StateNotStarted State = iota
	// StateGracePeriod is the initial window during which falls are ignored.
	StateGracePeriod
	// StateMonitoring means fall detection is armed.
	StateMonitoring
	// StateFallSuspected means a fall was detected and the countdown runs.
	StateFallSuspected
	// StateEscalated is entered briefly while an automatic alert is raised.
	StateEscalated
)

// String returns the snake_case name of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateGracePeriod:
		return "grace_period"
	case StateMonitoring:
		return "monitoring"
	case StateFallSuspected:
		return "fall_suspected"
	case StateEscalated:
		return "escalated"
	default:
		return "unknown"
	}
}

// ParseState converts a name produced by String back to a State.
func ParseState(s string) (State, bool) {
	for st := StateNotStarted; st <= StateEscalated; st++ {
		if st.String() == s {
			return st, true
		}
	}

	return StateNotStarted, false
}

// Active reports whether the state belongs to a running session.
func (s State) Active() bool {
	return s != StateNotStarted
}

// CountdownState is the progress of a running escalation countdown.
type CountdownState struct {
	Remaining time.Duration
	Total     time.Duration
}

// AlertOutcome describes the last alert a session raised.
type AlertOutcome struct {
	// Record is the dispatched alert.
	Record *AlertRecord
	// Err is the dispatch failure message, empty on success or while pending.
	Err string
	// Pending is true until the sink returned.
	Pending bool
}

// Clone returns a deep copy of the outcome.
func (o *AlertOutcome) Clone() *AlertOutcome {
	if o == nil {
		return nil
	}

	return &AlertOutcome{
		Record:  o.Record.Clone(),
		Err:     o.Err,
		Pending: o.Pending,
	}
}

// Snapshot is the externally observable view of a session.
type Snapshot struct {
	// Sequence increases by one for every published snapshot.
	Sequence uint64
	// SessionID is empty while no session runs.
	SessionID string
	// State is the session state.
	State State
	// Elapsed is the time since session start, refreshed every tick.
	Elapsed time.Duration
	// StartedAt is when the session started, zero while idle.
	StartedAt time.Time
	// ArmedAt is when the grace period ended, zero until then.
	ArmedAt time.Time
	// FallSuspected mirrors State == StateFallSuspected for simple consumers.
	FallSuspected bool
	// FallDetectionAvailable is false once the motion sensor was lost.
	FallDetectionAvailable bool
	// Countdown is set only while a fall is suspected.
	Countdown *CountdownState
	// Location is the cached position, nil until the first update.
	Location *PositionSample
	// LastAlert is the most recent alert of the session.
	LastAlert *AlertOutcome
	// At is when the snapshot was taken.
	At time.Time
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	cloned := *s
	cloned.Location = s.Location.Clone()
	cloned.LastAlert = s.LastAlert.Clone()

	if s.Countdown != nil {
		countdown := *s.Countdown
		cloned.Countdown = &countdown
	}

	return &cloned
}
