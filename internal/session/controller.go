package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/safe-walk/internal/countdown"
	"github.com/oshokin/safe-walk/internal/dispatch"
	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/fall"
	"github.com/oshokin/safe-walk/internal/identity"
	"github.com/oshokin/safe-walk/internal/location"
	"github.com/oshokin/safe-walk/internal/logger"
	"github.com/oshokin/safe-walk/internal/sensor"
)

const (
	// DefaultGracePeriod is the delay between start and arming.
	DefaultGracePeriod = 3 * time.Second
	// DefaultCountdown is how long the user has to acknowledge a suspected fall.
	DefaultCountdown = 30 * time.Second
	// DefaultElapsedInterval is the elapsed-time tick period.
	DefaultElapsedInterval = time.Second
	// DefaultDispatchTimeout bounds a single alert dispatch.
	DefaultDispatchTimeout = 10 * time.Second
	// subscriberBuffer is the snapshot backlog kept per subscriber.
	subscriberBuffer = 16
)

var (
	// ErrAlreadyStarted is returned when a session is started twice.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrNotStarted is returned for commands that need a running session.
	ErrNotStarted = errors.New("session not started")
	// ErrControllerClosed is returned once Run has returned.
	ErrControllerClosed = errors.New("session controller closed")
	// ErrDispatchFailed wraps every alert delivery failure.
	ErrDispatchFailed = errors.New("alert dispatch failed")

	errAlreadyRunning = errors.New("session controller is already running")
)

// Config holds the timing and detector settings of a controller.
type Config struct {
	// GracePeriod is the delay before fall detection is armed.
	GracePeriod time.Duration
	// Countdown is the escalation countdown length.
	Countdown time.Duration
	// ElapsedInterval is the elapsed-time tick and countdown tick period.
	ElapsedInterval time.Duration
	// DispatchTimeout bounds every sink call.
	DispatchTimeout time.Duration
	// Detector configures the fall signal processor.
	Detector fall.Config
}

// DefaultConfig returns the standard session timings.
func DefaultConfig() Config {
	return Config{
		GracePeriod:     DefaultGracePeriod,
		Countdown:       DefaultCountdown,
		ElapsedInterval: DefaultElapsedInterval,
		DispatchTimeout: DefaultDispatchTimeout,
		Detector:        fall.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()

	if c.GracePeriod <= 0 {
		c.GracePeriod = defaults.GracePeriod
	}

	if c.Countdown <= 0 {
		c.Countdown = defaults.Countdown
	}

	if c.ElapsedInterval <= 0 {
		c.ElapsedInterval = defaults.ElapsedInterval
	}

	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = defaults.DispatchTimeout
	}

	return c
}

// Option customizes a Controller.
type Option func(*Controller)

// WithPositionRecorder persists every position fix received during a session.
func WithPositionRecorder(r dispatch.PositionRecorder) Option {
	return func(c *Controller) {
		c.positions = r
	}
}

// WithSource attaches a motion source that is streamed while a session runs.
func WithSource(src sensor.Source) Option {
	return func(c *Controller) {
		c.source = src
	}
}

// WithSourceLogLevel sets the level of logs written while streaming the source.
func WithSourceLogLevel(level zapcore.Level) Option {
	return func(c *Controller) {
		c.sourceLevel = &level
	}
}

// WithIDGenerator replaces the UUID generator for session and alert IDs.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// Controller runs one Safe-Walk session at a time.
type Controller struct {
	cfg       Config
	sink      dispatch.Sink
	users     identity.UserSession
	positions dispatch.PositionRecorder
	source    sensor.Source
	newID     func() string
	// sourceLevel overrides the log level of the motion source.
	sourceLevel *zapcore.Level

	inbox   *mailbox
	running atomic.Bool
	// done is closed when Run returns.
	done chan struct{}
	// current is the last published snapshot.
	current atomic.Pointer[walk.Snapshot]
	// workers tracks dispatch, trail and sensor goroutines.
	workers sync.WaitGroup

	subsMu sync.Mutex
	subs   map[*subscription]struct{}

	// Everything below is owned by the Run goroutine.
	baseCtx    context.Context
	sessionCtx context.Context
	processor  *fall.Processor
	timer      *countdown.Timer
	locations  *location.Cache
	state      walk.State
	sessionID  string
	startedAt  time.Time
	armedAt    time.Time
	elapsed    time.Duration
	ticker     *time.Ticker
	grace      *time.Timer
	escalation *countdown.Handle
	remaining  *walk.CountdownState
	lastAlert  *walk.AlertOutcome
	stopSensor context.CancelFunc
	sequence   uint64
}

// New creates an idle controller. Run must be running for commands to complete.
func New(cfg Config, sink dispatch.Sink, users identity.UserSession, opts ...Option) *Controller {
	cfg = cfg.withDefaults()

	c := &Controller{
		cfg:       cfg,
		sink:      sink,
		users:     users,
		newID:     uuid.NewString,
		inbox:     newMailbox(),
		done:      make(chan struct{}),
		subs:      make(map[*subscription]struct{}),
		baseCtx:   context.Background(),
		processor: fall.NewProcessor(cfg.Detector),
		timer:     countdown.New(countdown.WithInterval(cfg.ElapsedInterval)),
		locations: location.NewCache(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.sessionCtx = c.baseCtx
	c.current.Store(c.buildSnapshot())

	return c
}

// Run processes the mailbox until ctx ends. On return the session is stopped,
// in-flight dispatches have finished and every subscription is closed.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}

	c.baseCtx = context.WithoutCancel(logger.WithName(ctx, "session"))
	c.sessionCtx = c.baseCtx

	logger.Info(c.baseCtx, "Session controller started")

	for {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C
		}

		select {
		case <-ctx.Done():
			c.shutdown()

			return nil
		case <-c.inbox.notify:
			for _, fn := range c.inbox.drain() {
				fn()
			}
		case <-tick:
			c.onElapsedTick()
		}
	}
}

func (c *Controller) shutdown() {
	c.inbox.close()

	if c.state.Active() {
		c.teardown("controller shutdown")
	}

	close(c.done)
	c.workers.Wait()
	c.closeSubscribers()

	logger.Info(c.baseCtx, "Session controller stopped")
}

type reply struct {
	snapshot *walk.Snapshot
	err      error
}

// call runs fn on the controller goroutine and waits for its result.
func (c *Controller) call(ctx context.Context, fn func() error) (*walk.Snapshot, error) {
	replies := make(chan reply, 1)

	posted := c.inbox.post(func() {
		err := fn()
		replies <- reply{snapshot: c.current.Load().Clone(), err: err}
	})
	if !posted {
		return nil, ErrControllerClosed
	}

	select {
	case r := <-replies:
		return r.snapshot, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrControllerClosed
	}
}

// Start begins a session in the grace period.
func (c *Controller) Start(ctx context.Context) (*walk.Snapshot, error) {
	return c.call(ctx, c.start)
}

// Stop ends the session. Stopping an idle controller is a no-op.
func (c *Controller) Stop(ctx context.Context) (*walk.Snapshot, error) {
	return c.call(ctx, func() error {
		if c.state.Active() {
			c.teardown("stop requested")
		}

		return nil
	})
}

// AcknowledgeSafe cancels a pending escalation. Outside the suspected-fall
// state it changes nothing.
func (c *Controller) AcknowledgeSafe(ctx context.Context) (*walk.Snapshot, error) {
	return c.call(ctx, func() error {
		if !c.state.Active() {
			return ErrNotStarted
		}

		if c.state == walk.StateFallSuspected {
			c.resolveSuspectedFall("acknowledged")
		}

		return nil
	})
}

// TriggerManualSOS raises a manual alert and waits for the sink. Within a
// suspected fall it also cancels the pending escalation. A delivery failure
// is returned wrapped in ErrDispatchFailed together with the alert; the
// session carries on either way.
//
// Once the alert is raised it is delivered even if ctx ends first. A request
// whose ctx ended before it reached the controller changes nothing.
func (c *Controller) TriggerManualSOS(ctx context.Context, address string) (walk.AlertRecord, error) {
	var (
		alert    walk.AlertRecord
		buildErr error
		result   = make(chan error, 1)
	)

	_, err := c.call(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !c.state.Active() {
			return ErrNotStarted
		}

		if c.state == walk.StateFallSuspected {
			c.resolveSuspectedFall("manual SOS")
		}

		if address == "" {
			address = walk.ManualAlertAddress
		}

		alert, buildErr = c.newAlert(false, address)
		c.trackAlert(alert, buildErr)

		if buildErr == nil {
			c.dispatchAsync(alert, result)
		}

		return nil
	})
	if err != nil {
		return walk.AlertRecord{}, err
	}

	if buildErr != nil {
		return alert, buildErr
	}

	select {
	case err := <-result:
		return alert, err
	case <-ctx.Done():
		return alert, ctx.Err()
	case <-c.done:
		return alert, ErrControllerClosed
	}
}

// FeedMotion queues one accelerometer sample. It never blocks. Samples with
// non-finite axes are rejected with walk.ErrInvalidSample.
func (c *Controller) FeedMotion(sample walk.MotionSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	if !c.inbox.post(func() { c.onMotion(sample) }) {
		return ErrControllerClosed
	}

	return nil
}

// UpdatePosition queues a position fix. It never blocks.
func (c *Controller) UpdatePosition(p walk.PositionSample) error {
	if !c.inbox.post(func() { c.onPosition(p) }) {
		return ErrControllerClosed
	}

	return nil
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() *walk.Snapshot {
	return c.current.Load().Clone()
}
