package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/safe-walk/internal/countdown"
	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/fall"
	"github.com/oshokin/safe-walk/internal/identity"
	"github.com/oshokin/safe-walk/internal/logger"
	"github.com/oshokin/safe-walk/internal/sensor"
)

// transition moves to state and publishes the change.
func (c *Controller) transition(to walk.State, reason string) {
	from := c.state
	c.state = to

	logger.InfoKV(c.sessionCtx, "Session state changed",
		"from", from.String(),
		"to", to.String(),
		"reason", reason,
	)

	c.publish()
}

func (c *Controller) start() error {
	if c.state.Active() {
		return ErrAlreadyStarted
	}

	c.sessionID = c.newID()
	c.sessionCtx = logger.WithKV(c.baseCtx, "session_id", c.sessionID)
	c.startedAt = time.Now()
	c.armedAt = time.Time{}
	c.elapsed = 0
	c.lastAlert = nil
	c.remaining = nil

	c.processor.Reset()
	c.locations.Clear()

	c.ticker = time.NewTicker(c.cfg.ElapsedInterval)

	sessionID := c.sessionID
	c.grace = time.AfterFunc(c.cfg.GracePeriod, func() {
		c.inbox.post(func() { c.onGraceElapsed(sessionID) })
	})

	c.startSensor()
	c.transition(walk.StateGracePeriod, "start requested")

	return nil
}

// teardown returns to not_started from any active state. No timer, tick or
// countdown callback of the old session has any effect afterwards.
func (c *Controller) teardown(reason string) {
	c.cancelEscalation()

	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}

	if c.grace != nil {
		c.grace.Stop()
		c.grace = nil
	}

	if c.stopSensor != nil {
		c.stopSensor()
		c.stopSensor = nil
	}

	c.processor.Reset()
	c.locations.Clear()

	c.elapsed = 0
	c.sessionID = ""
	c.startedAt = time.Time{}
	c.armedAt = time.Time{}

	c.transition(walk.StateNotStarted, reason)
	c.sessionCtx = c.baseCtx
}

func (c *Controller) onElapsedTick() {
	if c.ticker == nil {
		return
	}

	c.elapsed += c.cfg.ElapsedInterval
	c.publish()
}

func (c *Controller) onGraceElapsed(sessionID string) {
	if sessionID != c.sessionID || c.state != walk.StateGracePeriod {
		return
	}

	c.grace = nil
	c.armedAt = time.Now()
	c.processor.Arm()
	c.transition(walk.StateMonitoring, "grace period elapsed")
}

func (c *Controller) onMotion(sample walk.MotionSample) {
	if !c.state.Active() {
		return
	}

	if err := sample.Validate(); err != nil {
		logger.WarnKV(c.sessionCtx, "Dropping motion sample", "error", err)

		return
	}

	reading, event := c.processor.OnSample(sample)
	if reading.FreeFall {
		logger.DebugKV(c.sessionCtx, "Potential free fall",
			"magnitude", reading.Magnitude,
		)
	}

	if event == nil || c.state != walk.StateMonitoring {
		return
	}

	c.suspectFall(event)
}

func (c *Controller) suspectFall(event *fall.Event) {
	logger.WarnKV(c.sessionCtx, "Fall suspected",
		"cause", string(event.Cause),
		"magnitude", event.Magnitude,
		"smoothed_delta", event.SmoothedDelta,
	)

	var handle *countdown.Handle

	handle, err := c.timer.Start(c.cfg.Countdown,
		func(remaining time.Duration) {
			c.inbox.post(func() { c.onCountdownTick(handle, remaining) })
		},
		func() {
			c.inbox.post(func() { c.onCountdownExpired(handle) })
		},
	)
	if err != nil {
		logger.ErrorKV(c.sessionCtx, "Escalation countdown not started", "error", err)
		c.processor.Rearm()

		return
	}

	c.escalation = handle
	c.remaining = &walk.CountdownState{
		Remaining: c.cfg.Countdown,
		Total:     c.cfg.Countdown,
	}

	c.transition(walk.StateFallSuspected, "fall detected")
}

func (c *Controller) onCountdownTick(h *countdown.Handle, remaining time.Duration) {
	if h != c.escalation || c.remaining == nil {
		return
	}

	c.remaining.Remaining = remaining
	c.publish()
}

// onCountdownExpired escalates and returns to monitoring right away.
func (c *Controller) onCountdownExpired(h *countdown.Handle) {
	if h != c.escalation {
		return
	}

	c.escalation = nil
	c.remaining = nil

	c.transition(walk.StateEscalated, "countdown expired")

	alert, err := c.newAlert(true, walk.AutomaticAlertAddress)
	c.trackAlert(alert, err)

	if err == nil {
		c.dispatchAsync(alert, nil)
	}

	c.processor.Rearm()
	c.transition(walk.StateMonitoring, "escalation raised")
}

// onPosition caches fixes only while a session runs, so a fix arriving after
// stop never reappears in the idle snapshot.
func (c *Controller) onPosition(p walk.PositionSample) {
	if !c.state.Active() {
		return
	}

	c.locations.Update(p)

	if c.positions != nil {
		c.recordPosition(c.sessionID, p)
	}

	c.publish()
}

func (c *Controller) recordPosition(sessionID string, p walk.PositionSample) {
	ctx := c.sessionCtx

	c.workers.Add(1)

	go func() {
		defer c.workers.Done()

		ctx, cancel := context.WithTimeout(ctx, c.cfg.DispatchTimeout)
		defer cancel()

		if err := c.positions.RecordPosition(ctx, sessionID, p); err != nil {
			logger.WarnKV(ctx, "Position not recorded", "error", err)
		}
	}()
}

// resolveSuspectedFall cancels the escalation and resumes monitoring.
func (c *Controller) resolveSuspectedFall(reason string) {
	c.cancelEscalation()
	c.processor.Rearm()
	c.transition(walk.StateMonitoring, reason)
}

func (c *Controller) cancelEscalation() {
	if c.escalation == nil {
		return
	}

	c.timer.Cancel(c.escalation)
	c.escalation = nil
	c.remaining = nil
}

// newAlert builds an alert from the cached position. Without a position the
// coordinates are (0, 0) and LocationKnown is false.
func (c *Controller) newAlert(automatic bool, address string) (walk.AlertRecord, error) {
	alert := walk.AlertRecord{
		ID:          c.newID(),
		SessionID:   c.sessionID,
		IsAutomatic: automatic,
		Address:     address,
		CreatedAt:   time.Now(),
	}

	p, err := c.locations.Require()
	if err != nil {
		logger.WarnKV(c.sessionCtx, "Alert raised without position", "alert_id", alert.ID, "error", err)
	} else {
		alert.Latitude = p.Latitude
		alert.Longitude = p.Longitude
		alert.LocationKnown = true
	}

	actor, ok := c.users.Current()
	if !ok {
		return alert, fmt.Errorf("%w: %w", ErrDispatchFailed, identity.ErrNoActiveUser)
	}

	alert.Reporter = actor

	return alert, nil
}

// trackAlert records alert as the latest outcome, pending unless err is set.
func (c *Controller) trackAlert(alert walk.AlertRecord, err error) {
	outcome := &walk.AlertOutcome{
		Record:  alert.Clone(),
		Pending: err == nil,
	}

	if err != nil {
		outcome.Err = err.Error()

		logger.ErrorKV(c.sessionCtx, "Alert not dispatched",
			"alert_id", alert.ID,
			"kind", alert.Kind(),
			"error", err,
		)
	}

	c.lastAlert = outcome
	c.publish()
}

// dispatchAsync hands alert to the sink without blocking the session. The
// outcome is also sent to result when it is not nil; result must be buffered.
func (c *Controller) dispatchAsync(alert walk.AlertRecord, result chan<- error) {
	ctx := c.sessionCtx

	c.workers.Add(1)

	go func() {
		defer c.workers.Done()

		dispatchCtx, cancel := context.WithTimeout(ctx, c.cfg.DispatchTimeout)
		defer cancel()

		err := c.sink.Dispatch(dispatchCtx, alert)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrDispatchFailed, err)
		}

		c.inbox.post(func() { c.onDispatched(alert, err) })

		if result != nil {
			result <- err
		}
	}()
}

func (c *Controller) onDispatched(alert walk.AlertRecord, err error) {
	if err != nil {
		logger.ErrorKV(c.sessionCtx, "Alert dispatch failed",
			"alert_id", alert.ID,
			"kind", alert.Kind(),
			"error", err,
		)
	} else {
		logger.InfoKV(c.sessionCtx, "Alert dispatched",
			"alert_id", alert.ID,
			"kind", alert.Kind(),
		)
	}

	if c.lastAlert == nil || c.lastAlert.Record == nil || c.lastAlert.Record.ID != alert.ID {
		return
	}

	c.lastAlert.Pending = false
	if err != nil {
		c.lastAlert.Err = err.Error()
	}

	c.publish()
}

func (c *Controller) startSensor() {
	if c.source == nil {
		return
	}

	ctx, cancel := context.WithCancel(c.sessionCtx)
	c.stopSensor = cancel

	if c.sourceLevel != nil {
		ctx = logger.WithLevelOverride(ctx, *c.sourceLevel)
	}

	sessionID := c.sessionID

	c.workers.Add(1)

	go func() {
		defer c.workers.Done()

		err := c.source.Stream(ctx, func(sample walk.MotionSample) {
			c.inbox.post(func() {
				if c.sessionID == sessionID {
					c.onMotion(sample)
				}
			})
		})

		c.inbox.post(func() { c.onSensorStopped(sessionID, err) })
	}()
}

func (c *Controller) onSensorStopped(sessionID string, err error) {
	if sessionID != c.sessionID {
		return
	}

	switch {
	case err == nil:
		logger.Info(c.sessionCtx, "Motion source finished")
	case errors.Is(err, context.Canceled):
	case errors.Is(err, sensor.ErrSensorUnavailable):
		logger.WarnKV(c.sessionCtx, "Fall detection unavailable for this session", "error", err)
		c.processor.MarkUnavailable()
		c.publish()
	default:
		logger.ErrorKV(c.sessionCtx, "Motion source failed", "error", err)
	}
}
