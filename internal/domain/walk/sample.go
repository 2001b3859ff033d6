package walk

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// StandardGravity is the magnitude of a resting accelerometer, in m/s².
const StandardGravity = 9.80665

// MotionSample is one triaxial accelerometer reading in m/s².
type MotionSample struct {
	X, Y, Z   float64
	Timestamp time.Time
}

// PositionSample is one fix reported by the location provider.
type PositionSample struct {
	// Latitude in decimal degrees.
	Latitude float64
	// Longitude in decimal degrees.
	Longitude float64
	// Accuracy is the estimated horizontal accuracy radius in meters.
	Accuracy float64
	// Timestamp is when the fix was taken.
	Timestamp time.Time
}

// Clone returns a copy of the position, or nil for a nil receiver.
func (p *PositionSample) Clone() *PositionSample {
	if p == nil {
		return nil
	}

	cloned := *p

	return &cloned
}

// ErrInvalidSample is returned for readings that are not finite numbers.
var ErrInvalidSample = errors.New("invalid motion sample")

// Validate rejects NaN and infinite axes. One such reading would poison the
// smoothed delta of the fall detector until the next reset.
func (s *MotionSample) Validate() error {
	if !finite(s.X) || !finite(s.Y) || !finite(s.Z) {
		return fmt.Errorf("%w: (%v, %v, %v)", ErrInvalidSample, s.X, s.Y, s.Z)
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ErrInvalidPosition is returned for coordinates outside the WGS 84 range.
var ErrInvalidPosition = errors.New("invalid position")

// Validate checks the coordinate ranges and the accuracy sign.
func (p *PositionSample) Validate() error {
	switch {
	case math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90:
		return fmt.Errorf("%w: latitude %v", ErrInvalidPosition, p.Latitude)
	case math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180:
		return fmt.Errorf("%w: longitude %v", ErrInvalidPosition, p.Longitude)
	case !finite(p.Accuracy) || p.Accuracy < 0:
		return fmt.Errorf("%w: accuracy %v", ErrInvalidPosition, p.Accuracy)
	}

	return nil
}
