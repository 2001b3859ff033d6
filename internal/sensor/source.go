package sensor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/logger"
)

var (
	// ErrSensorUnavailable is wrapped by every error that means the device
	// cannot deliver samples at all.
	ErrSensorUnavailable = errors.New("accelerometer unavailable")

	errMalformedLine = errors.New("malformed sample line")
)

// Source streams motion samples to fn until the context ends or the input
// is exhausted. fn is called from a single goroutine.
type Source interface {
	Stream(ctx context.Context, fn func(walk.MotionSample)) error
}

// ReaderSource reads the line protocol from an io.Reader.
type ReaderSource struct {
	r       io.Reader
	now     func() time.Time
	skipped atomic.Int64
}

// NewReaderSource creates a source over r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{
		r:   r,
		now: time.Now,
	}
}

// Skipped returns how many malformed lines were dropped.
func (s *ReaderSource) Skipped() int64 {
	return s.skipped.Load()
}

// Stream parses lines until EOF. Malformed lines are skipped and counted.
func (s *ReaderSource) Stream(ctx context.Context, fn func(walk.MotionSample)) error {
	scanner := bufio.NewScanner(s.r)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sample, err := ParseLine(line, s.now)
		if err != nil {
			s.skipped.Add(1)
			logger.DebugKV(ctx, "Skipping sample line", "line", line, "error", err)

			continue
		}

		fn(sample)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read samples: %w", err)
	}

	return nil
}

// ParseLine decodes a single "x,y,z" or "unix_ms,x,y,z" line. Lines without
// a timestamp are stamped with now().
func ParseLine(line string, now func() time.Time) (walk.MotionSample, error) {
	parts := strings.Split(line, ",")

	var sample walk.MotionSample

	switch len(parts) {
	case 3:
		sample.Timestamp = now()
	case 4:
		ms, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return sample, fmt.Errorf("%w: timestamp: %w", errMalformedLine, err)
		}

		sample.Timestamp = time.UnixMilli(ms)
		parts = parts[1:]
	default:
		return sample, fmt.Errorf("%w: want 3 or 4 fields, got %d", errMalformedLine, len(parts))
	}

	values := make([]float64, 0, len(parts))

	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return sample, fmt.Errorf("%w: %w", errMalformedLine, err)
		}

		values = append(values, v)
	}

	sample.X, sample.Y, sample.Z = values[0], values[1], values[2]

	if err := sample.Validate(); err != nil {
		return sample, fmt.Errorf("%w: %w", errMalformedLine, err)
	}

	return sample, nil
}

// FormatLine renders a sample in the timestamped line protocol.
func FormatLine(sample walk.MotionSample) string {
	return fmt.Sprintf("%d,%s,%s,%s",
		sample.Timestamp.UnixMilli(),
		strconv.FormatFloat(sample.X, 'f', -1, 64),
		strconv.FormatFloat(sample.Y, 'f', -1, 64),
		strconv.FormatFloat(sample.Z, 'f', -1, 64),
	)
}
