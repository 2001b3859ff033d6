package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.bug.st/serial"

	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/logger"
)

// DefaultBaudRate is used when no baud rate is configured.
const DefaultBaudRate = 115200

var errPortRequired = errors.New("serial port path must be provided")

// SerialSource reads the line protocol from an accelerometer on a serial port.
type SerialSource struct {
	path string
	mode *serial.Mode
	open func(path string, mode *serial.Mode) (serial.Port, error)
}

// NewSerialSource prepares a source for the device at path.
func NewSerialSource(path string, baudRate int) *SerialSource {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	return &SerialSource{
		path: path,
		mode: &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		open: serial.Open,
	}
}

// Stream opens the port and forwards samples until ctx ends. A port that
// cannot be opened reports ErrSensorUnavailable.
func (s *SerialSource) Stream(ctx context.Context, fn func(walk.MotionSample)) error {
	if s.path == "" {
		return fmt.Errorf("%w: %w", ErrSensorUnavailable, errPortRequired)
	}

	port, err := s.open(s.path, s.mode)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrSensorUnavailable, s.path, err)
	}

	logger.InfoKV(ctx, "Accelerometer port opened", "port", s.path, "baud_rate", s.mode.BaudRate)

	var (
		closeOnce sync.Once
		closePort = func() {
			closeOnce.Do(func() {
				_ = port.Close()
			})
		}
		done = make(chan struct{})
	)

	defer close(done)
	defer closePort()

	go func() {
		select {
		case <-ctx.Done():
			closePort()
		case <-done:
		}
	}()

	err = NewReaderSource(port).Stream(ctx, fn)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrSensorUnavailable, err)
	}

	return nil
}
