package server

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/oshokin/safe-walk/internal/config"
	"github.com/oshokin/safe-walk/internal/dispatch"
	"github.com/oshokin/safe-walk/internal/logger"
	"github.com/oshokin/safe-walk/internal/repository/journal"
	"github.com/oshokin/safe-walk/internal/sensor"
	"github.com/oshokin/safe-walk/internal/session"
)

// stack holds the collaborators wired around the session controller.
type stack struct {
	// sink fans alerts out to every configured destination.
	sink *dispatch.MultiSink
	// options carries the position recorder and motion source.
	options []session.Option
	// names lists the configured sinks for the startup log.
	names []string
	// closers release journals and broker connections.
	closers []io.Closer
}

// buildStack opens every destination named in settings. The log sink is
// always present. An unreachable MQTT broker is logged and skipped so the
// device keeps journaling alerts while offline.
func buildStack(ctx context.Context, settings *config.Config) (*stack, error) {
	s := new(stack)

	sinks := []dispatch.Sink{dispatch.LogSink{}}
	s.names = append(s.names, "log")

	if path := settings.Journal.SQLitePath; path != "" {
		repo, err := journal.OpenSQLite(ctx, path)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("open sqlite journal: %w", err), s.Close())
		}

		s.closers = append(s.closers, repo)
		sinks = append(sinks, dispatch.NewRepositorySink(repo))
		s.options = append(s.options, session.WithPositionRecorder(repo))
		s.names = append(s.names, "sqlite")
	}

	if path := settings.Journal.FilePath; path != "" {
		sinks = append(sinks, dispatch.NewRepositorySink(journal.NewFileRepository(path)))
		s.names = append(s.names, "file")
	}

	if address := settings.MQTT.BrokerAddress; address != "" {
		mqttSink, err := dispatch.DialMQTT(ctx, dispatch.MQTTConfig{
			BrokerAddress: address,
			ClientID:      settings.MQTT.ClientID,
			Topic:         settings.MQTT.Topic,
		})
		if err != nil {
			logger.WarnKV(ctx, "MQTT broker unavailable, alerts will not be published",
				"broker_addr", address,
				"error", err,
			)
		} else {
			s.closers = append(s.closers, mqttSink)
			sinks = append(sinks, mqttSink)
			s.names = append(s.names, "mqtt")
		}
	}

	if port := settings.Sensor.SerialPort; port != "" {
		s.options = append(s.options, session.WithSource(sensor.NewSerialSource(port, settings.Sensor.BaudRate)))
	}

	if level, ok := logger.ParseLogLevel(settings.Sensor.LogLevel); ok {
		s.options = append(s.options, session.WithSourceLogLevel(level))
	}

	s.sink = dispatch.NewMultiSink(sinks...)

	return s, nil
}

// Close releases every opened resource.
func (s *stack) Close() error {
	var err error

	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i].Close())
	}

	s.closers = nil

	return err
}
