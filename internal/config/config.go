package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/safe-walk/internal/logger"
)

// Config holds the settings shared by the Safe-Walk binaries.
type Config struct {
	// ServerAddress is the gRPC address of the session server.
	ServerAddress string `yaml:"server_addr"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level"`
	// Session holds the state machine timings.
	Session Session `yaml:"session"`
	// Detector holds the fall detector thresholds.
	Detector Detector `yaml:"detector"`
	// Sensor describes the accelerometer device.
	Sensor Sensor `yaml:"sensor"`
	// Journal configures durable alert storage.
	Journal Journal `yaml:"journal"`
	// MQTT configures alert publishing.
	MQTT MQTT `yaml:"mqtt"`
}

// Session holds the state machine timings.
type Session struct {
	GracePeriod     time.Duration `yaml:"grace_period"`
	Countdown       time.Duration `yaml:"countdown"`
	ElapsedInterval time.Duration `yaml:"elapsed_interval"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`
}

// Detector holds the fall detector thresholds in m/s².
type Detector struct {
	FallThreshold     float64 `yaml:"fall_threshold"`
	ImpactThreshold   float64 `yaml:"impact_threshold"`
	Smoothing         float64 `yaml:"smoothing"`
	FreeFallThreshold float64 `yaml:"free_fall_threshold"`
}

// Sensor describes the accelerometer device. An empty port means samples
// only arrive through the API.
type Sensor struct {
	SerialPort string `yaml:"serial_port,omitempty"`
	BaudRate   int    `yaml:"baud_rate"`
	// LogLevel overrides the level of motion source logs when set.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Journal configures durable alert storage. Both stores are optional.
type Journal struct {
	SQLitePath string `yaml:"sqlite_path,omitempty"`
	FilePath   string `yaml:"file_path,omitempty"`
}

// MQTT configures alert publishing. An empty broker disables it.
type MQTT struct {
	BrokerAddress string `yaml:"broker_addr,omitempty"`
	Topic         string `yaml:"topic"`
	ClientID      string `yaml:"client_id"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "safe-walk-settings.yaml"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultGracePeriod is the delay before fall detection is armed.
	DefaultGracePeriod = 3 * time.Second

	// DefaultCountdown is the escalation countdown length.
	DefaultCountdown = 30 * time.Second

	// DefaultElapsedInterval is the elapsed-time tick period.
	DefaultElapsedInterval = time.Second

	// DefaultDispatchTimeout bounds a single alert dispatch.
	DefaultDispatchTimeout = 10 * time.Second

	// DefaultFallThreshold triggers on the smoothed magnitude change.
	DefaultFallThreshold = 2.0

	// DefaultImpactThreshold triggers on the raw magnitude.
	DefaultImpactThreshold = 12.0

	// DefaultSmoothing is the decay of the delta accumulator.
	DefaultSmoothing = 0.9

	// DefaultFreeFallThreshold marks readings logged as potential free fall.
	DefaultFreeFallThreshold = 3.0

	// DefaultBaudRate is the accelerometer serial speed.
	DefaultBaudRate = 115200

	// DefaultMQTTTopic is where alerts are published.
	DefaultMQTTTopic = "safewalk/alerts"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errInvalidLogLevel is returned for unknown level names.
	errInvalidLogLevel = errors.New("invalid log level")
	// errInvalidSmoothing is returned for a decay outside (0, 1).
	errInvalidSmoothing = errors.New("detector smoothing must be between 0 and 1")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting
// and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, settings.LogLevel)
	}

	settings.Session.applyDefaults()

	if err := settings.Detector.validate(); err != nil {
		return err
	}

	if settings.Sensor.BaudRate <= 0 {
		settings.Sensor.BaudRate = DefaultBaudRate
	}

	if level := settings.Sensor.LogLevel; level != "" {
		if _, ok := logger.ParseLogLevel(level); !ok {
			return fmt.Errorf("%w: sensor %q", errInvalidLogLevel, level)
		}
	}

	return settings.MQTT.validate()
}

func (s *Session) applyDefaults() {
	if s.GracePeriod <= 0 {
		s.GracePeriod = DefaultGracePeriod
	}

	if s.Countdown <= 0 {
		s.Countdown = DefaultCountdown
	}

	if s.ElapsedInterval <= 0 {
		s.ElapsedInterval = DefaultElapsedInterval
	}

	if s.DispatchTimeout <= 0 {
		s.DispatchTimeout = DefaultDispatchTimeout
	}
}

func (d *Detector) validate() error {
	if d.FallThreshold <= 0 {
		d.FallThreshold = DefaultFallThreshold
	}

	if d.ImpactThreshold <= 0 {
		d.ImpactThreshold = DefaultImpactThreshold
	}

	if d.Smoothing == 0 {
		d.Smoothing = DefaultSmoothing
	}

	if d.Smoothing <= 0 || d.Smoothing >= 1 {
		return fmt.Errorf("%w: %v", errInvalidSmoothing, d.Smoothing)
	}

	if d.FreeFallThreshold <= 0 {
		d.FreeFallThreshold = DefaultFreeFallThreshold
	}

	return nil
}

func (m *MQTT) validate() error {
	if m.Topic == "" {
		m.Topic = DefaultMQTTTopic
	}

	if m.ClientID == "" {
		m.ClientID = "safewalk"

		if hostname, err := os.Hostname(); err == nil && hostname != "" {
			m.ClientID += "-" + hostname
		}
	}

	if m.BrokerAddress == "" {
		return nil
	}

	if _, _, err := net.SplitHostPort(m.BrokerAddress); err != nil {
		return fmt.Errorf("invalid mqtt broker address: %w", err)
	}

	return nil
}
