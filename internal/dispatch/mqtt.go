package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/eclipse/paho.golang/paho"

	"github.com/oshokin/safe-walk/internal/domain/walk"
	pb "github.com/oshokin/safe-walk/internal/pb/v1"
)

const (
	// DefaultMQTTTopic is where alerts are published.
	DefaultMQTTTopic = "safewalk/alerts"
	// defaultKeepAlive is the MQTT keep-alive in seconds.
	defaultKeepAlive = 30
	// alertQoS asks the broker to acknowledge every alert.
	alertQoS = 1
	// alertContentType marks the payload format.
	alertContentType = "application/json"
)

var (
	errBrokerAddressRequired = errors.New("mqtt broker address must be provided")
	errConnectRejected       = errors.New("mqtt connection rejected")
)

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	// BrokerAddress is host:port of the broker.
	BrokerAddress string
	// ClientID identifies this device to the broker.
	ClientID string
	// Topic is the publish topic, DefaultMQTTTopic when empty.
	Topic string
}

// MQTTSink publishes alerts as protobuf JSON to an MQTT broker.
type MQTTSink struct {
	client *paho.Client
	topic  string
}

// DialMQTT connects to the broker and returns a ready sink.
func DialMQTT(ctx context.Context, cfg MQTTConfig) (*MQTTSink, error) {
	if cfg.BrokerAddress == "" {
		return nil, errBrokerAddressRequired
	}

	if cfg.Topic == "" {
		cfg.Topic = DefaultMQTTTopic
	}

	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", cfg.BrokerAddress)
	if err != nil {
		return nil, fmt.Errorf("dial mqtt broker: %w", err)
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: cfg.ClientID,
		Conn:     conn,
	})

	ack, err := client.Connect(ctx, &paho.Connect{
		ClientID:   cfg.ClientID,
		KeepAlive:  defaultKeepAlive,
		CleanStart: true,
	})
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("connect mqtt broker: %w", err)
	}

	if ack != nil && ack.ReasonCode != 0 {
		_ = conn.Close()

		return nil, fmt.Errorf("%w: reason code %d", errConnectRejected, ack.ReasonCode)
	}

	return &MQTTSink{
		client: client,
		topic:  cfg.Topic,
	}, nil
}

// Topic returns the publish topic.
func (s *MQTTSink) Topic() string {
	return s.topic
}

// Dispatch publishes the alert with QoS 1 and waits for the broker ack.
func (s *MQTTSink) Dispatch(ctx context.Context, alert walk.AlertRecord) error {
	payload, err := pb.MarshalAlertJSON(&alert)
	if err != nil {
		return err
	}

	_, err = s.client.Publish(ctx, &paho.Publish{
		QoS:     alertQoS,
		Topic:   s.topic,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType: alertContentType,
		},
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	return s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
