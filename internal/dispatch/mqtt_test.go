package dispatch

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/require"

	pb "github.com/oshokin/safe-walk/internal/pb/v1"
)

// startBroker runs an in-process MQTT broker on a free loopback port.
func startBroker(t *testing.T) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	address := lis.Addr().String()
	require.NoError(t, lis.Close())

	broker := mochi.New(nil)
	require.NoError(t, broker.AddHook(new(auth.AllowHook), nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "test",
		Address: address,
	})))
	require.NoError(t, broker.Serve())

	t.Cleanup(func() {
		_ = broker.Close()
	})

	return address
}

func subscribe(ctx context.Context, t *testing.T, address, topic string) <-chan *paho.Publish {
	t.Helper()

	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", address)
	require.NoError(t, err)

	received := make(chan *paho.Publish, 1)

	client := paho.NewClient(paho.ClientConfig{
		ClientID: "subscriber",
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				select {
				case received <- pr.Packet:
				default:
				}

				return true, nil
			},
		},
	})

	_, err = client.Connect(ctx, &paho.Connect{
		ClientID:   "subscriber",
		KeepAlive:  5,
		CleanStart: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Disconnect(&paho.Disconnect{})
	})

	_, err = client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 1}},
	})
	require.NoError(t, err)

	return received
}

func TestMQTTSink_PublishesAlert(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	address := startBroker(t)
	received := subscribe(ctx, t, address, DefaultMQTTTopic)

	sink, err := DialMQTT(ctx, MQTTConfig{
		BrokerAddress: address,
		ClientID:      "safewalk-test",
	})
	require.NoError(t, err)
	require.Equal(t, DefaultMQTTTopic, sink.Topic())

	t.Cleanup(func() {
		_ = sink.Close()
	})

	alert := sampleAlert()
	require.NoError(t, sink.Dispatch(ctx, alert))

	select {
	case msg := <-received:
		require.Equal(t, DefaultMQTTTopic, msg.Topic)
		require.Equal(t, alertContentType, msg.Properties.ContentType)

		decoded, err := pb.UnmarshalAlertJSON(msg.Payload)
		require.NoError(t, err)
		require.Equal(t, alert.ID, decoded.ID)
		require.True(t, decoded.IsAutomatic)
		require.InDelta(t, alert.Latitude, decoded.Latitude, 1e-9)
	case <-ctx.Done():
		t.Fatal("alert was not delivered to the subscriber")
	}
}

func TestDialMQTT_Errors(t *testing.T) {
	t.Parallel()

	_, err := DialMQTT(context.Background(), MQTTConfig{})
	require.ErrorIs(t, err, errBrokerAddressRequired)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	address := lis.Addr().String()
	require.NoError(t, lis.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = DialMQTT(ctx, MQTTConfig{BrokerAddress: address})
	require.Error(t, err)
}
