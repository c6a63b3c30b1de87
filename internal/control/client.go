package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/config"
)

// Connect establishes a connection to the MQTT broker in cfg. The client
// reconnects automatically after the first successful connection, and
// onReconnect (if non-nil) runs after every reconnect. Clean sessions drop
// subscriptions, so onReconnect is where they are restored.
func Connect(ctx context.Context, cfg config.MQTTConfig, onReconnect func()) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = newOnConnect(cfg, onReconnect)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("control: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", cfg.Broker,
		)
	}

	client := mqtt.NewClient(opts)

	slog.Info("control: connecting to mqtt broker", "broker", cfg.Broker)

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, fmt.Errorf("control: mqtt connect: %w", ctx.Err())
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("control: mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("control: mqtt connection failed: %w", err)
	}

	return client, nil
}

// newOnConnect returns the connect handler. The first call is the initial
// connection; later calls are reconnects.
func newOnConnect(cfg config.MQTTConfig, onReconnect func()) mqtt.OnConnectHandler {
	var connected atomic.Bool
	return func(mqtt.Client) {
		reconnect := connected.Swap(true)
		slog.Info("control: mqtt connection established",
			"broker", cfg.Broker,
			"client_id", cfg.ClientID,
			"reconnect", reconnect,
		)
		if reconnect && onReconnect != nil {
			onReconnect()
		}
	}
}
