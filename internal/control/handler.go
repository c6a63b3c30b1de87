// Package control exposes the capture lifecycle over an MQTT control plane.
//
// Commands arrive as JSON on <prefix>/control; every command is answered with
// a JSON Response on <prefix>/status.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/config"
)

// Command names.
const (
	CmdStart     = "start"
	CmdStop      = "stop"
	CmdStatus    = "status"
	CmdConfigure = "configure"
)

// Command represents a control plane command
type Command struct {
	Command string `json:"command"`
	// Options is a CaptureOptions payload for start/configure. Empty means
	// "use the stored options" for start.
	Options json.RawMessage `json:"options,omitempty"`
}

// Response represents a command response
type Response struct {
	CommandAck string                 `json:"command_ack"`
	Status     string                 `json:"status"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// Callbacks connect commands to the capture manager.
type Callbacks struct {
	OnStart     func(options json.RawMessage) error
	OnStop      func() error
	OnStatus    func() map[string]interface{}
	OnConfigure func(options json.RawMessage) error
}

// Handler handles control plane commands
type Handler struct {
	cfg       config.MQTTConfig
	client    mqtt.Client
	callbacks Callbacks
	commands  chan Command

	started  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
}

// NewHandler creates a new control plane handler
func NewHandler(cfg config.MQTTConfig, client mqtt.Client, callbacks Callbacks) *Handler {
	return &Handler{
		cfg:       cfg,
		client:    client,
		callbacks: callbacks,
		commands:  make(chan Command, 10),
		done:      make(chan struct{}),
	}
}

// ControlTopic is the topic commands are received on.
func (h *Handler) ControlTopic() string {
	return topic(h.cfg.TopicPrefix, "control")
}

// StatusTopic is the topic responses are published to.
func (h *Handler) StatusTopic() string {
	return topic(h.cfg.TopicPrefix, "status")
}

func topic(prefix, leaf string) string {
	return strings.TrimRight(prefix, "/") + "/" + leaf
}

// Start subscribes to the control topic and processes commands until ctx is
// cancelled or Stop is called.
func (h *Handler) Start(ctx context.Context) error {
	if err := h.subscribe(); err != nil {
		return err
	}
	h.started.Store(true)

	go h.processCommands(ctx)

	slog.Info("control: handler started")
	return nil
}

// Resubscribe restores the control topic subscription after the client
// reconnects. A no-op before Start and after Stop.
func (h *Handler) Resubscribe() {
	if !h.started.Load() || h.stopped() {
		return
	}
	if err := h.subscribe(); err != nil {
		slog.Error("control: resubscribe failed", "error", err, "topic", h.ControlTopic())
	}
}

func (h *Handler) subscribe() error {
	topic := h.ControlTopic()
	qos := byte(h.cfg.QoS)

	slog.Info("control: subscribing to control plane", "topic", topic, "qos", qos)

	token := h.client.Subscribe(topic, qos, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control: subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control: subscription failed: %w", err)
	}
	return nil
}

// Stop unsubscribes and ends command processing. Idempotent. Messages
// delivered after Stop are dropped.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		if h.client != nil && h.client.IsConnected() {
			h.client.Unsubscribe(h.ControlTopic()).WaitTimeout(2 * time.Second)
		}
		slog.Info("control: handler stopped")
	})
}

func (h *Handler) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// messageHandler is called when a control message is received
func (h *Handler) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	if h.stopped() {
		slog.Debug("control: handler stopped, dropping message")
		return
	}

	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		slog.Error("control: failed to parse command", "error", err)
		h.sendResponse(Response{
			CommandAck: "unknown",
			Status:     "error",
			Error:      "invalid JSON",
		})
		return
	}

	slog.Info("control: command received", "command", cmd.Command)

	// commands is never closed.
	select {
	case h.commands <- cmd:
	default:
		slog.Warn("control: command queue full, dropping command", "command", cmd.Command)
	}
}

// processCommands runs commands one at a time, so start/stop requests are
// applied in arrival order.
func (h *Handler) processCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case cmd := <-h.commands:
			h.sendResponse(h.handleCommand(cmd))
		}
	}
}

// handleCommand executes a command and builds its response.
func (h *Handler) handleCommand(cmd Command) Response {
	resp := Response{CommandAck: cmd.Command}

	fail := func(err error) Response {
		resp.Status = "error"
		resp.Error = err.Error()
		return resp
	}

	switch cmd.Command {
	case CmdStart:
		if h.callbacks.OnStart == nil {
			return fail(fmt.Errorf("%s not implemented", cmd.Command))
		}
		if err := h.callbacks.OnStart(cmd.Options); err != nil {
			return fail(err)
		}
		resp.Status = "success"

	case CmdStop:
		if h.callbacks.OnStop == nil {
			return fail(fmt.Errorf("%s not implemented", cmd.Command))
		}
		if err := h.callbacks.OnStop(); err != nil {
			return fail(err)
		}
		resp.Status = "success"

	case CmdConfigure:
		if h.callbacks.OnConfigure == nil {
			return fail(fmt.Errorf("%s not implemented", cmd.Command))
		}
		if len(cmd.Options) == 0 {
			return fail(fmt.Errorf("missing 'options' payload"))
		}
		if err := h.callbacks.OnConfigure(cmd.Options); err != nil {
			return fail(err)
		}
		resp.Status = "success"

	case CmdStatus:
		resp.Status = "success"

	default:
		return fail(fmt.Errorf("unknown command: %s", cmd.Command))
	}

	// Every successful command reports the resulting state.
	if h.callbacks.OnStatus != nil {
		resp.Data = h.callbacks.OnStatus()
	}

	return resp
}

// sendResponse publishes a response to the status topic
func (h *Handler) sendResponse(resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("control: failed to marshal response", "error", err)
		return
	}

	token := h.client.Publish(h.StatusTopic(), byte(h.cfg.QoS), false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		slog.Error("control: response publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		slog.Error("control: failed to publish response", "error", err)
		return
	}

	slog.Debug("control: response sent", "command_ack", resp.CommandAck, "status", resp.Status)
}
