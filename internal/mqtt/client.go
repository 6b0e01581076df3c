package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"govee-gateway/internal/config"
	"govee-gateway/internal/govee"
	"govee-gateway/internal/report"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

type Client struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	throttleMu    sync.Mutex
	lastPublished map[string]time.Time
	// statusHasData holds the has_data flag of the last status published per topic.
	statusHasData map[string]bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

type Telemetry struct {
	Device      string    `json:"device"`
	Address     string    `json:"address,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature_c"`
	Humidity    int       `json:"humidity_pct"`
	Battery     int       `json:"battery_pct"`
	RSSI        int       `json:"rssi"`
}

// DeviceStatus is the retained last-seen state of one sensor.
type DeviceStatus struct {
	Device        string    `json:"device"`
	LastSeen      time.Time `json:"last_seen"`
	RSSI          int       `json:"rssi"`
	PayloadLength int       `json:"payload_length"`
	HasData       bool      `json:"has_data"`
}

func NewClient(cfg config.Config, logger *slog.Logger) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		logger:        logger,
		lastPublished: make(map[string]time.Time),
		statusHasData: make(map[string]bool),
		stopCh:        make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Broker flips the gateway to offline if we vanish.
	opts.SetWill(c.gatewayTopic(), "offline", 1, true)

	opts.SetOnConnectHandler(func(cl mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		// Handlers must not block on tokens.
		cl.Publish(c.gatewayTopic(), 1, true, "online")
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// Connect establishes connection to the MQTT broker.
// This function waits for the initial connection, and respects ctx and Disconnect().
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry(true) paho keeps retrying internally until it succeeds.
	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// Report publishes the device status for every accepted advertisement and
// telemetry for readings, each at most once per MQTT_PUBLISH_INTERVAL per device.
// A reading always refreshes a retained status that still says has_data=false.
func (c *Client) Report(_ context.Context, r report.Report) error {
	device := topicSegment(r.Device())
	if device == "" {
		return nil
	}
	now := r.SeenAt
	if now.IsZero() {
		now = time.Now()
	}

	reading, hasData := r.Outcome.(govee.SensorReading)
	statusTopic := c.deviceTopic(device, "status")
	if c.due(statusTopic, now) || (hasData && !c.statusHadData(statusTopic)) {
		status := DeviceStatus{
			Device:        r.Device(),
			LastSeen:      now,
			RSSI:          r.RSSI,
			PayloadLength: len(r.Payload),
			HasData:       hasData,
		}
		if rej, ok := r.Outcome.(govee.Rejection); ok {
			status.PayloadLength = rej.PayloadLength
		}
		if err := c.PublishStatus(status); err != nil {
			return err
		}
		c.markPublished(statusTopic, now)
		c.throttleMu.Lock()
		c.statusHasData[statusTopic] = hasData
		c.throttleMu.Unlock()
	}

	if !hasData {
		return nil
	}
	telemetryTopic := c.deviceTopic(device, "telemetry")
	if !c.due(telemetryTopic, now) {
		return nil
	}
	telemetry := Telemetry{
		Device:      reading.Name,
		Address:     r.Address,
		Timestamp:   now,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Battery:     reading.Battery,
		RSSI:        reading.RSSI,
	}
	if err := c.PublishTelemetry(telemetry); err != nil {
		return err
	}
	c.markPublished(telemetryTopic, now)
	return nil
}

// PublishTelemetry publishes one reading to <prefix>/<device>/telemetry.
func (c *Client) PublishTelemetry(telemetry Telemetry) error {
	if telemetry.Timestamp.IsZero() {
		telemetry.Timestamp = time.Now()
	}
	data, err := json.Marshal(telemetry)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	topic := c.deviceTopic(topicSegment(telemetry.Device), "telemetry")
	if err := c.publish(topic, false, data); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	c.logger.Debug("published telemetry", "topic", topic, "device", telemetry.Device)
	return nil
}

// PublishStatus publishes the retained device status.
func (c *Client) PublishStatus(status DeviceStatus) error {
	if status.LastSeen.IsZero() {
		status.LastSeen = time.Now()
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	topic := c.deviceTopic(topicSegment(status.Device), "status")
	if err := c.publish(topic, true, data); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	c.logger.Debug("published device status",
		"topic", topic,
		"device", status.Device,
		"last_seen", status.LastSeen,
		"has_data", status.HasData,
	)
	return nil
}

func (c *Client) publish(topic string, retained bool, payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		c.logger.Error("mqtt publish failed", "topic", topic, "error", err)
		return err
	}
	return nil
}

func (c *Client) due(key string, now time.Time) bool {
	if c.cfg.MQTTPublishInterval <= 0 {
		return true
	}
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()
	last, ok := c.lastPublished[key]
	return !ok || now.Sub(last) >= c.cfg.MQTTPublishInterval
}

func (c *Client) statusHadData(topic string) bool {
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()
	return c.statusHasData[topic]
}

func (c *Client) markPublished(key string, now time.Time) {
	c.throttleMu.Lock()
	c.lastPublished[key] = now
	c.throttleMu.Unlock()
}

func (c *Client) deviceTopic(device, leaf string) string {
	return c.cfg.MQTTTopicPrefix + "/" + device + "/" + leaf
}

func (c *Client) gatewayTopic() string {
	return c.cfg.MQTTTopicPrefix + "/gateway/" + topicSegment(c.cfg.MQTTClientID) + "/status"
}

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// topicSegment makes an advertised name safe to use as one topic level.
func topicSegment(s string) string {
	return topicReplacer.Replace(s)
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent and safe to call multiple times.
// After Disconnect, Connect() will return "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		if c.IsConnected() {
			t := c.client.Publish(c.gatewayTopic(), 1, true, "offline")
			t.WaitTimeout(time.Second)
		}
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
