package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"govee-gateway/internal/config"
	"govee-gateway/internal/govee"
	"govee-gateway/internal/report"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

// fakeBroker records publishes. Methods not overridden panic via the nil
// embedded interface.
type fakeBroker struct {
	mqtt.Client

	mu        sync.Mutex
	msgs      []published
	connected bool
	err       error
}

func (f *fakeBroker) IsConnected() bool { return f.connected }

func (f *fakeBroker) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	f.msgs = append(f.msgs, published{topic: topic, retained: retained, payload: b})
	return fakeToken{err: f.err}
}

func (f *fakeBroker) Disconnect(uint) { f.connected = false }

func newTestClient(interval time.Duration) (*Client, *fakeBroker) {
	broker := &fakeBroker{connected: true}
	c := &Client{
		client: broker,
		cfg: config.Config{
			MQTTTopicPrefix:     "govee",
			MQTTClientID:        "gw",
			MQTTPublishInterval: interval,
		},
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		connected:     true,
		lastPublished: make(map[string]time.Time),
		statusHasData: make(map[string]bool),
		stopCh:        make(chan struct{}),
	}
	return c, broker
}

func readingReport(at time.Time) report.Report {
	return report.Report{
		Outcome: govee.SensorReading{Name: "GVH5075_CBD1", RSSI: -71, Temperature: 26.6438, Humidity: 43, Battery: 100},
		SeenAt:  at,
		Address: "a4:c1:38:cb:cd:d1",
		RSSI:    -71,
		Payload: make([]byte, 31),
	}
}

func TestReport_Reading(t *testing.T) {
	c, broker := newTestClient(0)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := c.Report(context.Background(), readingReport(at)); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(broker.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(broker.msgs))
	}

	status := broker.msgs[0]
	if status.topic != "govee/GVH5075_CBD1/status" || !status.retained {
		t.Errorf("status published to %q retained=%v", status.topic, status.retained)
	}
	var ds DeviceStatus
	if err := json.Unmarshal(status.payload, &ds); err != nil {
		t.Fatal(err)
	}
	if !ds.HasData || ds.PayloadLength != 31 || ds.RSSI != -71 || !ds.LastSeen.Equal(at) {
		t.Errorf("status = %+v", ds)
	}

	tel := broker.msgs[1]
	if tel.topic != "govee/GVH5075_CBD1/telemetry" || tel.retained {
		t.Errorf("telemetry published to %q retained=%v", tel.topic, tel.retained)
	}
	var got Telemetry
	if err := json.Unmarshal(tel.payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.Temperature != 26.6438 || got.Humidity != 43 || got.Battery != 100 || got.Address != "a4:c1:38:cb:cd:d1" {
		t.Errorf("telemetry = %+v", got)
	}
}

func TestReport_RejectionPublishesStatusOnly(t *testing.T) {
	c, broker := newTestClient(0)
	r := report.Report{Outcome: govee.Rejection{Name: "GVH5075_CBD1", PayloadLength: 20}, RSSI: -72}

	if err := c.Report(context.Background(), r); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(broker.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(broker.msgs))
	}
	var ds DeviceStatus
	if err := json.Unmarshal(broker.msgs[0].payload, &ds); err != nil {
		t.Fatal(err)
	}
	if ds.HasData || ds.PayloadLength != 20 || ds.RSSI != -72 {
		t.Errorf("status = %+v", ds)
	}
}

func TestReport_ReadingRefreshesStatusWithoutData(t *testing.T) {
	c, broker := newTestClient(time.Minute)
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rejection := report.Report{Outcome: govee.Rejection{Name: "GVH5075_CBD1", PayloadLength: 20}, SeenAt: t0, RSSI: -72}
	if err := c.Report(context.Background(), rejection); err != nil {
		t.Fatalf("Report(rejection) error = %v", err)
	}
	if err := c.Report(context.Background(), readingReport(t0.Add(time.Second))); err != nil {
		t.Fatalf("Report(reading) error = %v", err)
	}
	if err := c.Report(context.Background(), readingReport(t0.Add(2*time.Second))); err != nil {
		t.Fatalf("Report(reading) error = %v", err)
	}

	// rejection status, reading status, telemetry; the third report is throttled
	if len(broker.msgs) != 3 {
		t.Fatalf("published %d messages, want 3", len(broker.msgs))
	}
	if broker.msgs[1].topic != "govee/GVH5075_CBD1/status" {
		t.Fatalf("second message on %q, want status", broker.msgs[1].topic)
	}
	var ds DeviceStatus
	if err := json.Unmarshal(broker.msgs[1].payload, &ds); err != nil {
		t.Fatal(err)
	}
	if !ds.HasData || ds.RSSI != -71 {
		t.Errorf("refreshed status = %+v, want has_data with reading RSSI", ds)
	}
	if broker.msgs[2].topic != "govee/GVH5075_CBD1/telemetry" {
		t.Errorf("third message on %q, want telemetry", broker.msgs[2].topic)
	}
}

func TestReport_Throttle(t *testing.T) {
	c, broker := newTestClient(time.Minute)
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, at := range []time.Time{t0, t0.Add(10 * time.Second), t0.Add(59 * time.Second)} {
		if err := c.Report(context.Background(), readingReport(at)); err != nil {
			t.Fatalf("Report() error = %v", err)
		}
	}
	if len(broker.msgs) != 2 {
		t.Fatalf("published %d messages inside one interval, want 2", len(broker.msgs))
	}

	if err := c.Report(context.Background(), readingReport(t0.Add(time.Minute))); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(broker.msgs) != 4 {
		t.Fatalf("published %d messages after the interval, want 4", len(broker.msgs))
	}
}

func TestReport_NotConnected(t *testing.T) {
	c, broker := newTestClient(time.Minute)
	broker.connected = false

	if err := c.Report(context.Background(), readingReport(time.Now())); err == nil {
		t.Fatal("Report() error = nil, want not connected")
	}
	broker.connected = true
	if err := c.Report(context.Background(), readingReport(time.Now())); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(broker.msgs) != 2 {
		t.Fatalf("failed publish was throttled: %d messages", len(broker.msgs))
	}
}

func TestReport_PublishError(t *testing.T) {
	c, broker := newTestClient(0)
	broker.err = errors.New("not authorized")

	if err := c.Report(context.Background(), readingReport(time.Now())); err == nil {
		t.Fatal("Report() error = nil, want publish error")
	}
}

func TestTopicSegment(t *testing.T) {
	tests := map[string]string{
		"GVH5075_CBD1": "GVH5075_CBD1",
		"GVH5075_a/b":  "GVH5075_a_b",
		"GVH5075_+#":   "GVH5075___",
	}
	for in, want := range tests {
		if got := topicSegment(in); got != want {
			t.Errorf("topicSegment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	c, broker := newTestClient(0)

	c.Disconnect()
	c.Disconnect()

	if c.IsConnected() {
		t.Fatal("IsConnected() = true after Disconnect")
	}
	if len(broker.msgs) != 1 || string(broker.msgs[0].payload) != "offline" || broker.msgs[0].topic != "govee/gateway/gw/status" {
		t.Fatalf("expected one offline message, got %+v", broker.msgs)
	}
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("Connect() after Disconnect error = nil, want client stopped")
	}
}
