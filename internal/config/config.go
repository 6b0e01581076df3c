package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendHCI    = "hci"
	BackendTinyGo = "tinygo"
	BackendReplay = "replay"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	BLEBackend string
	BLEAdapter string
	ReplayFile string

	// ScanDuration is how long one scan window listens before pausing.
	ScanDuration time.Duration
	ScanPause    time.Duration
	// ScanInterval and ScanWindow are the LE scan timing parameters
	// (hci backend only). ScanWindow must not exceed ScanInterval.
	ScanInterval time.Duration
	ScanWindow   time.Duration
	ScanActive   bool

	MQTTEnabled         bool
	MQTTBroker          string
	MQTTPort            int
	MQTTClientID        string
	MQTTTopicPrefix     string
	MQTTPublishInterval time.Duration

	// SQLitePath enables reading history when non-empty.
	SQLitePath string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("BLE_BACKEND")))
	if backend == "" {
		backend = BackendHCI
	}
	switch backend {
	case BackendHCI, BackendTinyGo, BackendReplay:
	default:
		return Config{}, fmt.Errorf("invalid BLE_BACKEND %q (allowed: hci, tinygo, replay)", backend)
	}

	adapter := strings.TrimSpace(os.Getenv("BLE_ADAPTER"))
	if adapter == "" {
		adapter = "hci0"
	}

	replayFile := strings.TrimSpace(os.Getenv("REPLAY_FILE"))
	if backend == BackendReplay && replayFile == "" {
		return Config{}, fmt.Errorf("REPLAY_FILE is required when BLE_BACKEND=replay")
	}

	scanDuration, err := positiveDuration("SCAN_DURATION", "10s")
	if err != nil {
		return Config{}, err
	}
	scanPause, err := durationEnv("SCAN_PAUSE", "500ms")
	if err != nil {
		return Config{}, err
	}
	if scanPause < 0 {
		return Config{}, fmt.Errorf("SCAN_PAUSE must not be negative, got %v", scanPause)
	}
	scanInterval, err := positiveDuration("SCAN_INTERVAL", "100ms")
	if err != nil {
		return Config{}, err
	}
	scanWindow, err := positiveDuration("SCAN_WINDOW", "99ms")
	if err != nil {
		return Config{}, err
	}
	if scanWindow > scanInterval {
		return Config{}, fmt.Errorf("SCAN_WINDOW (%v) must not exceed SCAN_INTERVAL (%v)", scanWindow, scanInterval)
	}

	scanActive, err := boolEnv("SCAN_ACTIVE", false)
	if err != nil {
		return Config{}, err
	}

	mqttEnabled, err := boolEnv("MQTT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "govee-gateway"
	}

	mqttTopicPrefix := strings.Trim(strings.TrimSpace(os.Getenv("MQTT_TOPIC_PREFIX")), "/")
	if mqttTopicPrefix == "" {
		mqttTopicPrefix = "govee"
	}

	mqttPublishInterval, err := durationEnv("MQTT_PUBLISH_INTERVAL", "60s")
	if err != nil {
		return Config{}, err
	}
	if mqttPublishInterval < 0 {
		return Config{}, fmt.Errorf("MQTT_PUBLISH_INTERVAL must not be negative, got %v", mqttPublishInterval)
	}

	return Config{
		AppEnv:              appEnv,
		LogLevel:            level,
		BLEBackend:          backend,
		BLEAdapter:          adapter,
		ReplayFile:          replayFile,
		ScanDuration:        scanDuration,
		ScanPause:           scanPause,
		ScanInterval:        scanInterval,
		ScanWindow:          scanWindow,
		ScanActive:          scanActive,
		MQTTEnabled:         mqttEnabled,
		MQTTBroker:          mqttBroker,
		MQTTPort:            mqttPort,
		MQTTClientID:        mqttClientID,
		MQTTTopicPrefix:     mqttTopicPrefix,
		MQTTPublishInterval: mqttPublishInterval,
		SQLitePath:          strings.TrimSpace(os.Getenv("SQLITE_PATH")),
	}, nil
}

// HCIDeviceID returns N for an adapter named "hciN".
func (c Config) HCIDeviceID() (int, error) {
	s, ok := strings.CutPrefix(c.BLEAdapter, "hci")
	if !ok {
		return 0, fmt.Errorf("invalid BLE_ADAPTER %q (want hciN)", c.BLEAdapter)
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid BLE_ADAPTER %q (want hciN)", c.BLEAdapter)
	}
	return id, nil
}

func durationEnv(key, def string) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		s = def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func positiveDuration(key, def string) (time.Duration, error) {
	d, err := durationEnv(key, def)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
