// v0
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures the runtime settings of the dashboard service. Values
// come from environment variables, a properties file, or defaults that let
// the service boot standalone with the built-in dataset.
type Config struct {
	// ListenAddress defines the TCP address used by the HTTP server.
	ListenAddress string
	// LogFilePath is the absolute or relative path to the log file.
	LogFilePath string
	// LogLevel is the minimum level written to stdout and the log file.
	LogLevel slog.Level
	// HTTPReadTimeout bounds the time to read incoming requests.
	HTTPReadTimeout time.Duration
	// HTTPWriteTimeout bounds the time to write responses.
	HTTPWriteTimeout time.Duration
	// ShutdownTimeout limits graceful shutdown attempts.
	ShutdownTimeout time.Duration
	// CORSOrigins enables cross-origin requests from the listed origins.
	CORSOrigins []string
	// AccessLog adds a combined-format access log on stdout.
	AccessLog bool
	// PropertiesPath records the path used to load property values.
	PropertiesPath string
	// CircuitPropertiesPath points at the breaker tunables for the upstream client.
	CircuitPropertiesPath string

	// DatasetPath selects a YAML dataset; empty uses the built-in one.
	DatasetPath string
	// LoadDelay is the simulated latency of the demo load source.
	LoadDelay time.Duration
	// LoadFailureRate is the probability in [0,1] that a demo load fails.
	LoadFailureRate float64
	// LoadSeed seeds the demo failure draw; zero picks a time-based seed.
	LoadSeed int64
	// LoadTimeout bounds one load attempt.
	LoadTimeout time.Duration
	// UpstreamURL switches loads to an HTTP upstream serving series JSON.
	UpstreamURL string

	// KafkaBrokers lists the bootstrap brokers.
	KafkaBrokers []string
	// SeriesConsumerEnabled turns on live series updates from Kafka.
	SeriesConsumerEnabled bool
	// SeriesTopic carries series replacements and point upserts.
	SeriesTopic string
	// SeriesGroupID is the consumer group used for checkpointing.
	SeriesGroupID string
	// SeriesPollTimeout bounds the wait for one Kafka message.
	SeriesPollTimeout time.Duration
	// EventsEnabled turns on the interaction event stream.
	EventsEnabled bool
	// EventsTopic receives interaction events.
	EventsTopic string

	// MQTTEnabled turns on live series updates from MQTT.
	MQTTEnabled bool
	MQTTBroker  string
	MQTTTopic   string
	MQTTClient  string
	MQTTQoS     int

	// ViewportWidth and ViewportHeight place the tooltip until a client reports its own.
	ViewportWidth  float64
	ViewportHeight float64

	DemoEmail    string
	DemoPassword string
	LoginDelay   time.Duration
}

const (
	defaultListenAddress = ":8090"
	defaultLogFile       = "logs/dashboard.log"
	defaultReadTimeout   = 5 * time.Second
	defaultWriteTimeout  = 10 * time.Second
	defaultShutdown      = 5 * time.Second
	defaultPropsPath     = "dashboard.properties"
	defaultCircuitProps  = "circuit.properties"
	defaultLoadDelay     = 1500 * time.Millisecond
	defaultFailureRate   = 0.1
	defaultLoadTimeout   = 10 * time.Second
	defaultKafkaBrokers  = "kafka:9092"
	defaultSeriesTopic   = "dashboard.series"
	defaultSeriesGroup   = "dashboard-series"
	defaultPollTimeout   = 5 * time.Second
	defaultEventsTopic   = "dashboard.events"
	defaultMQTTBroker    = "tcp://mosquitto:1883"
	defaultMQTTTopic     = "dashboard/series/#"
	defaultMQTTClient    = "dashboard"
	defaultMQTTQoS       = 1
	defaultViewportW     = 1280
	defaultViewportH     = 800
	defaultDemoEmail     = "demo@example.com"
	defaultDemoPassword  = "password123"
	defaultLoginDelay    = time.Second
)

// envKeys maps each environment override to the property it replaces.
var envKeys = []struct{ env, prop string }{
	{"DASHBOARD_LISTEN_ADDRESS", "listen_address"},
	{"DASHBOARD_LOG_PATH", "log_path"},
	{"DASHBOARD_LOG_LEVEL", "log_level"},
	{"DASHBOARD_HTTP_READ_TIMEOUT_MS", "http_read_timeout_ms"},
	{"DASHBOARD_HTTP_WRITE_TIMEOUT_MS", "http_write_timeout_ms"},
	{"DASHBOARD_SHUTDOWN_TIMEOUT_MS", "shutdown_timeout_ms"},
	{"DASHBOARD_CORS_ORIGINS", "cors_origins"},
	{"DASHBOARD_ACCESS_LOG", "access_log"},
	{"DASHBOARD_CIRCUIT_PROPERTIES_PATH", "circuit_properties_path"},
	{"DASHBOARD_DATASET_PATH", "dataset_path"},
	{"DASHBOARD_LOAD_DELAY_MS", "load_delay_ms"},
	{"DASHBOARD_LOAD_FAILURE_RATE", "load_failure_rate"},
	{"DASHBOARD_LOAD_SEED", "load_seed"},
	{"DASHBOARD_LOAD_TIMEOUT_MS", "load_timeout_ms"},
	{"DASHBOARD_UPSTREAM_URL", "upstream_url"},
	{"KAFKA_BROKERS", "kafka_brokers"},
	{"DASHBOARD_KAFKA_BROKERS", "kafka_brokers"},
	{"DASHBOARD_SERIES_CONSUMER_ENABLED", "series_consumer_enabled"},
	{"DASHBOARD_SERIES_TOPIC", "series_topic"},
	{"DASHBOARD_SERIES_GROUP", "series_group_id"},
	{"DASHBOARD_SERIES_POLL_TIMEOUT_MS", "series_poll_timeout_ms"},
	{"DASHBOARD_EVENTS_ENABLED", "events_enabled"},
	{"DASHBOARD_EVENTS_TOPIC", "events_topic"},
	{"DASHBOARD_MQTT_ENABLED", "mqtt_enabled"},
	{"DASHBOARD_MQTT_BROKER", "mqtt_broker"},
	{"DASHBOARD_MQTT_TOPIC", "mqtt_topic"},
	{"DASHBOARD_MQTT_CLIENT_ID", "mqtt_client_id"},
	{"DASHBOARD_MQTT_QOS", "mqtt_qos"},
	{"DASHBOARD_VIEWPORT_WIDTH", "viewport_width"},
	{"DASHBOARD_VIEWPORT_HEIGHT", "viewport_height"},
	{"DASHBOARD_DEMO_EMAIL", "demo_email"},
	{"DASHBOARD_DEMO_PASSWORD", "demo_password"},
	{"DASHBOARD_LOGIN_DELAY_MS", "login_delay_ms"},
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		ListenAddress:         defaultListenAddress,
		LogFilePath:           filepath.Clean(defaultLogFile),
		HTTPReadTimeout:       defaultReadTimeout,
		HTTPWriteTimeout:      defaultWriteTimeout,
		ShutdownTimeout:       defaultShutdown,
		CircuitPropertiesPath: defaultCircuitProps,
		LoadDelay:             defaultLoadDelay,
		LoadFailureRate:       defaultFailureRate,
		LoadTimeout:           defaultLoadTimeout,
		KafkaBrokers:          splitAndTrim(defaultKafkaBrokers),
		SeriesTopic:           defaultSeriesTopic,
		SeriesGroupID:         defaultSeriesGroup,
		SeriesPollTimeout:     defaultPollTimeout,
		EventsTopic:           defaultEventsTopic,
		MQTTBroker:            defaultMQTTBroker,
		MQTTTopic:             defaultMQTTTopic,
		MQTTClient:            defaultMQTTClient,
		MQTTQoS:               defaultMQTTQoS,
		ViewportWidth:         defaultViewportW,
		ViewportHeight:        defaultViewportH,
		DemoEmail:             defaultDemoEmail,
		DemoPassword:          defaultDemoPassword,
		LoginDelay:            defaultLoginDelay,
	}
}

// Load resolves configuration by layering defaults, an optional
// properties file, and finally environment variables. The properties
// file location can be overridden with DASHBOARD_PROPERTIES_PATH.
func Load() (Config, error) {
	cfg := Default()

	propsPath := strings.TrimSpace(os.Getenv("DASHBOARD_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "listen_address":
		cfg.ListenAddress, err = nonEmpty(key, value)
	case "log_path":
		cfg.LogFilePath, err = nonEmpty(key, value)
		cfg.LogFilePath = filepath.Clean(cfg.LogFilePath)
	case "log_level":
		err = cfg.LogLevel.UnmarshalText([]byte(value))
	case "http_read_timeout_ms":
		cfg.HTTPReadTimeout, err = parsePositiveMillis(value)
	case "http_write_timeout_ms":
		cfg.HTTPWriteTimeout, err = parsePositiveMillis(value)
	case "shutdown_timeout_ms":
		cfg.ShutdownTimeout, err = parsePositiveMillis(value)
	case "cors_origins":
		cfg.CORSOrigins = splitAndTrim(value)
	case "access_log":
		cfg.AccessLog, err = strconv.ParseBool(value)
	case "circuit_properties_path":
		cfg.CircuitPropertiesPath = value
	case "dataset_path":
		cfg.DatasetPath = value
	case "load_delay_ms":
		cfg.LoadDelay, err = parseMillis(value)
	case "load_failure_rate":
		cfg.LoadFailureRate, err = parseRate(value)
	case "load_seed":
		cfg.LoadSeed, err = strconv.ParseInt(value, 10, 64)
	case "load_timeout_ms":
		cfg.LoadTimeout, err = parsePositiveMillis(value)
	case "upstream_url":
		cfg.UpstreamURL = value
	case "kafka_brokers":
		brokers := splitAndTrim(value)
		if len(brokers) == 0 {
			return errors.New("kafka_brokers cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	case "series_consumer_enabled":
		cfg.SeriesConsumerEnabled, err = strconv.ParseBool(value)
	case "series_topic":
		cfg.SeriesTopic, err = nonEmpty(key, value)
	case "series_group_id":
		cfg.SeriesGroupID, err = nonEmpty(key, value)
	case "series_poll_timeout_ms":
		cfg.SeriesPollTimeout, err = parsePositiveMillis(value)
	case "events_enabled":
		cfg.EventsEnabled, err = strconv.ParseBool(value)
	case "events_topic":
		cfg.EventsTopic, err = nonEmpty(key, value)
	case "mqtt_enabled":
		cfg.MQTTEnabled, err = strconv.ParseBool(value)
	case "mqtt_broker":
		cfg.MQTTBroker, err = nonEmpty(key, value)
	case "mqtt_topic":
		cfg.MQTTTopic, err = nonEmpty(key, value)
	case "mqtt_client_id":
		cfg.MQTTClient, err = nonEmpty(key, value)
	case "mqtt_qos":
		cfg.MQTTQoS, err = strconv.Atoi(value)
		if err == nil && (cfg.MQTTQoS < 0 || cfg.MQTTQoS > 2) {
			err = errors.New("mqtt_qos must be 0, 1 or 2")
		}
	case "viewport_width":
		cfg.ViewportWidth, err = parsePositiveFloat(value)
	case "viewport_height":
		cfg.ViewportHeight, err = parsePositiveFloat(value)
	case "demo_email":
		cfg.DemoEmail, err = nonEmpty(key, value)
	case "demo_password":
		cfg.DemoPassword, err = nonEmpty(key, value)
	case "login_delay_ms":
		cfg.LoginDelay, err = parseMillis(value)
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return err
}

func applyEnv(cfg *Config) error {
	for _, k := range envKeys {
		v, ok := lookupEnvTrimmed(k.env)
		if !ok {
			continue
		}
		if err := setProperty(cfg, k.prop, v); err != nil {
			return fmt.Errorf("%s: %w", k.env, err)
		}
	}
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func nonEmpty(key, v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}
	return v, nil
}

func splitAndTrim(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parsePositiveMillis(v string) (time.Duration, error) {
	d, err := parseMillis(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return d, nil
}

func parseMillis(v string) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if ms < 0 {
		return 0, errors.New("value must not be negative")
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parseRate(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 || f > 1 {
		return 0, errors.New("rate must be within [0,1]")
	}
	return f, nil
}

func parsePositiveFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if f <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return f, nil
}
