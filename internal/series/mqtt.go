// v0
// internal/series/mqtt.go
package series

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// SubscriberConfig captures the MQTT settings of the live telemetry feed.
type SubscriberConfig struct {
	Broker         string
	Topic          string
	ClientID       string
	QoS            byte
	ConnectTimeout time.Duration
}

// Subscriber applies series updates received over MQTT to a Store.
type Subscriber struct {
	cfg       SubscriberConfig
	client    mqtt.Client
	store     *Store
	accepts   Accepts
	onApplied AppliedFunc
	log       *slog.Logger
}

// NewSubscriber validates cfg and prepares the MQTT client. No connection
// is made until Run.
func NewSubscriber(cfg SubscriberConfig, store *Store, accepts Accepts, onApplied AppliedFunc, log *slog.Logger) (*Subscriber, error) {
	if log == nil {
		return nil, errors.New("logger must not be nil")
	}
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, errors.New("mqtt broker must not be empty")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("mqtt topic must not be empty")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", cfg.QoS)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dashboard-series"
	}
	s := &Subscriber{cfg: cfg, store: store, accepts: accepts, onApplied: onApplied, log: log}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("series_mqtt_connection_lost", slog.Any("err", err))
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			// Subscriptions do not survive a reconnect with a clean session.
			if err := s.subscribe(c); err != nil {
				log.Error("series_mqtt_subscribe_failed", slog.Any("err", err))
			}
		})
	s.client = mqtt.NewClient(opts)
	return s, nil
}

// Run connects, subscribes and blocks until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return fmt.Errorf("mqtt connect to %s timed out", s.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	s.log.Info("series_mqtt_started", slog.String("broker", s.cfg.Broker), slog.String("topic", s.cfg.Topic))

	<-ctx.Done()
	s.client.Disconnect(250)
	s.log.Info("series_mqtt_stopped")
	return ctx.Err()
}

func (s *Subscriber) subscribe(c mqtt.Client) error {
	token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.onMessage)
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return errors.New("mqtt subscribe timed out")
	}
	return token.Error()
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	applyUpdate("mqtt", msg.Payload(), s.store, s.accepts, s.onApplied, s.log, slog.String("topic", msg.Topic()))
}
