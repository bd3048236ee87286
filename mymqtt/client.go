package mymqtt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

const PRIVATE_PORT = 1883
const DEFAULT_KEEPALIVE = 60 * time.Second
const DEFAULT_PUBLISH_TIMEOUT = 5 * time.Second

var ErrNotConnected = errors.New("mqtt client not connected")

// Config describes how to reach the broker.
type Config struct {
	Host           string        // broker host or IP; "" or "mdns" looks the broker up via zeroconf
	Port           int           // defaults to PRIVATE_PORT
	KeepAlive      time.Duration // defaults to DEFAULT_KEEPALIVE
	ClientId       string        // defaults to <program>-<random>
	ConnectTimeout time.Duration // 0 waits until ctx is done
	PublishTimeout time.Duration // bounded wait for a publish to be written
	MdnsTimeout    time.Duration
}

// Message is one inbound MQTT message, stamped with its arrival time.
type Message struct {
	Topic    string    `json:"topic"`
	Payload  []byte    `json:"payload"`
	Received time.Time `json:"received"`
}

// TransportError reports a failed publish or subscribe.
type TransportError struct {
	Op    string
	Topic string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mqtt %s %s: %v", e.Op, e.Topic, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Client struct {
	id             string
	mqtt           mqtt.Client
	brokerUrl      *url.URL
	log            logr.Logger
	publishTimeout time.Duration

	mu            sync.Mutex
	subscriptions map[string]*subscription
}

func defaultClientId() string {
	return fmt.Sprintf("%s-%s", path.Base(os.Args[0]), uuid.NewString()[:8])
}

// NewClientE connects to the configured broker. Reconnection after an unexpected
// loss is left to paho; every subscription is replayed once the link is back.
func NewClientE(ctx context.Context, log logr.Logger, cfg Config) (*Client, error) {
	log = log.WithName("mymqtt.Client")

	if cfg.ClientId == "" {
		cfg.ClientId = defaultClientId()
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DEFAULT_KEEPALIVE
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DEFAULT_PUBLISH_TIMEOUT
	}
	log.Info("Initializing MQTT client", "client_id", cfg.ClientId)

	brokerUrl, err := lookupBroker(ctx, log, cfg)
	if err != nil {
		log.Error(err, "could not find MQTT broker", "host", cfg.Host)
		return nil, err
	}
	log.Info("Using MQTT broker", "url", brokerUrl, "keepalive", cfg.KeepAlive)

	c := &Client{
		id:             cfg.ClientId,
		brokerUrl:      brokerUrl,
		log:            log,
		publishTimeout: cfg.PublishTimeout,
		subscriptions:  make(map[string]*subscription),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerUrl.String())
	opts.SetClientID(cfg.ClientId)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(3 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.log.Error(err, "MQTT connection lost", "client_id", c.id)
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		c.log.Info("MQTT client reconnecting", "client_id", c.id)
	})
	c.mqtt = mqtt.NewClient(opts)

	if err := c.connect(ctx, cfg.ConnectTimeout); err != nil {
		c.mqtt.Disconnect(0)
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	token := c.mqtt.Connect()
	for !token.WaitTimeout(3 * time.Second) {
		if ctx.Err() != nil {
			c.log.Error(ctx.Err(), "MQTT client gave up connecting", "client_id", c.id, "broker", c.brokerUrl)
			return &TransportError{Op: "connect", Topic: c.brokerUrl.String(), Err: ctx.Err()}
		}
		c.log.Info("MQTT client trying to connect", "client_id", c.id, "broker", c.brokerUrl)
	}
	if err := token.Error(); err != nil {
		c.log.Error(err, "MQTT client failed to connect", "client_id", c.id)
		return &TransportError{Op: "connect", Topic: c.brokerUrl.String(), Err: err}
	}
	c.log.Info("MQTT client connected", "client_id", c.id)
	return nil
}

// onConnect runs on every successful handshake, the first one included.
func (c *Client) onConnect(_ mqtt.Client) {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.subscriptions))
	for _, s := range c.subscriptions {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		if err := c.subscribe(s); err != nil {
			c.log.Error(err, "Failed to restore subscription", "topic", s.topic)
		}
	}
}

func (c *Client) subscribe(s *subscription) error {
	token := c.mqtt.Subscribe(s.topic, 1 /*at-least-once*/, s.handle)
	if !token.WaitTimeout(c.publishTimeout) {
		return &TransportError{Op: "subscribe", Topic: s.topic, Err: context.DeadlineExceeded}
	}
	if err := token.Error(); err != nil {
		return &TransportError{Op: "subscribe", Topic: s.topic, Err: err}
	}
	c.log.Info("Subscribed to", "topic", s.topic)
	return nil
}

// Subscribe delivers every message received on topic, in arrival order, on the
// returned channel. The channel is closed once ctx is done. A full channel holds
// back delivery of further messages.
func (c *Client) Subscribe(ctx context.Context, topic string, qlen uint) (<-chan Message, error) {
	s := newSubscription(ctx, topic, qlen)

	c.mu.Lock()
	if _, exists := c.subscriptions[topic]; exists {
		c.mu.Unlock()
		return nil, &TransportError{Op: "subscribe", Topic: topic, Err: errors.New("already subscribed")}
	}
	c.subscriptions[topic] = s
	c.mu.Unlock()

	c.log.Info("Subscribing to", "topic", topic, "qlen", qlen)
	if c.mqtt.IsConnectionOpen() {
		if err := c.subscribe(s); err != nil {
			c.mu.Lock()
			delete(c.subscriptions, topic)
			c.mu.Unlock()
			return nil, err
		}
	}

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subscriptions, topic)
		c.mu.Unlock()
		if c.mqtt.IsConnectionOpen() {
			c.mqtt.Unsubscribe(topic).WaitTimeout(c.publishTimeout)
		}
		s.close()
		c.log.Info("Unsubscribed", "topic", topic)
	}()

	return s.ch, nil
}

// Publish sends payload once (QoS 0, not retained). It waits at most the
// configured publish timeout and never retries.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.mqtt.IsConnectionOpen() {
		return &TransportError{Op: "publish", Topic: topic, Err: ErrNotConnected}
	}
	c.log.V(1).Info("Publishing", "topic", topic, "payload", string(payload))

	token := c.mqtt.Publish(topic, 0, false, payload)

	timer := time.NewTimer(c.publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return &TransportError{Op: "publish", Topic: topic, Err: err}
		}
		return nil
	case <-ctx.Done():
		return &TransportError{Op: "publish", Topic: topic, Err: ctx.Err()}
	case <-timer.C:
		return &TransportError{Op: "publish", Topic: topic, Err: context.DeadlineExceeded}
	}
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) BrokerUrl() *url.URL {
	return c.brokerUrl
}

// IsConnected reports whether the link is up right now. paho's own IsConnected
// also holds while it is reconnecting, which would hide an outage.
func (c *Client) IsConnected() bool {
	return c.mqtt.IsConnectionOpen()
}

func (c *Client) Close() {
	c.log.Info("Closing MQTT client", "client_id", c.id)
	c.mqtt.Disconnect(250 /* milliseconds */)
}
