package mqtt

import (
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/roach88/hilbench/internal/config"
)

// Client publishes to one broker on behalf of one bench.
//
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	connected bool
	mu        sync.RWMutex
}

// Connect dials the broker, installs the Last Will and publishes a retained
// online status.
func Connect(cfg config.MQTTConfig, bench string) (*Client, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	topics := Topics{Prefix: cfg.TopicPrefix, Bench: bench}
	opts := buildClientOptions(cfg)
	configureLWT(opts, topics, cfg.ClientID)

	c := &Client{cfg: cfg, topics: topics}
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.setConnected(true) })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, _ error) { c.setConnected(false) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously and may not have fired yet.
	c.setConnected(true)

	if err := c.Publish(topics.Status(), statusPayload("online", cfg.ClientID, ""), true); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// newClient wraps an existing paho client. Used by tests.
func newClient(pc pahomqtt.Client, cfg config.MQTTConfig, bench string) *Client {
	return &Client{
		client:    pc,
		cfg:       cfg,
		topics:    Topics{Prefix: cfg.TopicPrefix, Bench: bench},
		connected: true,
	}
}

// Topics returns the topics this client publishes to.
func (c *Client) Topics() Topics {
	return c.topics
}

// Close publishes a graceful offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true,
			statusPayload("offline", c.cfg.ClientID, "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
