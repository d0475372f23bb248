// Package messaging moves committed domain events through Kafka.
package messaging

import (
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// DefaultTopic carries every inventory event.
const DefaultTopic = "bakehouse.inventory"

// Config describes the Kafka cluster.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
	// InstanceID is appended to GroupID for broadcast consumers, so each
	// replica reads every partition.
	InstanceID string
	Username   string
	Password   string
	TLS        bool
}

// Enabled reports whether any broker is configured.
func (c Config) Enabled() bool { return len(c.Brokers) > 0 }

func (c Config) topic() string {
	if c.Topic == "" {
		return DefaultTopic
	}
	return c.Topic
}

// ConsumerGroup is the group a broadcast consumer joins.
func (c Config) ConsumerGroup() string {
	if c.InstanceID == "" {
		return c.GroupID
	}
	return c.GroupID + "-" + c.InstanceID
}

// NewInstanceID returns hostname plus a random suffix.
func NewInstanceID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	host, err := os.Hostname()
	if err != nil || host == "" {
		return suffix
	}
	return strings.ToLower(host) + "-" + suffix
}

// ParseBrokers splits a comma-separated broker list, dropping blanks.
func ParseBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// newDialer enables SASL/PLAIN when credentials are set. SASL always runs over TLS.
func newDialer(cfg Config) *kafka.Dialer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if cfg.Username != "" && cfg.Password != "" {
		dialer.SASLMechanism = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}
	if cfg.TLS || dialer.SASLMechanism != nil {
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return dialer
}

func newTransport(cfg Config) *kafka.Transport {
	dialer := newDialer(cfg)
	return &kafka.Transport{
		DialTimeout: dialer.Timeout,
		SASL:        dialer.SASLMechanism,
		TLS:         dialer.TLS,
	}
}
