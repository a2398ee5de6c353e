package kafka

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

var errNoBrokers = errors.New("broker list is empty")

// ValidateBrokers checks that every entry is a host:port pair.
func ValidateBrokers(brokers []string) error {
	if len(brokers) == 0 {
		return errNoBrokers
	}

	for _, broker := range brokers {
		host, port, err := net.SplitHostPort(broker)
		if err != nil {
			return fmt.Errorf("broker %q: %w", broker, err)
		}
		if host == "" {
			return fmt.Errorf("broker %q: empty host", broker)
		}
		if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("broker %q: invalid port", broker)
		}
	}

	return nil
}

// NewConfig returns the client configuration shared by the producer and the
// consumer groups. Offsets are committed by hand once a message is completed.
func NewConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}

	cfg.Net.DialTimeout = 5 * time.Second
	cfg.Net.ReadTimeout = 10 * time.Second
	cfg.Net.WriteTimeout = 10 * time.Second
	cfg.Metadata.Retry.Max = 1

	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Compression = sarama.CompressionNone
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Timeout = 5 * time.Second

	cfg.Consumer.Offsets.AutoCommit.Enable = false
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true

	return cfg
}
