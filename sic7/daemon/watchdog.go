package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

var ErrConnectionLost = errors.New("MQTT connection permanently lost")

type connectionChecker interface {
	IsConnected() bool
}

// MqttWatchdog monitors the MQTT connection. Reconnection itself is left to the
// client; the watchdog only gives up once the link stayed down for too long.
type MqttWatchdog struct {
	client        connectionChecker
	log           logr.Logger
	checkInterval time.Duration
	maxFailures   int
}

func NewMqttWatchdog(client connectionChecker, log logr.Logger, checkInterval time.Duration, maxFailures int) *MqttWatchdog {
	return &MqttWatchdog{
		client:        client,
		log:           log.WithName("MqttWatchdog"),
		checkInterval: checkInterval,
		maxFailures:   maxFailures,
	}
}

// Start blocks until ctx is done, then returns nil, or until maxFailures
// consecutive checks found the client disconnected, then returns
// ErrConnectionLost.
func (w *MqttWatchdog) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	w.log.Info("Starting MQTT watchdog", "check_interval", w.checkInterval, "max_failures", w.maxFailures)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("MQTT watchdog stopped")
			return nil

		case <-ticker.C:
			if w.client.IsConnected() {
				if consecutiveFailures > 0 {
					w.log.Info("MQTT connection recovered", "previous_failures", consecutiveFailures)
					consecutiveFailures = 0
				}
				continue
			}

			consecutiveFailures++
			w.log.Error(nil, "MQTT connection lost", "consecutive_failures", consecutiveFailures, "max_failures", w.maxFailures)

			if consecutiveFailures >= w.maxFailures {
				return fmt.Errorf("%w after %d checks", ErrConnectionLost, consecutiveFailures)
			}
		}
	}
}
