// Package pipeline turns inbound sensor messages into actuator commands and
// observations: decode, classify, publish, append, one pass per message.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/Lzetgo0/SIC7/internal/classifier"
	"github.com/Lzetgo0/SIC7/internal/observation"
	"github.com/Lzetgo0/SIC7/mymqtt"
	"github.com/Lzetgo0/SIC7/sic7/metrics"
)

// Publisher sends an actuator command. *mymqtt.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// labelSet is implemented by classifiers that declare their categories.
type labelSet interface {
	Has(classifier.Label) bool
}

type Config struct {
	ActuatorTopic  string
	AlarmLabel     classifier.Label
	PublishTimeout time.Duration // 0 leaves the bound to the publisher
}

type Pipeline struct {
	log            logr.Logger
	classifier     classifier.Classifier
	publisher      Publisher
	observations   *observation.Log
	actuation      Actuation
	topic          string
	publishTimeout time.Duration
	metrics        *metrics.Pipeline
}

// New builds a pipeline. m may be nil.
func New(log logr.Logger, cfg Config, c classifier.Classifier, p Publisher, l *observation.Log, m *metrics.Pipeline) *Pipeline {
	return &Pipeline{
		log:            log.WithName("Pipeline"),
		classifier:     c,
		publisher:      p,
		observations:   l,
		actuation:      Actuation{AlarmLabel: cfg.AlarmLabel},
		topic:          cfg.ActuatorTopic,
		publishTimeout: cfg.PublishTimeout,
		metrics:        m,
	}
}

// Run consumes msgs one at a time, in arrival order, until the channel is closed
// or ctx is done. A pass that has started always completes.
func (p *Pipeline) Run(ctx context.Context, msgs <-chan mymqtt.Message) error {
	p.log.Info("Running", "actuator_topic", p.topic, "alarm_label", p.actuation.AlarmLabel)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Stopped", "observations", p.observations.Len())
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				p.log.Info("Subscription closed", "observations", p.observations.Len())
				return nil
			}
			p.Handle(ctx, msg)
		}
	}
}

// Handle runs one pass over msg. It returns the appended observation, or false
// when the message was dropped.
func (p *Pipeline) Handle(ctx context.Context, msg mymqtt.Message) (observation.Observation, bool) {
	start := time.Now()
	if p.metrics != nil {
		p.metrics.Received.Inc()
	}

	received := msg.Received
	if received.IsZero() {
		received = start
	}

	reading, err := Decode(msg.Payload, received)
	if err != nil {
		var de *DecodeError
		if !errors.As(err, &de) {
			p.log.Error(err, "Unexpected decode failure", "topic", msg.Topic)
			return observation.Observation{}, false
		}
		p.log.V(1).Info("Dropping message", "topic", msg.Topic, "reason", de.Reason(), "error", de.Error())
		if p.metrics != nil {
			p.metrics.Dropped.WithLabelValues(de.Reason()).Inc()
		}
		return observation.Observation{}, false
	}

	label := p.classifier.Classify(reading.Temperature, reading.Humidity)
	if ls, ok := p.classifier.(labelSet); ok && !ls.Has(label) {
		p.log.Info("WARNING: unknown category, actuator stays off", "label", label)
		if p.metrics != nil {
			p.metrics.UnknownLabels.Inc()
		}
	}

	command := p.actuation.Command(label)
	p.publish(ctx, command)

	o := observation.Observation{Reading: reading, Predicted: label}
	p.observations.Append(o)

	if p.metrics != nil {
		p.metrics.Classified.WithLabelValues(string(label)).Inc()
		p.metrics.Observations.Set(float64(p.observations.Len()))
		p.metrics.PassDuration.Observe(time.Since(start).Seconds())
	}
	p.log.V(1).Info("Classified", "temperature", reading.Temperature, "humidity", reading.Humidity, "predicted", label, "command", command)
	return o, true
}

// publish is fire-and-forget: failures are logged and counted, never retried.
func (p *Pipeline) publish(ctx context.Context, command Command) {
	// shutdown must not abort a pass that already started
	ctx = context.WithoutCancel(ctx)
	if p.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.publishTimeout)
		defer cancel()
	}

	if err := p.publisher.Publish(ctx, p.topic, []byte(command)); err != nil {
		p.log.Error(err, "Failed to publish actuator command", "topic", p.topic, "command", command)
		if p.metrics != nil {
			p.metrics.PublishErrors.Inc()
		}
		return
	}
	if p.metrics != nil {
		p.metrics.Actuations.WithLabelValues(string(command)).Inc()
	}
}
