package mymqtt

import (
	"context"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type subscription struct {
	topic string
	ch    chan Message
	done  <-chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func newSubscription(ctx context.Context, topic string, qlen uint) *subscription {
	return &subscription{
		topic: topic,
		ch:    make(chan Message, qlen),
		done:  ctx.Done(),
	}
}

// handle is called by paho, one message at a time, in arrival order.
func (s *subscription) handle(_ mqtt.Client, msg mqtt.Message) {
	s.deliver(Message{
		Topic:    msg.Topic(),
		Payload:  msg.Payload(),
		Received: time.Now(),
	})
}

func (s *subscription) deliver(m Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- m:
	case <-s.done:
	}
}

// close must only run once done is closed, so that a blocked deliver returns.
func (s *subscription) close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}
