package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/encap-analyzer/pkg/logging"
)

// ErrClosed is returned by a publisher that has been shut down
var ErrClosed = errors.New("publisher is closed")

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind loses events instead of blocking publishers.
const subscriberBuffer = 100

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to buffer (0 = no buffering)
	ReplayAll  bool // If true, replay all buffered events; if false, only replay last event
}

// topicState is everything the publisher keeps for one topic
type topicState struct {
	config  TopicConfig
	version int
	buffer  []Event
	subs    map[*sseSubscription]struct{}
}

// record appends ev to the replay buffer, keeping the most recent events
func (t *topicState) record(ev Event) {
	if t.config.BufferSize <= 0 {
		return
	}
	t.buffer = append(t.buffer, ev)
	if over := len(t.buffer) - t.config.BufferSize; over > 0 {
		t.buffer = t.buffer[over:]
	}
}

// replay returns the events a new subscriber starts with
func (t *topicState) replay() []Event {
	if len(t.buffer) == 0 {
		return nil
	}
	if t.config.ReplayAll {
		return t.buffer
	}
	return t.buffer[len(t.buffer)-1:]
}

// SSEPublisher implements Publisher for Server-Sent Event streams
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topicState
	closed bool
}

// NewSSEPublisher creates a publisher with no configured topics
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topicState)}
}

// NewAnalysisPublisher creates a publisher for the analyzer's topics. A new
// subscriber to status or report gets the latest event; progress keeps
// only the most recent tick.
func NewAnalysisPublisher() *SSEPublisher {
	p := NewSSEPublisher()
	p.ConfigureTopic(TopicAnalysisStatus, TopicConfig{BufferSize: 10})
	p.ConfigureTopic(TopicProgress, TopicConfig{BufferSize: 1})
	p.ConfigureTopic(TopicReport, TopicConfig{BufferSize: 1})
	return p
}

// topic returns the state of name, creating it. Callers hold p.mu.
func (p *SSEPublisher) topic(name string) *topicState {
	t, ok := p.topics[name]
	if !ok {
		t = &topicState{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic(topic).config = config
}

// Subscribe creates a subscription that starts with the topic's replay
// events. The subscription closes when ctx is done.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	t := p.topic(topic)
	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberBuffer),
		publisher: p,
	}
	t.subs[sub] = struct{}{}

	replay := t.replay()
	for _, ev := range replay {
		select {
		case sub.events <- ev:
		default:
			logging.Warn("could not replay event to new subscriber", "topic", topic, "version", ev.Version)
		}
	}
	p.mu.Unlock()

	if len(replay) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish sends an event to every subscriber of a topic without blocking
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	t := p.topic(topic)
	t.version++
	ev := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    payload,
		Version: t.version,
	}
	t.record(ev)

	for sub := range t.subs {
		select {
		case sub.events <- ev:
		default:
			logging.Warn("subscription channel full, dropping event", "topic", topic, "type", eventType)
		}
	}
	return nil
}

// Close shuts down the publisher and closes every subscription
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			close(sub.events)
		}
		t.subs = make(map[*sseSubscription]struct{})
	}
	return nil
}

// unsubscribe removes sub and closes its channel. Channels are only closed
// under p.mu, so a concurrent Publish never sends on a closed channel.
func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.topics[sub.topic]
	if !ok {
		return
	}
	if _, ok := t.subs[sub]; ok {
		delete(t.subs, sub)
		close(sub.events)
	}
}

// sseSubscription implements Subscription
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close ends the subscription; its event channel is closed. Closing twice
// is harmless.
func (s *sseSubscription) Close() error {
	s.publisher.unsubscribe(s)
	return nil
}

// WriteSSE writes an event in Server-Sent Events framing. The version is
// sent as the event ID so a reconnecting browser reports where it left off.
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Version, jsonData)
	return err
}
