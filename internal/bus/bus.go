// Package bus is the synchronous message bus shared by the map, the
// selection indicator and the editor. Handlers run in registration order on
// the publisher's goroutine, so a publish completes before the next one in
// the same dispatch starts.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "map_exhibits/internal/bus"

// Handler processes one message.
type Handler func(ctx context.Context, msg Message) error

// Bus routes messages to the handlers subscribed to their command.
type Bus struct {
	mu   sync.RWMutex
	subs map[Command][]Handler
	log  *logrus.Entry

	published metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a Bus. Metrics go to the global OTel meter provider, which is a
// no-op unless one is configured.
func New(log *logrus.Entry) (*Bus, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	b := &Bus{
		subs: make(map[Command][]Handler),
		log:  log,
	}

	m := otel.Meter(instrumentationName)
	var err error
	b.published, err = m.Int64Counter(
		"bus.messages.published",
		metric.WithDescription("Total messages published"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating published counter: %w", err)
	}
	b.failed, err = m.Int64Counter(
		"bus.handlers.failed",
		metric.WithDescription("Total handler invocations that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	return b, nil
}

// Subscribe registers h for cmd.
func (b *Bus) Subscribe(cmd Command, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[cmd] = append(b.subs[cmd], h)
}

// On registers a handler typed to the message's concrete payload.
func On[M Message](b *Bus, h func(ctx context.Context, msg M) error) {
	var zero M
	b.Subscribe(zero.Command(), func(ctx context.Context, msg Message) error {
		m, ok := msg.(M)
		if !ok {
			return fmt.Errorf("bus: %s: unexpected payload %T", zero.Command(), msg)
		}
		return h(ctx, m)
	})
}

// HasSubscribers reports whether any handler listens for cmd.
func (b *Bus) HasSubscribers(cmd Command) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[cmd]) > 0
}

// Publish delivers msg to every handler of its command. All handlers run even
// when one fails; their errors are joined.
func (b *Bus) Publish(ctx context.Context, msg Message) error {
	cmd := msg.Command()

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[cmd]...)
	b.mu.RUnlock()

	attrs := metric.WithAttributes(attribute.String("command", string(cmd)))
	b.published.Add(ctx, 1, attrs)

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			b.failed.Add(ctx, 1, attrs)
			b.log.WithError(err).WithField("command", cmd).Warn("Bus handler failed.")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
