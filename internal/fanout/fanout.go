package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/vovakirdan/wirestream/internal/core"
)

// Fanout delivers coordinator notifications to connections on every
// server. It joins the local Hub to a Backbone.
type Fanout struct {
	hub      *Hub
	backbone Backbone
	log      *zerolog.Logger

	published metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a fanout. Call Start before publishing.
func New(hub *Hub, backbone Backbone, logger *zerolog.Logger) *Fanout {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	meter := otel.Meter("wirestream/fanout")

	return &Fanout{
		hub:       hub,
		backbone:  backbone,
		log:       logger,
		published: newCounter(meter, "fanout_published_total", "Notifications handed to the backbone", logger),
		failed:    newCounter(meter, "fanout_publish_failures_total", "Notifications the backbone rejected", logger),
	}
}

// newCounter falls back to a no-op counter when the meter refuses the instrument.
func newCounter(meter metric.Meter, name, desc string, logger *zerolog.Logger) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		logger.Warn().Err(err).Str("instrument", name).Msg("create metric instrument")
		return noop.Int64Counter{}
	}
	return counter
}

// Hub returns the local hub.
func (f *Fanout) Hub() *Hub {
	return f.hub
}

// Start connects the backbone to the local hub.
func (f *Fanout) Start(ctx context.Context) error {
	return f.backbone.Start(ctx, f.hub.Deliver)
}

// Subscribe routes room broadcasts to the local connection.
func (f *Fanout) Subscribe(connID, roomID string) {
	f.hub.Subscribe(connID, roomID)
}

// Unsubscribe stops routing room broadcasts to the local connection.
func (f *Fanout) Unsubscribe(connID, roomID string) {
	f.hub.Unsubscribe(connID, roomID)
}

// Publish encodes the notification and hands it to the backbone, which
// delivers it on every server.
func (f *Fanout) Publish(ctx context.Context, n core.Notification) error {
	data, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", n.Event, err)
	}

	attrs := metric.WithAttributes(attribute.String("event", n.Event))
	msg := &Message{Event: n.Event, RoomID: n.RoomID, Except: n.Except, Data: data}
	if err := f.backbone.Publish(ctx, msg); err != nil {
		f.failed.Add(ctx, 1, attrs)
		return err
	}
	f.published.Add(ctx, 1, attrs)

	f.log.Debug().Str("event", n.Event).Str("room_id", n.RoomID).Msg("broadcast published")
	return nil
}

// Close stops the backbone.
func (f *Fanout) Close() error {
	return f.backbone.Close()
}

var _ core.Notifier = (*Fanout)(nil)
