package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSubjectPrefix is the NATS subject root for broadcasts.
const DefaultSubjectPrefix = "wirestream"

var tracer = otel.Tracer("wirestream/fanout")

// natsHeaderCarrier adapts nats.Header to propagation.TextMapCarrier.
type natsHeaderCarrier struct {
	header nats.Header
}

func (c natsHeaderCarrier) Get(key string) string { return c.header.Get(key) }

func (c natsHeaderCarrier) Set(key, value string) { c.header.Set(key, value) }

func (c natsHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.header))
	for k := range c.header {
		keys = append(keys, k)
	}
	return keys
}

// NATSBackbone publishes broadcasts on NATS subjects. Every server
// subscribes to the whole prefix and delivers to its local clients.
type NATSBackbone struct {
	nc     *nats.Conn
	prefix string
	sub    *nats.Subscription
	log    *zerolog.Logger
}

// DialNATS connects to url and returns a backbone using subject prefix.
func DialNATS(url, prefix string, logger *zerolog.Logger) (*NATSBackbone, error) {
	nc, err := nats.Connect(url,
		nats.Name("wirestream"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return NewNATSBackbone(nc, prefix, logger), nil
}

// NewNATSBackbone wraps an existing connection. Close drains it.
func NewNATSBackbone(nc *nats.Conn, prefix string, logger *zerolog.Logger) *NATSBackbone {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NATSBackbone{nc: nc, prefix: prefix, log: logger}
}

// Subject returns the subject a message is published on.
func (b *NATSBackbone) Subject(msg *Message) string {
	if msg.RoomID == "" {
		return b.prefix + ".all"
	}
	return b.prefix + ".room." + msg.RoomID
}

// Start subscribes to every subject under the prefix and feeds the hub.
func (b *NATSBackbone) Start(_ context.Context, deliver DeliverFunc) error {
	sub, err := b.nc.Subscribe(b.prefix+".>", func(m *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), natsHeaderCarrier{header: m.Header})
		_, span := tracer.Start(ctx, m.Subject+" deliver",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "nats"),
				attribute.String("messaging.destination.name", m.Subject),
				attribute.Int("messaging.message.payload_size_bytes", len(m.Data)),
			),
		)
		defer span.End()

		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode")
			b.log.Warn().Err(err).Str("subject", m.Subject).Msg("drop undecodable broadcast")
			return
		}
		n := deliver(&msg)
		span.SetAttributes(attribute.Int("wirestream.delivered", n))
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s.>: %w", b.prefix, err)
	}
	b.sub = sub

	// Make sure the server knows about the subscription before returning.
	if err := b.nc.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	b.log.Info().Str("subject", b.prefix+".>").Msg("nats backbone subscribed")
	return nil
}

// Publish sends the message with the trace context in its headers.
func (b *NATSBackbone) Publish(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}

	subject := b.Subject(msg)
	ctx, span := tracer.Start(ctx, subject+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", subject),
			attribute.Int("messaging.message.payload_size_bytes", len(data)),
		),
	)
	defer span.End()

	header := nats.Header{}
	otel.GetTextMapPropagator().Inject(ctx, natsHeaderCarrier{header: header})

	if err := b.nc.PublishMsg(&nats.Msg{Subject: subject, Data: data, Header: header}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish")
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Close unsubscribes and drains the connection.
func (b *NATSBackbone) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	if err := b.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

var _ Backbone = (*NATSBackbone)(nil)
