package fanout

import "context"

// DeliverFunc hands a message to the local hub.
type DeliverFunc func(*Message) int

// Backbone carries broadcasts between every process sharing the store.
type Backbone interface {
	// Start begins delivering received messages to deliver.
	Start(ctx context.Context, deliver DeliverFunc) error
	// Publish sends msg to every process, including this one.
	Publish(ctx context.Context, msg *Message) error
	Close() error
}

// LocalBackbone delivers in-process only. It fits a single server.
type LocalBackbone struct {
	deliver DeliverFunc
}

// NewLocalBackbone creates an in-process backbone.
func NewLocalBackbone() *LocalBackbone {
	return &LocalBackbone{}
}

// Start records the local delivery target.
func (b *LocalBackbone) Start(_ context.Context, deliver DeliverFunc) error {
	b.deliver = deliver
	return nil
}

// Publish delivers straight to the local hub.
func (b *LocalBackbone) Publish(_ context.Context, msg *Message) error {
	if b.deliver != nil {
		b.deliver(msg)
	}
	return nil
}

// Close is a no-op.
func (b *LocalBackbone) Close() error {
	return nil
}

var _ Backbone = (*LocalBackbone)(nil)
