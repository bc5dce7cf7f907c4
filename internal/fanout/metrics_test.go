package fanout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// refusingMeter rejects every counter it is asked for.
type refusingMeter struct {
	noop.Meter
}

func (refusingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("instrument name rejected")
}

func TestNewCounterLogsRefusedInstrument(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	counter := newCounter(refusingMeter{}, "fanout_published_total", "test", &logger)
	if counter == nil {
		t.Fatalf("expected a usable fallback counter")
	}
	counter.Add(context.Background(), 1)

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "fanout_published_total") {
		t.Fatalf("expected a warning naming the instrument, got %q", out)
	}
}

func TestNewCounterUsesMeter(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	newCounter(noop.Meter{}, "fanout_published_total", "test", &logger).Add(context.Background(), 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no warnings, got %q", buf.String())
	}
}
