package configuration

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	idspkg "github.com/drblury/chanflow/internal/runtime/ids"
)

// TracerName is the OpenTelemetry instrumentation name of traced consumers.
const TracerName = "github.com/drblury/chanflow/consumer"

type tracedChannel[T any] struct {
	id       string
	spanName string
	consumer string
	output   channelspkg.Channel[T]
}

func newTracedChannel[T any](spanName, consumer string, output channelspkg.Channel[T]) *tracedChannel[T] {
	return &tracedChannel[T]{
		id:       idspkg.CreateULID(),
		spanName: spanName,
		consumer: consumer,
		output:   output,
	}
}

func (t *tracedChannel[T]) Send(message T) error {
	_, span := otel.Tracer(TracerName).Start(
		context.Background(),
		t.spanName,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("chanflow.consumer", t.consumer),
			attribute.String("chanflow.message_type", channelspkg.MessageTypeName[T]()),
		),
	)
	defer span.End()

	err := t.output.Send(message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (t *tracedChannel[T]) NodeInfo() channelspkg.NodeInfo {
	return channelspkg.NodeInfo{
		ID:          t.id,
		Kind:        channelspkg.KindTraced,
		Name:        t.spanName,
		MessageType: channelspkg.MessageTypeName[T](),
	}
}

func (t *tracedChannel[T]) Children() []any {
	return []any{t.output}
}
