package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys
var (
	AttrProjectID = attribute.Key("tasking.project.id")
	AttrTaskID    = attribute.Key("tasking.task.id")
	AttrUserID    = attribute.Key("tasking.user.id")
	AttrStatus    = attribute.Key("tasking.task.status")
)

// StartSpan starts an internal span with the given attributes
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// TaskAttrs returns the attributes identifying a task operation
func TaskAttrs(projectID, taskID, userID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrProjectID.Int64(projectID),
		AttrTaskID.Int64(taskID),
		AttrUserID.Int64(userID),
	}
}

// End records err on the span, if any, and ends it
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
