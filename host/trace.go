package host

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/errors"
)

// span starts the span for one interface operation.
func (h *Host) span(ctx context.Context, namespace, op string, handle uint32) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("wit.namespace", namespace)}
	if handle != 0 {
		attrs = append(attrs, attribute.Int64("wit.handle", int64(handle)))
	}
	return h.tracer.Start(ctx, namespace+"#"+op, trace.WithAttributes(attrs...))
}

// finish records err on span, logs it and ends the span.
func (h *Host) finish(span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(errors.KindOf(err)))
	h.logger.Debug("operation failed", zap.String("op", op), zap.Error(err))
}

func isLag(err error) bool {
	return errors.Is(err, errors.ErrSubscriptionLag)
}

func ignoreStale(err error) error {
	if errors.KindOf(err) == errors.KindStaleHandle {
		return nil
	}
	return err
}
