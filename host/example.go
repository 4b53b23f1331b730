package host

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/canvas-host/abi"
)

// ExampleHost serves the world's root imports.
type ExampleHost struct {
	h *Host
}

func (e *ExampleHost) Namespace() string {
	return abi.NamespaceRoot
}

// Print logs a line from the guest.
func (e *ExampleHost) Print(ctx context.Context, msg string) {
	_, span := e.h.span(ctx, e.Namespace(), "print", 0)
	defer span.End()

	e.h.logger.Info(msg, zap.String("source", "guest"))
	if e.h.onPrint != nil {
		e.h.onPrint(msg)
	}
}

func (e *ExampleHost) Register() map[string]any {
	return map[string]any{
		"print": e.Print,
	}
}
