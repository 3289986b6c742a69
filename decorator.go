package pulseagent

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
)

// Decorator enriches a status [Document] with additional fields.
//
// Decorators add or overwrite fields; they never remove them (removal is the
// job of [ScrubNonConforming], which runs after the whole chain). A decorator
// that returns an error or panics is logged and skipped, and the remaining
// decorators still run.
//
// Decorators may only contribute scalar values or nil. Structured values are
// stripped before the document is dispatched.
type Decorator interface {
	Decorate(doc *Document) error
}

// DecoratorFunc adapts a plain function to the [Decorator] interface.
type DecoratorFunc func(doc *Document) error

// Decorate calls f(doc).
func (f DecoratorFunc) Decorate(doc *Document) error {
	return f(doc)
}

// decorate runs every decorator in order, isolating failures, then strips
// non-conforming fields.
func decorate(doc *Document, decorators []Decorator, logger *slog.Logger) {
	for i, d := range decorators {
		if err := safeDecorate(d, doc, logger); err != nil {
			logger.Warn("problem decorating",
				"decorator", fmt.Sprintf("%T", d),
				"index", i,
				"error", err.Error(),
			)
		}
	}
	ScrubNonConforming(doc)
}

// safeDecorate calls d.Decorate with panic recovery.
func safeDecorate(d Decorator, doc *Document, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("decorator panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("decorator panic (correlation_id: %s)", correlationID)
		}
	}()
	return d.Decorate(doc)
}
