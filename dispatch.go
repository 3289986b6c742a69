package pulseagent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const defaultFailureThreshold = 10

// cowList is an append-mostly list that can be iterated without locks while
// another goroutine appends to it.
type cowList[T any] struct {
	mu    sync.Mutex
	items atomic.Pointer[[]T]
}

func (l *cowList[T]) add(v ...T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var cur []T
	if p := l.items.Load(); p != nil {
		cur = *p
	}
	next := make([]T, 0, len(cur)+len(v))
	next = append(next, cur...)
	next = append(next, v...)
	l.items.Store(&next)
}

// snapshot returns the current contents. Callers must not modify it.
func (l *cowList[T]) snapshot() []T {
	if p := l.items.Load(); p != nil {
		return *p
	}
	return nil
}

// dispatcher fans a document out to every registered sender.
type dispatcher struct {
	senders   cowList[Sender]
	failures  atomic.Int64
	threshold int64
	logger    *slog.Logger
}

// dispatch delivers doc to every sender in registration order. A failing
// sender is logged and skipped; nothing is returned to the caller.
func (d *dispatcher) dispatch(ctx context.Context, mt MessageType, doc *Document) {
	if d.logger.Enabled(ctx, slog.LevelDebug) {
		d.logger.Debug("dispatching", "message_type", mt.String(), "host", doc.String("host"), "app_id", doc.String("appId"))
	}

	for _, s := range d.senders.snapshot() {
		if err := d.safeSend(ctx, s, mt, doc); err != nil {
			d.recordFailure(s, mt, err)
			continue
		}
		d.failures.Store(0)
	}
}

// safeSend calls the sender with panic recovery.
func (d *dispatcher) safeSend(ctx context.Context, s Sender, mt MessageType, doc *Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			d.logger.Error("sender panic",
				"correlation_id", correlationID,
				"sender", senderName(s),
				"message_type", mt.String(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("sender panic (correlation_id: %s)", correlationID)
		}
	}()
	return send(ctx, s, mt, doc)
}

// recordFailure bumps the rolling failure count and logs at Debug until the
// count reaches the threshold, then at Warn.
func (d *dispatcher) recordFailure(s Sender, mt MessageType, err error) {
	count := d.failures.Add(1)
	attrs := []any{
		"message_type", mt.String(),
		"sender", senderName(s),
		"failure_count", count,
		"error", err.Error(),
	}
	if count < d.threshold {
		d.logger.Debug("problem sending", attrs...)
	} else {
		d.logger.Warn("problem sending", attrs...)
	}
}

// failureCount returns the number of consecutive delivery failures since the
// last successful delivery to any sender.
func (d *dispatcher) failureCount() int64 {
	return d.failures.Load()
}

func senderName(s Sender) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", s)
}

func errUnknownMessageType(mt MessageType) error {
	return errors.Newf("unknown message type %q", mt)
}
