package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jpalmerr/pulseagent"
)

func TestSender_Records(t *testing.T) {
	s := New()
	ctx := context.Background()

	doc := pulseagent.NewDocument()
	doc.Set("host", "web01")

	for _, send := range []func(context.Context, *pulseagent.Document) error{
		s.SendCheckIn, s.SendAppEvent, s.SendThreadDump, s.SendAppConfigDump,
	} {
		if err := send(ctx, doc); err != nil {
			t.Fatalf("send error = %v", err)
		}
	}

	msgs := s.Messages()
	want := []pulseagent.MessageType{
		pulseagent.MessageCheckIn,
		pulseagent.MessageAppEvent,
		pulseagent.MessageThreadDump,
		pulseagent.MessageAppConfigDump,
	}
	if len(msgs) != len(want) {
		t.Fatalf("Messages() = %d items, want %d", len(msgs), len(want))
	}
	for i, mt := range want {
		if msgs[i].Type != mt {
			t.Errorf("Messages()[%d].Type = %v, want %v", i, msgs[i].Type, mt)
		}
	}

	if got := len(s.Documents(pulseagent.MessageCheckIn)); got != 1 {
		t.Errorf("Documents(check-in) = %d items, want 1", got)
	}
}

func TestSender_CopiesDocument(t *testing.T) {
	s := New()

	doc := pulseagent.NewDocument()
	doc.Set("host", "web01")
	if err := s.SendCheckIn(context.Background(), doc); err != nil {
		t.Fatalf("SendCheckIn() error = %v", err)
	}

	doc.Set("host", "changed")

	got := s.Documents(pulseagent.MessageCheckIn)[0].String("host")
	if got != "web01" {
		t.Errorf("recorded host = %q, want %q", got, "web01")
	}
}

func TestSender_SetError(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.SetError(boom)

	if err := s.SendCheckIn(context.Background(), pulseagent.NewDocument()); !errors.Is(err, boom) {
		t.Errorf("SendCheckIn() error = %v, want %v", err, boom)
	}
	if len(s.Messages()) != 0 {
		t.Errorf("Messages() = %d items, want 0", len(s.Messages()))
	}

	s.SetError(nil)
	if err := s.SendCheckIn(context.Background(), pulseagent.NewDocument()); err != nil {
		t.Errorf("SendCheckIn() error = %v, want nil", err)
	}
}

func TestSender_Reset(t *testing.T) {
	s := New()
	_ = s.SendCheckIn(context.Background(), pulseagent.NewDocument())
	s.Reset()

	if len(s.Messages()) != 0 {
		t.Errorf("Messages() = %d items, want 0", len(s.Messages()))
	}
}

func TestSender_Subscribe(t *testing.T) {
	s := New()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	go func() {
		_ = s.SendAppEvent(context.Background(), pulseagent.NewDocument())
	}()

	select {
	case msg := <-ch:
		if msg.Type != pulseagent.MessageAppEvent {
			t.Errorf("received Type = %v, want %v", msg.Type, pulseagent.MessageAppEvent)
		}
	case <-time.After(time.Second):
		t.Error("Subscribe() channel did not receive message")
	}
}

func TestSender_SlowSubscriberDoesNotBlock(t *testing.T) {
	s := New()
	_ = s.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 2*subscriberBuffer; i++ {
			_ = s.SendCheckIn(context.Background(), pulseagent.NewDocument())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("send blocked on slow subscriber")
	}
}

func TestSender_CloseClosesSubscriptions(t *testing.T) {
	s := New()
	ch := s.Subscribe()

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, ok := <-ch; ok {
		t.Error("subscription channel should be closed after Close()")
	}

	// unsubscribing after close is a no-op
	s.Unsubscribe(ch)
}
