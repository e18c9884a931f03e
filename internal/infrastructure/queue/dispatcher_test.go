package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/studyon/billing/internal/core/ports"
)

type recordingSender struct {
	mu    sync.Mutex
	byTo  map[string][]string
	fails map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{byTo: make(map[string][]string), fails: make(map[string]bool)}
}

func (s *recordingSender) Send(_ context.Context, msg ports.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails[msg.To] {
		return errors.New("smtp down")
	}
	s.byTo[msg.To] = append(s.byTo[msg.To], msg.Subject)
	return nil
}

func TestDispatcher_PreservesPerRecipientOrder(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(3, sender, zerolog.Nop())
	d.Start(context.Background())

	recipients := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}
	for i := 0; i < 50; i++ {
		for _, to := range recipients {
			d.Notify(ports.Message{To: to, Subject: fmt.Sprintf("%03d", i)})
		}
	}
	d.Drain()

	for _, to := range recipients {
		got := sender.byTo[to]
		if len(got) != 50 {
			t.Fatalf("%s: expected 50 messages, got %d", to, len(got))
		}
		for i, subj := range got {
			if subj != fmt.Sprintf("%03d", i) {
				t.Fatalf("%s: message %d out of order: %s", to, i, subj)
			}
		}
	}
}

func TestDispatcher_FailuresDoNotStopWorkers(t *testing.T) {
	sender := newRecordingSender()
	sender.fails["bad@example.com"] = true
	d := NewDispatcher(1, sender, zerolog.Nop())
	d.Start(context.Background())

	d.Notify(ports.Message{To: "bad@example.com", Subject: "x"})
	d.Notify(ports.Message{To: "good@example.com", Subject: "y"})
	d.Drain()

	if len(sender.byTo["good@example.com"]) != 1 {
		t.Fatalf("expected delivery after a failure, got %v", sender.byTo)
	}
}

func TestDispatcher_NotifyAfterDrainIsDropped(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(2, sender, zerolog.Nop())
	d.Start(context.Background())
	d.Drain()

	d.Notify(ports.Message{To: "late@example.com", Subject: "late"})
	d.Drain()

	if len(sender.byTo) != 0 {
		t.Fatalf("expected nothing delivered after drain, got %v", sender.byTo)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, newRecordingSender(), zerolog.Nop())
	first := d.shardIndex("user@example.com")
	for i := 0; i < 10; i++ {
		if d.shardIndex("user@example.com") != first {
			t.Fatal("shard index must be deterministic")
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard index out of range: %d", first)
	}
}
