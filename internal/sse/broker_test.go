package sse

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before a message arrived")
		}
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return ""
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}

	b.Publish(Event{Type: "ping", Data: map[string]string{"k": "v"}})
	msg := receive(t, ch)
	if !strings.HasPrefix(msg, "event: ping\n") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(msg, `"k":"v"`) {
		t.Errorf("msg = %q, payload missing", msg)
	}
	if !strings.HasSuffix(msg, "\n\n") {
		t.Errorf("msg = %q, want SSE frame terminator", msg)
	}

	b.Unsubscribe(ch)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients = %d, want 0 after unsubscribe", n)
	}
	if _, ok := <-ch; ok {
		t.Error("channel must be closed after unsubscribe")
	}
}

func TestPublishSyncFinished(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	b.PublishSyncFinished(7, models.SyncResult{
		PushSuccessful: true,
		PullSuccessful: false,
		Errors:         []error{errors.New("listing failed")},
	})

	msg := receive(t, ch)
	if !strings.HasPrefix(msg, "event: sync.finished\n") {
		t.Errorf("msg = %q", msg)
	}
	for _, want := range []string{`"account_id":7`, `"push_ok":true`, `"pull_ok":false`, `"listing failed"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("msg = %q, missing %s", msg, want)
		}
	}
}

func TestPublishSyncStarted(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	b.PublishSyncStarted(3)

	msg := receive(t, ch)
	if !strings.HasPrefix(msg, "event: sync.started\n") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(msg, `"account_id":3`) {
		t.Errorf("msg = %q", msg)
	}
}

func TestPublishNoteChanged(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	b.PublishNoteChanged(models.Note{ID: 12, Status: models.StatusLocallyEdited, Title: "draft"})

	msg := receive(t, ch)
	if !strings.HasPrefix(msg, "event: note.changed\n") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(msg, `"id":12`) || !strings.Contains(msg, `"title":"draft"`) {
		t.Errorf("msg = %q", msg)
	}
}

func TestCloseIsIdempotentAndClosesClients(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("client channel must be closed on broker shutdown")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients = %d after close", n)
	}

	// Subscribing after close yields a closed channel instead of blocking.
	ch = b.Subscribe()
	if _, ok := <-ch; ok {
		t.Error("subscribe after close must return a closed channel")
	}
	b.Publish(Event{Type: "ignored"})
}
