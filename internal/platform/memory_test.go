package platform

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryHostLifecycle(t *testing.T) {
	h := NewMemoryHost()
	id, err := h.Create(context.Background(), "search", Size{Width: 10, Height: 20})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.SetTitle(id, "Search"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	if err := h.DeliverPayload(id, []byte(`{"q":1}`)); err != nil {
		t.Fatalf("DeliverPayload: %v", err)
	}
	if err := h.Show(id); err != nil {
		t.Fatalf("Show: %v", err)
	}

	w, ok := h.Window(id)
	if !ok || w.View != "search" || w.Title != "Search" || !w.Visible || string(w.Payload) != `{"q":1}` {
		t.Fatalf("unexpected window %+v", w)
	}

	if err := h.ResetContent(id); err != nil {
		t.Fatalf("ResetContent: %v", err)
	}
	if w, _ := h.Window(id); w.Payload != nil {
		t.Fatalf("payload survived reset: %q", w.Payload)
	}

	if err := h.Destroy(id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if !h.IsDestroyed(id) || h.Count() != 0 {
		t.Fatalf("window still alive after Destroy")
	}
	if err := h.Show(id); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("Show after destroy = %v, want ErrUnknownWindow", err)
	}
}

func TestMemoryHostCloseNotifiesOnce(t *testing.T) {
	h := NewMemoryHost()
	var closed []WindowID
	h.OnClosed(func(id WindowID) { closed = append(closed, id) })

	id, _ := h.Create(context.Background(), "a", Size{Width: 1, Height: 1})
	h.Close(id)
	h.Close(id)
	h.Close(id + 100)

	if len(closed) != 1 || closed[0] != id {
		t.Fatalf("closed = %v", closed)
	}
	if h.ContentAlive(id) {
		t.Fatalf("closed window reported alive")
	}
	// The owner still has to destroy it.
	if err := h.Destroy(id); err != nil {
		t.Fatalf("Destroy after close: %v", err)
	}
}

func TestMemoryHostCreateHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemoryHost().Create(ctx, "a", Size{Width: 1, Height: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Create = %v, want context.Canceled", err)
	}
}
