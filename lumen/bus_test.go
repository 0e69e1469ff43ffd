package lumen

import "testing"

func TestBusOnOffEmit(t *testing.T) {
	b := NewBus()
	var got []any
	token := b.On("ping", func(p any) { got = append(got, p) })

	b.Emit("ping", 1)
	b.Emit("other", 2)
	b.Off("ping", token)
	b.Emit("ping", 3)

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestBusHandlerMayUnsubscribeItself(t *testing.T) {
	b := NewBus()
	calls := 0
	var token int
	token = b.On("x", func(any) {
		calls++
		b.Off("x", token)
	})

	b.Emit("x", nil)
	b.Emit("x", nil)
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestBusClear(t *testing.T) {
	b := NewBus()
	calls := 0
	b.On("x", func(any) { calls++ })
	b.Clear()
	b.Emit("x", nil)
	if calls != 0 {
		t.Fatalf("cleared bus still delivered %d", calls)
	}
}
