package orchestration

import (
	"context"
	"testing"
	"time"
)

func TestBoundedPreservesFIFOOrder(t *testing.T) {
	c := newBounded[int](4, DropOldest)
	for i := range 4 {
		c.Send(i)
	}

	for want := range 4 {
		got, ok := c.TryReceive()
		if !ok {
			t.Fatalf("expected item %d, channel empty", want)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestBoundedDropOldestNeverYieldsEvictedItems(t *testing.T) {
	const capacity = 3
	c := newBounded[int](capacity, DropOldest)
	for i := range 10 {
		c.Send(i)
	}

	got, ok := c.TryReceive()
	if !ok {
		t.Fatal("expected an item after overflow")
	}
	// The oldest observable item is the capacity-th most recent send.
	if got != 10-capacity {
		t.Fatalf("expected oldest survivor %d, got %d", 10-capacity, got)
	}
	if c.Dropped() != uint64(10-capacity) {
		t.Fatalf("expected %d dropped, got %d", 10-capacity, c.Dropped())
	}
}

func TestBoundedDropNewestRefusesIncoming(t *testing.T) {
	c := newBounded[int](2, DropNewest)
	if !c.Send(1) || !c.Send(2) {
		t.Fatal("sends under capacity must be accepted")
	}
	if c.Send(3) {
		t.Fatal("send at capacity must be refused under drop-newest")
	}

	first, _ := c.TryReceive()
	second, _ := c.TryReceive()
	if first != 1 || second != 2 {
		t.Fatalf("expected queue [1 2], got [%d %d]", first, second)
	}
}

func TestBoundedReceiveBlocksUntilSend(t *testing.T) {
	c := newBounded[string](1, DropOldest)

	result := make(chan string, 1)
	go func() {
		item, ok := c.Receive(context.Background())
		if !ok {
			result <- ""
			return
		}
		result <- item
	}()

	time.Sleep(10 * time.Millisecond)
	c.Send("frame")

	select {
	case got := <-result:
		if got != "frame" {
			t.Fatalf("expected %q, got %q", "frame", got)
		}
	case <-time.After(time.Second):
		t.Fatal("receive did not wake after send")
	}
}

func TestBoundedCloseWakesAllWaiters(t *testing.T) {
	c := newBounded[int](1, DropOldest)

	woken := make(chan bool, 2)
	for range 2 {
		go func() {
			_, ok := c.Receive(context.Background())
			woken <- ok
		}()
	}

	time.Sleep(10 * time.Millisecond)
	c.Close()
	c.Close() // idempotent

	for range 2 {
		select {
		case ok := <-woken:
			if ok {
				t.Fatal("expected closed signal, got an item")
			}
		case <-time.After(time.Second):
			t.Fatal("waiter not woken by close")
		}
	}

	if c.Send(1) {
		t.Fatal("send after close must be refused")
	}
}

func TestBoundedCloseDrainsQueuedItems(t *testing.T) {
	c := newBounded[int](4, DropOldest)
	c.Send(1)
	c.Send(2)
	c.Close()

	if got, ok := c.Receive(context.Background()); !ok || got != 1 {
		t.Fatalf("expected queued item 1 after close, got %d (ok=%t)", got, ok)
	}
	if got, ok := c.Receive(context.Background()); !ok || got != 2 {
		t.Fatalf("expected queued item 2 after close, got %d (ok=%t)", got, ok)
	}
	if _, ok := c.Receive(context.Background()); ok {
		t.Fatal("expected closed signal once drained")
	}
}

func TestBoundedReceiveHonoursContext(t *testing.T) {
	c := newBounded[int](1, DropOldest)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, ok := c.Receive(ctx); ok {
		t.Fatal("expected receive to give up on context expiry")
	}
}
