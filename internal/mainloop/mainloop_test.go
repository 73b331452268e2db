package mainloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherRunsCallbacksInOrder(t *testing.T) {
	d := NewDispatcher()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	var order []int
	done := make(chan struct{})

	d.Schedule(func() { order = append(order, 1) })
	d.Schedule(func() { order = append(order, 2) })
	d.Schedule(func() {
		order = append(order, 3)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callbacks did not run")
	}

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDispatcherRecoversFromPanic(t *testing.T) {
	d := NewDispatcher()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	done := make(chan struct{})

	d.Schedule(func() { panic("boom") })
	d.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher stopped after panic")
	}
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	d := NewDispatcher()

	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(stopped)
	}()

	cancel()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	// With nothing draining the queue anymore, even more callbacks than
	// the queue holds must not block the caller.
	overfilled := make(chan struct{})
	go func() {
		for i := 0; i < defaultQueueSize+8; i++ {
			d.Schedule(func() {})
		}
		close(overfilled)
	}()

	select {
	case <-overfilled:
	case <-time.After(5 * time.Second):
		t.Fatal("Schedule blocked after the dispatcher stopped")
	}
}
