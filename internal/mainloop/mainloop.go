package mainloop

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultQueueSize = 64

// Dispatcher is the boundary between the background poller and the GUI
// thread. It stands in for the toolkit's "run on the main thread soon"
// primitive: background code schedules closures, the GUI thread drains them
// one at a time.
type Dispatcher struct {
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		queue: make(chan func(), defaultQueueSize),
		done:  make(chan struct{}),
	}
}

// Schedule enqueues fn for execution on the consuming thread. Blocks when
// the queue is full, which keeps the background loop from outrunning a
// stalled GUI. Once the dispatcher stopped, callbacks are dropped.
func (d *Dispatcher) Schedule(fn func()) {
	select {
	case d.queue <- fn:
	case <-d.done:
		logrus.Warn("main loop dispatcher stopped, dropping callback")
	}
}

// Run drains the queue until ctx is cancelled. It is intended to be called
// from the thread that owns the widget state.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.stopOnce.Do(func() { close(d.done) })

	for {
		select {
		case <-ctx.Done():
			logrus.Info("stopping main loop dispatcher")
			return
		case fn := <-d.queue:
			d.invoke(fn)
		}
	}
}

func (d *Dispatcher) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("dispatched callback panicked: %v", r)
		}
	}()

	fn()
}
