package call

import "callcenter-core/pkg/constants"

// dispatcher is the single serialized execution context of a call center.
// Every mutation of call state runs as a task on its one goroutine; engine
// callbacks and public operations only enqueue.
type dispatcher struct {
	tasks chan func()
	quit  chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		tasks: make(chan func(), constants.DispatcherQueueSize),
		quit:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	for {
		select {
		case <-d.quit:
			return
		case task := <-d.tasks:
			task()
		}
	}
}

// dispatch enqueues a task for asynchronous execution. Tasks enqueued after
// stop are dropped.
func (d *dispatcher) dispatch(task func()) {
	select {
	case <-d.quit:
	case d.tasks <- task:
	}
}

// call runs a task on the dispatcher and waits for it to finish. It must not
// be invoked from the dispatcher goroutine itself.
func (d *dispatcher) call(task func()) {
	done := make(chan struct{})
	d.dispatch(func() {
		task()
		close(done)
	})
	select {
	case <-done:
	case <-d.quit:
	}
}

func (d *dispatcher) stop() {
	select {
	case <-d.quit:
	default:
		close(d.quit)
	}
}
