package storage

import (
	"log"
	"sync"
)

// Queue is a bounded task queue with a single consumer goroutine. The
// session store and ban set submit their file writes here so that no
// connection-handling path ever blocks on disk I/O.
type Queue struct {
	tasks chan func()
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue with the given buffer size and starts its worker.
func NewQueue(size int) *Queue {
	q := &Queue{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for task := range q.tasks {
		task()
	}
}

// Submit enqueues a task without blocking. Tasks submitted after Close, or
// while the buffer is full, are dropped; persistence is best-effort and the
// in-memory state stays authoritative.
func (q *Queue) Submit(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	select {
	case q.tasks <- task:
		return true
	default:
		log.Printf("storage: persistence queue full, dropping write")
		return false
	}
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	<-q.done
}
