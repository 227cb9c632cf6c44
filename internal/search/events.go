package search

import (
	"fmt"
	"sync"

	"github.com/harrison/mailscan/internal/models"
)

// Emitter delivers engine events to a single consumer over a channel.
// Emit never blocks: events are queued and a pump goroutine forwards them
// in order. A nil *Emitter discards everything.
type Emitter struct {
	out    chan models.Event
	notify chan struct{}

	mu     sync.Mutex
	queue  []models.Event
	closed bool
	once   sync.Once
}

// NewEmitter starts an Emitter whose events are read from Events.
func NewEmitter() *Emitter {
	e := &Emitter{
		out:    make(chan models.Event),
		notify: make(chan struct{}, 1),
	}
	go e.pump()
	return e
}

// Events returns the receive side of the event stream. It is closed after
// Close once every queued event has been delivered.
func (e *Emitter) Events() <-chan models.Event {
	return e.out
}

// Emit queues ev for delivery. Events emitted after Close are dropped.
func (e *Emitter) Emit(ev models.Event) {
	if e == nil {
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, ev)
	e.mu.Unlock()

	e.wake()
}

// Logf emits a log event at level.
func (e *Emitter) Logf(level, format string, args ...interface{}) {
	if e == nil {
		return
	}
	e.Emit(models.Event{
		Kind:    models.EventLog,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

// Progress emits a progress update.
func (e *Emitter) Progress(p models.Progress) {
	if e == nil {
		return
	}
	e.Emit(models.Event{
		Kind:     models.EventProgress,
		Level:    models.LevelInfo,
		Message:  fmt.Sprintf("Progress: %d/%d targets searched", p.Completed, p.Total),
		Progress: p,
	})
}

// Done emits the completion notice.
func (e *Emitter) Done(message string, p models.Progress) {
	if e == nil {
		return
	}
	e.Emit(models.Event{
		Kind:     models.EventDone,
		Level:    models.LevelInfo,
		Message:  message,
		Progress: p,
	})
}

// Close stops accepting events. Queued events are still delivered.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		e.wake()
	})
}

func (e *Emitter) wake() {
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

func (e *Emitter) pump() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			closed := e.closed
			e.mu.Unlock()
			if closed {
				close(e.out)
				return
			}
			<-e.notify
			continue
		}
		ev := e.queue[0]
		e.queue[0] = models.Event{}
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.out <- ev
	}
}
