// Package loop runs callbacks one at a time on a single goroutine. Transport
// readers, position sources, timers and HTTP handlers post work here so the
// state they touch never needs a lock.
package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/phuslu/log"
)

var ErrStopped = errors.New("loop stopped")

type Loop struct {
	log   log.Logger
	tasks chan func()
	done  chan struct{}
}

func New(size int) *Loop {
	l := &Loop{}
	l.log = log.DefaultLogger
	l.log.Context = log.NewContext(nil).Str("module", "loop").Value()
	l.tasks = make(chan func(), size)
	l.done = make(chan struct{})
	return l
}

// Run executes posted functions until ctx is done. It must be called once.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	l.log.Debug().Msg("loop started")
	for {
		select {
		case <-ctx.Done():
			l.log.Debug().Int("pending", len(l.tasks)).Msg("loop stopped")
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn and reports whether the loop accepted it.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if !l.Post(func() {
		fn()
		close(ran)
	}) {
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrStopped
		}
	}
}

func (l *Loop) Done() <-chan struct{} {
	return l.done
}

type Timer interface {
	Stop() bool
}

const (
	taskPending int32 = iota
	taskFired
	taskStopped
)

// Task is a callback scheduled on the loop after a delay.
type Task struct {
	state int32
	timer *time.Timer
}

// Stop cancels the task. It returns false if the task already ran or was
// stopped before.
func (t *Task) Stop() bool {
	if !atomic.CompareAndSwapInt32(&t.state, taskPending, taskStopped) {
		return false
	}
	t.timer.Stop()
	return true
}

// AfterFunc runs fn on the loop once d has elapsed, unless stopped first.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &Task{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if atomic.CompareAndSwapInt32(&t.state, taskPending, taskFired) {
				fn()
			}
		})
	})
	return t
}
