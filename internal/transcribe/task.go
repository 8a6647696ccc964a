package transcribe

import "context"

// Task is the handle of one transcription attempt. The batch item carries the
// outcome; the task only signals completion.
type Task struct {
	ItemID  string
	Attempt uint64

	done    chan struct{}
	err     error
	applied bool
}

func newTask(itemID string, attempt uint64) *Task {
	return &Task{ItemID: itemID, Attempt: attempt, done: make(chan struct{})}
}

func completedTask(itemID string, err error, applied bool) *Task {
	t := newTask(itemID, 0)
	t.complete(err, applied)
	return t
}

func (t *Task) complete(err error, applied bool) {
	t.err = err
	t.applied = applied
	close(t.done)
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err is the attempt's failure, nil on success. Valid once Done is closed.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

// Applied reports whether the outcome reached the batch item. It is false
// when the item was removed or a newer attempt superseded this one.
func (t *Task) Applied() bool {
	<-t.done
	return t.applied
}

// Wait blocks until the attempt settles or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
