package timer

import "github.com/daviddao/sprout/pkg/model"

// NoticeKind tells completion and abort notices apart.
type NoticeKind = model.BlockEventKind

// Notice describes a focus block that just finished or was interrupted.
type Notice struct {
	Kind   NoticeKind          `json:"kind"`
	Config model.Configuration `json:"config"`
	// Block is the 1-based number of the focus block within the session.
	Block          int `json:"block"`
	PlannedSeconds int `json:"planned_seconds"`
	SpentSeconds   int `json:"spent_seconds"`
}

// Last reports whether the notice is for the final focus block of its session.
func (n Notice) Last() bool {
	return !n.Config.BreaksEnabled || n.Block >= n.Config.Blocks()
}

// Sink receives focus block notifications. The engine calls exactly one of
// the two methods at most once per focus block, synchronously, before any
// phase transition that follows.
type Sink interface {
	FocusBlockCompleted(Notice)
	FocusBlockAborted(Notice)
}

// SinkFuncs adapts a pair of functions to Sink. Nil functions are skipped.
type SinkFuncs struct {
	Completed func(Notice)
	Aborted   func(Notice)
}

func (f SinkFuncs) FocusBlockCompleted(n Notice) {
	if f.Completed != nil {
		f.Completed(n)
	}
}

func (f SinkFuncs) FocusBlockAborted(n Notice) {
	if f.Aborted != nil {
		f.Aborted(n)
	}
}

// Multi fans a notice out to several sinks in order.
type Multi []Sink

func (m Multi) FocusBlockCompleted(n Notice) {
	for _, s := range m {
		s.FocusBlockCompleted(n)
	}
}

func (m Multi) FocusBlockAborted(n Notice) {
	for _, s := range m {
		s.FocusBlockAborted(n)
	}
}

// Queue buffers notices so a consumer can handle them after the engine
// call returns (for example to persist them without doing I/O inside
// Tick). Emission order is preserved. Not goroutine-safe, like the engine.
type Queue struct {
	pending []Notice
}

func (q *Queue) FocusBlockCompleted(n Notice) { q.pending = append(q.pending, n) }

func (q *Queue) FocusBlockAborted(n Notice) { q.pending = append(q.pending, n) }

// Len returns the number of buffered notices.
func (q *Queue) Len() int { return len(q.pending) }

// Drain returns the buffered notices in emission order and empties the queue.
func (q *Queue) Drain() []Notice {
	out := q.pending
	q.pending = nil
	return out
}

// Flush drains the queue into s, preserving emission order, and returns the
// number of notices delivered.
func (q *Queue) Flush(s Sink) int {
	pending := q.Drain()
	for _, n := range pending {
		switch n.Kind {
		case model.BlockCompleted:
			s.FocusBlockCompleted(n)
		case model.BlockAborted:
			s.FocusBlockAborted(n)
		}
	}
	return len(pending)
}

type nopSink struct{}

func (nopSink) FocusBlockCompleted(Notice) {}
func (nopSink) FocusBlockAborted(Notice)   {}
