// package event
//
// lifecycle events flowing out of the task runner. Listeners are injected,
// the engine never knows who consumes them.
package event

import "time"

// TaskStarted : emitted once before the first table
type TaskStarted struct {
	RunID    string
	SourceDB string
	TargetDB string
	Tables   []string
	At       time.Time
}

// TableStarted : emitted when a table leaves PENDING
type TableStarted struct {
	RunID       string
	SourceTable string
	TargetTable string
	Index       int
	Total       int
	SourceRows  int64
	At          time.Time
}

// TableProgress : emitted between batches while streaming
type TableProgress struct {
	RunID       string
	SourceTable string
	RowsRead    int64
	RowsWritten int64
	SourceRows  int64
	Batches     int64
}

// TableCompleted : emitted exactly once per table when it reaches a
// terminal state
type TableCompleted struct {
	RunID       string
	SourceTable string
	TargetTable string
	Status      string
	RowsRead    int64
	RowsWritten int64
	SourceCount int64
	TargetCount int64
	Verified    bool
	Duration    time.Duration
	Err         string
}

// TaskCompleted : emitted once after the last table with aggregate counts
type TaskCompleted struct {
	RunID         string
	Status        string
	TotalTables   int
	SuccessTables int
	FailedTables  int
	SkippedTables int
	TotalRows     int64
	Duration      time.Duration
	FirstError    string
}

// Listener : observer of task lifecycle. Implementations must be safe to
// call from concurrently running table migrations and must never block the
// engine for long.
type Listener interface {
	OnTaskStarted(ev TaskStarted)
	OnTableStarted(ev TableStarted)
	OnTableProgress(ev TableProgress)
	OnTableCompleted(ev TableCompleted)
	OnTaskCompleted(ev TaskCompleted)
}

// Fanout : broadcasts every event to all listeners in order
type Fanout []Listener

func (f Fanout) OnTaskStarted(ev TaskStarted) {
	for _, l := range f {
		l.OnTaskStarted(ev)
	}
}

func (f Fanout) OnTableStarted(ev TableStarted) {
	for _, l := range f {
		l.OnTableStarted(ev)
	}
}

func (f Fanout) OnTableProgress(ev TableProgress) {
	for _, l := range f {
		l.OnTableProgress(ev)
	}
}

func (f Fanout) OnTableCompleted(ev TableCompleted) {
	for _, l := range f {
		l.OnTableCompleted(ev)
	}
}

func (f Fanout) OnTaskCompleted(ev TaskCompleted) {
	for _, l := range f {
		l.OnTaskCompleted(ev)
	}
}

// Nop : discards everything, the default when nothing is wired
type Nop struct{}

func (Nop) OnTaskStarted(TaskStarted)       {}
func (Nop) OnTableStarted(TableStarted)     {}
func (Nop) OnTableProgress(TableProgress)   {}
func (Nop) OnTableCompleted(TableCompleted) {}
func (Nop) OnTaskCompleted(TaskCompleted)   {}
