// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync"
)

// Call is one recorded call. Seq starts at 1 and increases by one per
// recorded call.
type Call struct {
	Seq     int64
	Op      string
	Subject string
}

// String renders the call as "op(subject)".
func (c Call) String() string {
	return fmt.Sprintf("%s(%s)", c.Op, c.Subject)
}

// Recorder records the order of calls made on instrumented fakes and
// tracks how many operations were in flight at once.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	mu          sync.Mutex
	seq         int64
	calls       []Call
	inFlight    int
	maxInFlight int
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a call and returns its sequence number.
func (r *Recorder) Record(op, subject string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.calls = append(r.calls, Call{Seq: r.seq, Op: op, Subject: subject})
	return r.seq
}

// Begin records op as started and returns a function that records it as
// finished. Use it to check that operations never overlap:
//
//	done := rec.Begin("import", file)
//	defer done()
func (r *Recorder) Begin(op, subject string) func() {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	r.mu.Unlock()
	r.Record(op+":begin", subject)

	return func() {
		r.Record(op+":end", subject)
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}
}

// Calls returns a copy of the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Strings returns the recorded calls rendered with Call.String.
func (r *Recorder) Strings() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// MaxInFlight returns the highest number of operations that were between
// Begin and their finish function at the same time.
func (r *Recorder) MaxInFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInFlight
}

// Reset clears all recorded state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq = 0
	r.calls = nil
	r.inFlight = 0
	r.maxInFlight = 0
}
