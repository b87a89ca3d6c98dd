package pipeline

// job is one input file to process, with its position in the input list.
type job struct {
	Index int
	File  string
}

// inputQueue is the FIFO of jobs for one run. It is drained by the run's
// goroutine only, so a job is dequeued after the previous one has returned.
type inputQueue struct {
	jobs []job
}

func newInputQueue(files []string) *inputQueue {
	q := &inputQueue{jobs: make([]job, 0, len(files))}
	for i, f := range files {
		q.jobs = append(q.jobs, job{Index: i, File: f})
	}
	return q
}

// drain runs fn on each job in FIFO order until the queue is empty.
func (q *inputQueue) drain(fn func(job)) {
	for len(q.jobs) > 0 {
		j := q.jobs[0]
		q.jobs = q.jobs[1:]
		fn(j)
	}
}
