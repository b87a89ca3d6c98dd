package pipeline

import "github.com/roach88/zapgen/internal/generator"

// InputResult is the outcome of one processed input. File is empty for a
// blank session.
type InputResult struct {
	File      string
	SessionID int64
	Output    string
	Err       error
}

// Report describes a finished (or aborted) run.
type Report struct {
	Mode              string
	StorePath         string
	StoreCleaned      bool
	MetadataPackageID int64
	TemplatePackageID int64
	Inputs            []InputResult
	Warnings          []string
	Generation        *generator.Result
}

// Failed returns the inputs that failed.
func (r *Report) Failed() []InputResult {
	var failed []InputResult
	for _, in := range r.Inputs {
		if in.Err != nil {
			failed = append(failed, in)
		}
	}
	return failed
}

// Sessions returns the ids of the sessions created by the run, in input
// order.
func (r *Report) Sessions() []int64 {
	var ids []int64
	for _, in := range r.Inputs {
		if in.Err == nil && in.SessionID != 0 {
			ids = append(ids, in.SessionID)
		}
	}
	return ids
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
