package runner

import (
	"github.com/google/vroom/result"
	"github.com/google/vroom/trace"
)

// Logs groups the three verification traces of one file run. They exist for
// failure context and diagnostics, never for control flow.
type Logs struct {
	Messages *trace.Log
	Commands *trace.Log
	Syscalls *trace.Log
}

func NewLogs() *Logs {
	return &Logs{
		Messages: trace.NewLog(),
		Commands: trace.NewLog(),
		Syscalls: trace.NewLog(),
	}
}

// Outcome is the terminal status of one test segment, attributed to the
// script line that was executing when it concluded.
type Outcome struct {
	Status result.Status
	Line   int
	Err    error
}

// Failures flattens the outcome's error into reportable failures. Errors
// outside the failure taxonomy (a dead editor, a broken fake shell) yield
// none; callers render those through Err directly.
func (o Outcome) Failures() []*result.Failure {
	switch e := o.Err.(type) {
	case *result.Failure:
		return []*result.Failure{e}
	case *result.Failures:
		return e.Flattened()
	}
	return nil
}

// Report accumulates everything one file run produced.
type Report struct {
	Filename    string
	Outcomes    []Outcome
	Diagnostics []*result.Failure
	Logs        *Logs
}

func (r *Report) record(status result.Status, line int, err error) {
	r.Outcomes = append(r.Outcomes, Outcome{Status: status, Line: line, Err: err})
}

func (r *Report) diagnose(failures []*result.Failure) {
	r.Diagnostics = append(r.Diagnostics, failures...)
}

// Status reduces the outcomes to the file's overall status. Any failure
// outranks any error, which outranks passing.
func (r *Report) Status() result.Status {
	status := result.StatusPassed
	for _, o := range r.Outcomes {
		status = result.Reduce(status, o.Status)
	}
	return status
}

// Stats tallies outcomes per status.
type Stats struct {
	Total   int
	Passed  int
	Errored int
	Failed  int
}

func (r *Report) Stats() Stats {
	s := Stats{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.Status {
		case result.StatusFailed:
			s.Failed++
		case result.StatusError:
			s.Errored++
		default:
			s.Passed++
		}
	}
	return s
}
