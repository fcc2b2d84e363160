// Package result carries the pass/error/fail vocabulary shared by every
// verifier, plus the failure aggregate that replaces throw-on-first-mismatch
// with collect-then-report.
package result

import (
	"strings"
)

// Status summarizes one script file after execution.
type Status string

const (
	StatusPassed Status = "passed"
	StatusError  Status = "error"
	StatusFailed Status = "failed"
)

// IsBad reports whether a status needs the user's attention.
func IsBad(s Status) bool {
	return s == StatusError || s == StatusFailed
}

// Reduce returns the more severe of two statuses. Failures outrank harness
// errors, which outrank passes.
func Reduce(a, b Status) Status {
	if a == StatusFailed || b == StatusFailed {
		return StatusFailed
	}
	if a == StatusError || b == StatusError {
		return StatusError
	}
	return StatusPassed
}

// ContextSize bounds how much trailing activity a failure records.
const ContextSize = 12

// Context is the recent activity surrounding a failure. Only the fields
// relevant to the failing check are populated.
type Context struct {
	Messages []string
	Syscalls []string
	Commands []string
	Buffer   *BufferExcerpt
}

// BufferExcerpt pins a failure to a location in a buffer snapshot.
type BufferExcerpt struct {
	Buffer int // 0 means the buffer that was current at load time
	Lines  []string
	Line   int // 0-based cursor position at failure time
	Start  int
	End    int
}

// Failure is one verification failure with the context captured at the point
// of detection. Diagnostic failures are reported but do not fail the test.
type Failure struct {
	Desc       string
	Line       int
	Diagnostic bool
	Context    Context
}

func (f *Failure) Error() string {
	return f.Desc
}

// Failures aggregates independent failures from one verification pass.
// The zero value is empty and usable.
type Failures struct {
	list []*Failure
}

func NewFailures() *Failures {
	return &Failures{}
}

// Add records err. A *Failure is appended as-is, a *Failures is spliced in
// flattened, anything else is wrapped in a plain Failure. nil is ignored.
func (fs *Failures) Add(err error) {
	switch e := err.(type) {
	case nil:
	case *Failure:
		fs.list = append(fs.list, e)
	case *Failures:
		fs.list = append(fs.list, e.Flattened()...)
	default:
		fs.list = append(fs.list, &Failure{Desc: err.Error()})
	}
}

// Flattened returns the collected failures in arrival order.
func (fs *Failures) Flattened() []*Failure {
	return fs.list
}

func (fs *Failures) Empty() bool {
	return len(fs.list) == 0
}

// Significant reports whether any collected failure should fail the test.
func (fs *Failures) Significant() bool {
	for _, f := range fs.list {
		if !f.Diagnostic {
			return true
		}
	}
	return false
}

// Err returns the aggregate as an error, or nil when nothing was collected.
func (fs *Failures) Err() error {
	if fs.Empty() {
		return nil
	}
	return fs
}

func (fs *Failures) Error() string {
	if len(fs.list) == 1 {
		return fs.list[0].Error()
	}
	descs := make([]string, len(fs.list))
	for i, f := range fs.list {
		descs[i] = f.Error()
	}
	return "Multiple failures:\n" + strings.Join(descs, "\n\n")
}

// Tail returns at most n trailing elements of list.
func Tail(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[len(list)-n:]
}
