package eval

import "fmt"

// JudgeError reports malformed or out-of-range judge output. The item keeps
// its answer and is recorded as PARTIAL.
type JudgeError struct {
	Reason string
	Raw    string
}

func (e *JudgeError) Error() string {
	return fmt.Sprintf("invalid judge output: %s", e.Reason)
}

// DatasetError reports a schema violation in a dataset file. Fatal for the run
// before any items are dispatched.
type DatasetError struct {
	Line   int
	Reason string
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("dataset line %d: %s", e.Line, e.Reason)
}

// SystemicError reports a failure affecting every item of a run, such as an
// unreachable vector index. The run is FAILED wholesale and no summary is
// produced.
type SystemicError struct {
	Reason string
	Err    error
}

func (e *SystemicError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("systemic run failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("systemic run failure: %s", e.Reason)
}

func (e *SystemicError) Unwrap() error {
	return e.Err
}
