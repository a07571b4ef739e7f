package convert

import (
	"errors"
	"fmt"
)

// Outcome is the terminal state of one event.
type Outcome string

const (
	Converted Outcome = "converted"
	Skipped   Outcome = "skipped"
	Failed    Outcome = "failed"
)

// Skip reasons.
const (
	ReasonNotCreate     = "not an object-created event"
	ReasonAlreadyTarget = "key already has the target extension"
	ReasonNotSource     = "key has no source extension"
)

// Stage names carried by StageError.
const (
	StageDecode = "decode"
	StageFetch  = "fetch"
	StageRender = "render"
	StageWrite  = "write"
)

// StageError reports which step of a conversion failed.
type StageError struct {
	Stage string
	Key   string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Key, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a single event.
type Result struct {
	Event      Event   `json:"event"`
	Key        string  `json:"key,omitempty"`
	DerivedKey string  `json:"derived_key,omitempty"`
	Outcome    Outcome `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	Err        error   `json:"-"`
}

// Results holds one Result per event, in input order.
type Results []Result

// Counts summarizes a batch.
type Counts struct {
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Err joins the errors of all failed events. It is nil when none failed.
func (r Results) Err() error {
	var errs []error
	for _, res := range r {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

func (r Results) Counts() Counts {
	var c Counts
	for _, res := range r {
		switch res.Outcome {
		case Converted:
			c.Converted++
		case Skipped:
			c.Skipped++
		case Failed:
			c.Failed++
		}
	}
	return c
}
