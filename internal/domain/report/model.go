package report

import (
	"fmt"
	"time"
)

// Flow identifies which of the two report logs a record belongs to.
type Flow string

const (
	// FlowStartStop covers line start/stop events.
	FlowStartStop Flow = "startstop"
	// FlowDefect covers scrap reports.
	FlowDefect Flow = "defect"
)

// Action is the stored value for a start/stop event, lower-case as the
// operators expect to see it in the log.
type Action string

const (
	ActionStart Action = "запуск"
	ActionStop  Action = "остановка"
)

// Record is a completed report ready to be appended to a log. Field values
// are already validated and normalized by the flow engine; Date and Time
// keep the operator-facing display form (dd.mm.yyyy / hh:mm).
type Record struct {
	Date        string
	Time        string
	Line        int
	Action      Action // start/stop flow only
	Reason      string // stop events only
	ZNP         string
	ScrapMeters int
	DefectType  string // empty means "no defect"
	Operator    string
	SubmittedAt time.Time
}

// Validate checks that every field mandated by the flow is populated.
// A record that fails here must never reach the sink.
func (r *Record) Validate(flow Flow) error {
	if r.Line < 1 || r.Line > 15 {
		return fmt.Errorf("line %d out of range", r.Line)
	}
	if r.Date == "" {
		return fmt.Errorf("date is empty")
	}
	if r.Time == "" {
		return fmt.Errorf("time is empty")
	}
	if r.ZNP == "" {
		return fmt.Errorf("reference code is empty")
	}
	if r.ScrapMeters < 0 {
		return fmt.Errorf("scrap length %d is negative", r.ScrapMeters)
	}
	if r.Operator == "" {
		return fmt.Errorf("operator is empty")
	}
	if r.SubmittedAt.IsZero() {
		return fmt.Errorf("submission timestamp is zero")
	}

	switch flow {
	case FlowStartStop:
		if r.Action != ActionStart && r.Action != ActionStop {
			return fmt.Errorf("unknown action %q", r.Action)
		}
		if r.Action == ActionStop && r.Reason == "" {
			return fmt.Errorf("stop event without a reason")
		}
	case FlowDefect:
		if r.Action != "" {
			return fmt.Errorf("defect record carries action %q", r.Action)
		}
	default:
		return fmt.Errorf("unknown flow %q", flow)
	}
	return nil
}
