package report

import "context"

// Sink is the external append-only log the finished reports go to. It also
// owns the reference pick-lists the prompts are built from.
type Sink interface {
	// Append writes one completed record to the log selected by flow.
	Append(ctx context.Context, flow Flow, rec *Record) error

	// CancelLast marks the operator's most recent record as cancelled.
	// It returns false when the operator has no records.
	CancelLast(ctx context.Context, operator string) (bool, error)

	// ListStopReasons returns the ordered stop-reason pick list.
	ListStopReasons(ctx context.Context) ([]string, error)

	// ListDefectTypes returns the ordered defect-type pick list.
	ListDefectTypes(ctx context.Context) ([]string, error)
}
