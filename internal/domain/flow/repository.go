package flow

import (
	"context"
	"time"
)

// Store holds the conversation state table. Implementations must be safe
// for concurrent use; per-operator ordering is the engine's job.
type Store interface {
	Get(operatorID int64) (*Conversation, bool)
	Put(conv *Conversation)
	Delete(operatorID int64)

	// Touch records activity on a stored conversation. The timestamp
	// write happens under the store's lock so IdleSince snapshots never
	// observe it mid-flight.
	Touch(operatorID int64, t time.Time)

	// IdleSince returns conversations whose last activity is at or before
	// the cutoff. The result is a snapshot; callers must re-check under
	// the operator lock before acting on it.
	IdleSince(cutoff time.Time) []*Conversation

	Len() int
}

// Messenger delivers prompts and notices to the operator's chat.
// Delivery is best effort; failures are logged by the caller and never
// surfaced to the operator as a second error.
type Messenger interface {
	Send(ctx context.Context, chatID int64, p Prompt) error
}

// ReferenceLists supplies the pick lists the reason and defect-type
// prompts are built from.
type ReferenceLists interface {
	StopReasons(ctx context.Context) []string
	DefectTypes(ctx context.Context) []string
}
