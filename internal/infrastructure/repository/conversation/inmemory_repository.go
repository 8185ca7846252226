package conversation

import (
	"sync"
	"time"

	"github.com/extruline/report-bot/internal/domain/flow"
)

// InMemoryStore keeps the conversation table in a mutex-guarded map.
// There is exactly one conversation per operator id and the table only
// grows in the order of active operators, so a plain map is enough.
type InMemoryStore struct {
	mu    sync.RWMutex
	convs map[int64]*flow.Conversation
}

var _ flow.Store = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty conversation table.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{convs: make(map[int64]*flow.Conversation)}
}

func (s *InMemoryStore) Get(operatorID int64) (*flow.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[operatorID]
	return c, ok
}

func (s *InMemoryStore) Put(conv *flow.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.OperatorID] = conv
}

func (s *InMemoryStore) Touch(operatorID int64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[operatorID]; ok {
		c.LastActivity = t
	}
}

func (s *InMemoryStore) Delete(operatorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, operatorID)
}

func (s *InMemoryStore) IdleSince(cutoff time.Time) []*flow.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*flow.Conversation
	for _, c := range s.convs {
		if !c.LastActivity.After(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}
