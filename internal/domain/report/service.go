package report

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Built-in pick lists used when the sink cannot be reached. A degraded
// sink must never block a conversation.
var (
	DefaultStopReasons = []string{
		"Обрыв полотна",
		"Переналадка",
		"Плановая остановка",
		"Поломка оборудования",
		"Нет сырья",
	}
	DefaultDefectTypes = []string{
		"Царапина",
		"Геометрия",
		"Разнотон",
		"Включения",
		"Непроклей",
	}
)

// ReferenceService caches the sink's pick lists with a short TTL so that
// every prompt does not turn into an external call. On fetch failure it
// serves stale data, and built-in defaults when it has nothing at all.
type ReferenceService struct {
	sink Sink
	ttl  time.Duration
	log  zerolog.Logger

	mu          sync.RWMutex
	reasons     []string
	defects     []string
	lastFetched time.Time
}

// NewReferenceService builds the cache around the given sink.
func NewReferenceService(sink Sink, ttl time.Duration, log zerolog.Logger) *ReferenceService {
	return &ReferenceService{
		sink: sink,
		ttl:  ttl,
		log:  log.With().Str("component", "reference_cache").Logger(),
	}
}

// StopReasons returns the stop-reason pick list, refreshing the cache if
// expired. It never fails; degraded results fall back to defaults.
func (s *ReferenceService) StopReasons(ctx context.Context) []string {
	reasons, _ := s.lists(ctx)
	return reasons
}

// DefectTypes returns the defect-type pick list with the same degradation
// rules as StopReasons.
func (s *ReferenceService) DefectTypes(ctx context.Context) []string {
	_, defects := s.lists(ctx)
	return defects
}

func (s *ReferenceService) lists(ctx context.Context) ([]string, []string) {
	s.mu.RLock()
	if time.Since(s.lastFetched) < s.ttl && s.reasons != nil {
		reasons, defects := s.reasons, s.defects
		s.mu.RUnlock()
		return reasons, defects
	}
	s.mu.RUnlock()

	if err := s.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reference list refresh failed")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	reasons, defects := s.reasons, s.defects
	if reasons == nil {
		reasons = DefaultStopReasons
	}
	if defects == nil {
		defects = DefaultDefectTypes
	}
	return reasons, defects
}

// Refresh fetches both lists from the sink and replaces the cache. Stale
// data is kept when a fetch fails.
func (s *ReferenceService) Refresh(ctx context.Context) error {
	reasons, rerr := s.sink.ListStopReasons(ctx)
	defects, derr := s.sink.ListDefectTypes(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rerr == nil && len(reasons) > 0 {
		s.reasons = reasons
	}
	if derr == nil && len(defects) > 0 {
		s.defects = defects
	}
	if rerr != nil {
		return rerr
	}
	if derr != nil {
		return derr
	}
	s.lastFetched = time.Now()
	return nil
}
