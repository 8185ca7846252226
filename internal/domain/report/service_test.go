package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSink struct {
	mu      sync.Mutex
	reasons []string
	defects []string
	err     error
	calls   int
}

func (s *stubSink) Append(context.Context, Flow, *Record) error { return nil }
func (s *stubSink) CancelLast(context.Context, string) (bool, error) { return false, nil }

func (s *stubSink) ListStopReasons(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.reasons, nil
}

func (s *stubSink) ListDefectTypes(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.defects, nil
}

func (s *stubSink) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestReferenceServiceFetchesAndCaches(t *testing.T) {
	sink := &stubSink{reasons: []string{"Обед"}, defects: []string{"Пятно"}}
	svc := NewReferenceService(sink, time.Minute, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, []string{"Обед"}, svc.StopReasons(ctx))
	assert.Equal(t, []string{"Пятно"}, svc.DefectTypes(ctx))

	// Within the TTL the sink is not consulted again.
	before := sink.listCalls()
	svc.StopReasons(ctx)
	svc.DefectTypes(ctx)
	assert.Equal(t, before, sink.listCalls())
}

func TestReferenceServiceDefaultsWhenSinkDown(t *testing.T) {
	sink := &stubSink{err: errors.New("sheets unavailable")}
	svc := NewReferenceService(sink, time.Minute, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, DefaultStopReasons, svc.StopReasons(ctx))
	assert.Equal(t, DefaultDefectTypes, svc.DefectTypes(ctx))
}

func TestReferenceServiceServesStaleOnFailure(t *testing.T) {
	sink := &stubSink{reasons: []string{"Обед"}, defects: []string{"Пятно"}}
	svc := NewReferenceService(sink, time.Nanosecond, zerolog.Nop())
	ctx := context.Background()

	require.Equal(t, []string{"Обед"}, svc.StopReasons(ctx))

	// TTL has lapsed and the sink is now failing; the cached lists win
	// over the defaults.
	sink.mu.Lock()
	sink.err = errors.New("quota exceeded")
	sink.mu.Unlock()
	time.Sleep(time.Millisecond)

	assert.Equal(t, []string{"Обед"}, svc.StopReasons(ctx))
	assert.Equal(t, []string{"Пятно"}, svc.DefectTypes(ctx))
}

func TestRefreshReplacesLists(t *testing.T) {
	sink := &stubSink{reasons: []string{"Обед"}, defects: []string{"Пятно"}}
	svc := NewReferenceService(sink, time.Hour, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx))

	sink.mu.Lock()
	sink.reasons = []string{"Обед", "Пересменка"}
	sink.mu.Unlock()

	require.NoError(t, svc.Refresh(ctx))
	assert.Equal(t, []string{"Обед", "Пересменка"}, svc.StopReasons(ctx))
}

func TestRefreshReportsError(t *testing.T) {
	sink := &stubSink{err: errors.New("boom")}
	svc := NewReferenceService(sink, time.Hour, zerolog.Nop())
	assert.Error(t, svc.Refresh(context.Background()))
}
