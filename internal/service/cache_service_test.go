package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
)

type stubCacheRepo struct {
	getErr   error
	setCalls int
	patterns []string
	lastTTL  time.Duration
}

func (s *stubCacheRepo) Get(context.Context, string, interface{}) error { return s.getErr }

func (s *stubCacheRepo) Set(_ context.Context, _ string, _ interface{}, ttl time.Duration) error {
	s.setCalls++
	s.lastTTL = ttl
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func TestCacheServiceMissAndHit(t *testing.T) {
	repo := &stubCacheRepo{getErr: appErrors.ErrCacheMiss}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	hit, err := svc.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)

	repo.getErr = nil
	hit, err = svc.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 0.5, metrics.Snapshot().CacheHitRatio)

	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	assert.Equal(t, time.Minute, repo.lastTTL)
	require.NoError(t, svc.Invalidate(context.Background(), "report:course:*"))
	assert.Equal(t, []string{"report:course:*"}, repo.patterns)
}

func TestCacheServiceBackendError(t *testing.T) {
	repo := &stubCacheRepo{getErr: errors.New("redis down")}
	svc := NewCacheService(repo, nil, 0, nil, true)
	hit, err := svc.Get(context.Background(), "k", &struct{}{})
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &stubCacheRepo{}
	svc := NewCacheService(repo, nil, 0, nil, false)
	hit, err := svc.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	assert.Zero(t, repo.setCalls)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.NoError(t, nilSvc.Invalidate(context.Background(), "x"))
}

func TestMetricsServiceLedgerCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordRegistration(OutcomeAccepted)
	m.RecordRegistration("duplicate_enrollment")
	m.RecordAttendanceMark("MANUAL", OutcomeAlreadyRecorded)
	m.ObserveStoreCall("list_courses", nil, time.Millisecond)
	m.ObserveHTTPRequest("GET", "/health", 200, 2*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.Registrations)
	assert.Equal(t, uint64(1), snap.AttendanceMarks)
	assert.Equal(t, uint64(1), snap.StoreCalls)
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 2.0, snap.AverageRequestDurationMs, 0.01)

	var nilMetrics *MetricsService
	nilMetrics.RecordRegistration(OutcomeAccepted)
	assert.Equal(t, MetricsSnapshot{}, nilMetrics.Snapshot())
}
