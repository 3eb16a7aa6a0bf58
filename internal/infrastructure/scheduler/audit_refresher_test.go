package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	placementapp "github.com/farmtrack/backend/internal/application/placement"
	"github.com/farmtrack/backend/internal/domain/placement"
)

type countingAuditor struct {
	calls   atomic.Int32
	refresh atomic.Bool
	err     error
}

func (a *countingAuditor) Audit(_ context.Context, req placementapp.AuditRequest) (*placement.AuditReport, error) {
	a.calls.Add(1)
	a.refresh.Store(req.Refresh)
	if a.err != nil {
		return nil, a.err
	}
	return &placement.AuditReport{Scanned: 3, InSync: 3}, nil
}

func TestNewAuditRefresher_InvalidConfig(t *testing.T) {
	_, err := NewAuditRefresher(AuditRefresherConfig{}, &countingAuditor{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewAuditRefresher(AuditRefresherConfig{Interval: time.Second, RunTimeout: -time.Second}, &countingAuditor{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAuditRefresher_RunOnce(t *testing.T) {
	auditor := &countingAuditor{}
	r, err := NewAuditRefresher(AuditRefresherConfig{Interval: time.Minute}, auditor, zap.NewNop())
	require.NoError(t, err)

	r.RunOnce(context.Background())

	assert.Equal(t, int32(1), auditor.calls.Load())
	assert.True(t, auditor.refresh.Load())
	last, lastErr := r.LastRun()
	assert.False(t, last.IsZero())
	assert.NoError(t, lastErr)
}

func TestAuditRefresher_RunOnceRecordsError(t *testing.T) {
	auditor := &countingAuditor{err: errors.New("store down")}
	r, err := NewAuditRefresher(AuditRefresherConfig{Interval: time.Minute}, auditor, zap.NewNop())
	require.NoError(t, err)

	r.RunOnce(context.Background())

	_, lastErr := r.LastRun()
	assert.EqualError(t, lastErr, "store down")
}

func TestAuditRefresher_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	auditor := &countingAuditor{}
	r, err := NewAuditRefresher(AuditRefresherConfig{
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
	}, auditor, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Start(context.Background()))

	assert.Eventually(t, func() bool { return auditor.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	require.NoError(t, r.Stop(ctx))

	after := auditor.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, auditor.calls.Load())
}
