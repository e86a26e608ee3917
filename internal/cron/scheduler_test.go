package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type reconcilerStub struct {
	calls atomic.Int32
	err   error
}

func (r *reconcilerStub) ReconcileChatRooms(ctx context.Context) (int, error) {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	return 2, r.err
}

func TestPingHitsKeepAliveURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			hits.Add(1)
		}
	}))
	defer srv.Close()

	s := New(discard(), KeepAliveConfig{URL: srv.URL, Schedule: "* * * * *", Timeout: time.Second}, ReconcileConfig{}, nil, nil)
	s.ping()

	require.EqualValues(t, 1, hits.Load())
}

func TestPingToleratesUnreachableURL(t *testing.T) {
	s := New(discard(), KeepAliveConfig{URL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond}, ReconcileConfig{}, nil, nil)
	s.ping()
}

func TestReconcileRunsWithTimeout(t *testing.T) {
	rec := &reconcilerStub{err: errors.New("one order failed")}
	s := New(discard(), KeepAliveConfig{}, ReconcileConfig{Schedule: "*/5 * * * *", Timeout: time.Second}, rec, nil)

	s.reconcileChatRooms()

	require.EqualValues(t, 1, rec.calls.Load())
}

func TestStartRegistersConfiguredJobs(t *testing.T) {
	rec := &reconcilerStub{}

	s := New(discard(), KeepAliveConfig{}, ReconcileConfig{Schedule: "*/5 * * * *", Timeout: time.Second}, rec, nil)
	require.NoError(t, s.Start())
	require.Len(t, s.cron.Entries(), 1)
	s.Stop()

	s = New(discard(), KeepAliveConfig{URL: "http://localhost", Schedule: "* * * * *"}, ReconcileConfig{Schedule: "*/5 * * * *"}, rec, nil)
	require.NoError(t, s.Start())
	require.Len(t, s.cron.Entries(), 2)
	s.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(discard(), KeepAliveConfig{}, ReconcileConfig{Schedule: "every tuesday"}, &reconcilerStub{}, nil)
	require.Error(t, s.Start())
}
