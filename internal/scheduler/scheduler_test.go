package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkiosk/priceboard/internal/config"
	"github.com/openkiosk/priceboard/internal/pipeline"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) RunOnce(context.Context) (pipeline.Result, error) {
	r.calls.Add(1)
	if r.err != nil {
		return pipeline.Result{}, r.err
	}
	return pipeline.Result{Extracted: 3, Inserted: 3}, nil
}

func TestCronSpec(t *testing.T) {
	tests := []struct {
		at      string
		want    string
		wantErr bool
	}{
		{at: "06:00", want: "0 6 * * *"},
		{at: "23:59", want: "59 23 * * *"},
		{at: "00:00", want: "0 0 * * *"},
		{at: "6", wantErr: true},
		{at: "24:00", wantErr: true},
		{at: "12:60", wantErr: true},
		{at: "ab:cd", wantErr: true},
		{at: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			got, err := cronSpec(tt.at)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_ValidConfig(t *testing.T) {
	s, err := New(&countingRunner{}, config.ScheduleConfig{At: "06:00", Timezone: "Europe/Berlin"})
	require.NoError(t, err)
	assert.Equal(t, "0 6 * * *", s.spec)
}

func TestNew_BadTimezone(t *testing.T) {
	_, err := New(&countingRunner{}, config.ScheduleConfig{At: "06:00", Timezone: "Mars/Olympus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestNew_BadTime(t *testing.T) {
	_, err := New(&countingRunner{}, config.ScheduleConfig{At: "noon", Timezone: "UTC"})
	require.Error(t, err)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	s, err := New(&countingRunner{}, config.ScheduleConfig{At: "06:00", Timezone: "UTC"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestFire_RunFailureDoesNotPanic(t *testing.T) {
	r := &countingRunner{err: pipeline.ErrRunInProgress}
	s, err := New(r, config.ScheduleConfig{At: "06:00", Timezone: "UTC"})
	require.NoError(t, err)

	s.fire()
	assert.Equal(t, int32(1), r.calls.Load())

	r.err = &pipeline.StageError{Stage: pipeline.StageFetch, Err: context.DeadlineExceeded}
	s.fire()
	assert.Equal(t, int32(2), r.calls.Load())
}
