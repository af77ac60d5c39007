package jobrunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/turf-wars/internal/domain/season"
)

type firedJob struct {
	kind         season.JobKind
	seasonNumber int
}

func TestRunner_FiresArmedJob(t *testing.T) {
	t.Parallel()

	runner, err := New(context.Background(), Config{PoolSize: 2}, nil)
	require.NoError(t, err)
	defer runner.Close()

	fired := make(chan firedJob, 1)
	runner.SetHandler(func(_ context.Context, kind season.JobKind, seasonNumber int) error {
		fired <- firedJob{kind: kind, seasonNumber: seasonNumber}
		return nil
	})

	_, err = runner.RunJob(context.Background(), season.JobSeasonEnd, 7, time.Now().Add(10*time.Millisecond))
	require.NoError(t, err)

	select {
	case got := <-fired:
		assert.Equal(t, season.JobSeasonEnd, got.kind)
		assert.Equal(t, 7, got.seasonNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("armed job never fired")
	}
}

func TestRunner_FiresPastDueJobImmediately(t *testing.T) {
	t.Parallel()

	runner, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)
	defer runner.Close()

	fired := make(chan firedJob, 1)
	runner.SetHandler(func(_ context.Context, kind season.JobKind, seasonNumber int) error {
		fired <- firedJob{kind: kind, seasonNumber: seasonNumber}
		return nil
	})

	_, err = runner.RunJob(context.Background(), season.JobWarning1h, 3, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	select {
	case got := <-fired:
		assert.Equal(t, season.JobWarning1h, got.kind)
	case <-time.After(2 * time.Second):
		t.Fatal("past-due job never fired")
	}
}

func TestRunner_CancelledJobDoesNotFire(t *testing.T) {
	t.Parallel()

	runner, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)
	defer runner.Close()

	fired := make(chan firedJob, 1)
	runner.SetHandler(func(_ context.Context, kind season.JobKind, seasonNumber int) error {
		fired <- firedJob{kind: kind, seasonNumber: seasonNumber}
		return nil
	})

	jobID, err := runner.RunJob(context.Background(), season.JobSeasonEnd, 1, time.Now().Add(100*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, runner.CancelJob(context.Background(), jobID))

	select {
	case <-fired:
		t.Fatal("cancelled job fired")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRunner_CancelUnknownJobIsNoop(t *testing.T) {
	t.Parallel()

	runner, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)
	defer runner.Close()

	assert.NoError(t, runner.CancelJob(context.Background(), "job-that-never-was"))
}

func TestRunner_RejectsJobsAfterClose(t *testing.T) {
	t.Parallel()

	runner, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)
	runner.Close()

	_, err = runner.RunJob(context.Background(), season.JobSeasonEnd, 1, time.Now())
	assert.Error(t, err)
}
