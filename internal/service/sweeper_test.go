package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

func seedReservation(store *memStore, start time.Time, started, finished bool) uuid.UUID {
	id := uuid.New()
	store.reservations[id] = model.Reservation{
		ID:                   id,
		LocationRestaurantID: uuid.New(),
		LocationAddressID:    uuid.New(),
		Name:                 "Anna",
		Phone:                "+79991112233",
		Places:               2,
		StartTime:            start,
		IsStarted:            started,
		IsFinished:           finished,
	}
	return id
}

func TestSweepGraceBoundary(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)

	overdue := seedReservation(store, now.Add(-10*time.Minute-time.Second), false, false)
	fresh := seedReservation(store, now.Add(-9*time.Minute), false, false)
	// Exactly at the cutoff stays: the comparison is strict.
	boundary := seedReservation(store, now.Add(-10*time.Minute), false, false)

	sw := service.NewSweeper(store, 0, 10*time.Minute)
	n := sw.SweepOnce(context.Background(), now)
	require.Equal(t, 1, n)

	assert.True(t, store.reservations[overdue].IsFinished)
	assert.NotNil(t, store.reservations[overdue].EndTime)
	assert.False(t, store.reservations[fresh].IsFinished)
	assert.False(t, store.reservations[boundary].IsFinished)
}

func TestSweepSkipsStartedAndFinished(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)
	old := now.Add(-2 * time.Hour)

	started := seedReservation(store, old, true, false)
	finished := seedReservation(store, old, false, true)

	sw := service.NewSweeper(store, 0, 0)
	n := sw.SweepOnce(context.Background(), now)
	require.Zero(t, n)

	assert.True(t, store.reservations[started].IsStarted)
	assert.False(t, store.reservations[started].IsFinished)
	assert.Nil(t, store.reservations[finished].EndTime)
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)
	seedReservation(store, now.Add(-time.Hour), false, false)

	sw := service.NewSweeper(store, 0, 0)
	require.Equal(t, 1, sw.SweepOnce(context.Background(), now))
	require.Zero(t, sw.SweepOnce(context.Background(), now))
}

func TestSweepContinuesPastRowFailure(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)
	old := now.Add(-time.Hour)

	broken := seedReservation(store, old, false, false)
	healthy := seedReservation(store, old, false, false)
	store.finishErr[broken] = errors.New("deadlock")

	sw := service.NewSweeper(store, 0, 0)
	n := sw.SweepOnce(context.Background(), now)

	require.Equal(t, 1, n)
	assert.True(t, store.reservations[healthy].IsFinished)
	assert.False(t, store.reservations[broken].IsFinished)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := newMemStore()
	sw := service.NewSweeper(store, 5*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
