package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// nopTxRunner satisfies repository.TxRunner without a database; the
// in-memory stores ignore the nil transaction handle.
type nopTxRunner struct{}

func (nopTxRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type locationKey struct {
	restaurant uuid.UUID
	address    uuid.UUID
}

// memStore backs the engine and the sweeper in tests.  It mirrors the
// SQL repositories' behavior: status fields survive updates, lookups
// of finished rows miss, and Finish is idempotent.
type memStore struct {
	mu           sync.Mutex
	locations    map[locationKey]model.Location
	reservations map[uuid.UUID]model.Reservation
	finishErr    map[uuid.UUID]error
}

func newMemStore() *memStore {
	return &memStore{
		locations:    make(map[locationKey]model.Location),
		reservations: make(map[uuid.UUID]model.Reservation),
		finishErr:    make(map[uuid.UUID]error),
	}
}

func (s *memStore) addLocation(loc model.Location) {
	s.locations[locationKey{loc.RestaurantID, loc.AddressID}] = loc
}

func (s *memStore) GetForUpdateTx(ctx context.Context, tx *sql.Tx, restaurantID, addressID uuid.UUID) (model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[locationKey{restaurantID, addressID}]
	if !ok {
		return model.Location{}, repository.ErrNotFound
	}
	return loc, nil
}

func (s *memStore) CreateTx(ctx context.Context, tx *sql.Tx, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.EndTime = nil
	r.IsStarted = false
	r.IsFinished = false
	s.reservations[r.ID] = *r
	return nil
}

func (s *memStore) UpdateTx(ctx context.Context, tx *sql.Tx, r *model.Reservation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reservations[r.ID]
	if !ok {
		return false, nil
	}
	next := *r
	next.EndTime = cur.EndTime
	next.IsStarted = cur.IsStarted
	next.IsFinished = cur.IsFinished
	s.reservations[r.ID] = next
	return true, nil
}

func (s *memStore) GetActiveByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.IsFinished {
		return model.Reservation{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *memStore) FindActiveByLocationAndDateTx(ctx context.Context, tx *sql.Tx, restaurantID, addressID uuid.UUID, date time.Time, excludeID uuid.UUID) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := date.Format("2006-01-02")
	out := make([]model.Reservation, 0)
	for _, r := range s.reservations {
		if r.LocationRestaurantID != restaurantID || r.LocationAddressID != addressID {
			continue
		}
		if r.IsStarted || r.IsFinished || r.StartTime.Format("2006-01-02") != day {
			continue
		}
		if excludeID != uuid.Nil && r.ID == excludeID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *memStore) FindOverdueUnstarted(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0)
	for _, r := range s.reservations {
		if !r.IsFinished && !r.IsStarted && r.StartTime.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Finish(ctx context.Context, id uuid.UUID, endTime time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finishErr[id]; err != nil {
		return false, err
	}
	r, ok := s.reservations[id]
	if !ok || r.IsFinished {
		return false, nil
	}
	r.IsFinished = true
	r.EndTime = &endTime
	s.reservations[id] = r
	return true, nil
}

func mustTimeOfDay(t *testing.T, s string) *model.TimeOfDay {
	t.Helper()
	tod, err := model.ParseTimeOfDay(s)
	require.NoError(t, err)
	return &tod
}

func testLocation(t *testing.T, places int) model.Location {
	t.Helper()
	return model.Location{
		RestaurantID: uuid.New(),
		AddressID:    uuid.New(),
		Places:       places,
		Open:         mustTimeOfDay(t, "10:00"),
		Close:        mustTimeOfDay(t, "22:00"),
	}
}

func createReq(loc model.Location, places int, start time.Time) service.CreateReservationRequest {
	return service.CreateReservationRequest{
		LocationRestaurantID: loc.RestaurantID,
		LocationAddressID:    loc.AddressID,
		Name:                 "Ivan Petrov",
		Phone:                "+79990001122",
		Places:               places,
		StartTime:            start,
	}
}

func TestCreateEnforcesFreePlaces(t *testing.T) {
	store := newMemStore()
	loc := testLocation(t, 5)
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	ctx := context.Background()
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)

	_, err := engine.Create(ctx, createReq(loc, 3, start))
	require.NoError(t, err)

	_, err = engine.Create(ctx, createReq(loc, 3, start))
	require.ErrorIs(t, err, service.ErrNotEnoughFreePlaces)

	_, err = engine.Create(ctx, createReq(loc, 2, start))
	require.NoError(t, err)

	_, err = engine.Create(ctx, createReq(loc, 1, start))
	assert.ErrorIs(t, err, service.ErrNotEnoughFreePlaces)
}

func TestCreateRejectsPartyLargerThanCapacity(t *testing.T) {
	store := newMemStore()
	loc := testLocation(t, 5)
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)

	_, err := engine.Create(context.Background(), createReq(loc, 6, start))
	require.ErrorIs(t, err, service.ErrCapacityInsufficient)
}

func TestCreateWorkingHoursBoundsAreStrict(t *testing.T) {
	store := newMemStore()
	loc := testLocation(t, 100)
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.Local)

	at := func(h, m, s int) time.Time {
		return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
	}

	_, err := engine.Create(ctx, createReq(loc, 2, at(10, 0, 0)))
	assert.ErrorIs(t, err, service.ErrOutsideWorkingHours, "start exactly at opening is rejected")

	_, err = engine.Create(ctx, createReq(loc, 2, at(22, 0, 0)))
	assert.ErrorIs(t, err, service.ErrOutsideWorkingHours, "start exactly at closing is rejected")

	_, err = engine.Create(ctx, createReq(loc, 2, at(9, 59, 59)))
	assert.ErrorIs(t, err, service.ErrOutsideWorkingHours)

	_, err = engine.Create(ctx, createReq(loc, 2, at(10, 0, 1)))
	assert.NoError(t, err)

	_, err = engine.Create(ctx, createReq(loc, 2, at(21, 59, 59)))
	assert.NoError(t, err)
}

func TestCreateRejectsLocationWithoutHours(t *testing.T) {
	store := newMemStore()
	loc := model.Location{RestaurantID: uuid.New(), AddressID: uuid.New(), Places: 10}
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)

	_, err := engine.Create(context.Background(), createReq(loc, 2, time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)))
	require.ErrorIs(t, err, service.ErrOutsideWorkingHours)
}

func TestCreateValidatesRequest(t *testing.T) {
	store := newMemStore()
	loc := testLocation(t, 5)
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	ctx := context.Background()
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)

	req := createReq(loc, 0, start)
	_, err := engine.Create(ctx, req)
	assert.ErrorIs(t, err, service.ErrValidation)

	req = createReq(loc, 2, start)
	req.Name = ""
	_, err = engine.Create(ctx, req)
	assert.ErrorIs(t, err, service.ErrValidation)

	req = createReq(loc, 2, start)
	req.Phone = ""
	_, err = engine.Create(ctx, req)
	assert.ErrorIs(t, err, service.ErrValidation)

	req = createReq(loc, 2, time.Time{})
	_, err = engine.Create(ctx, req)
	assert.ErrorIs(t, err, service.ErrValidation)

	req = createReq(loc, 2, start)
	req.LocationRestaurantID = uuid.Nil
	_, err = engine.Create(ctx, req)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestCreateUnknownLocation(t *testing.T) {
	store := newMemStore()
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	loc := testLocation(t, 5)

	_, err := engine.Create(context.Background(), createReq(loc, 2, time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)))
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateCountsOnlySameDate(t *testing.T) {
	store := newMemStore()
	loc := testLocation(t, 5)
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	ctx := context.Background()

	_, err := engine.Create(ctx, createReq(loc, 5, time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)))
	require.NoError(t, err)

	// The next day starts empty even though the 14th is full.
	_, err = engine.Create(ctx, createReq(loc, 5, time.Date(2026, 3, 15, 18, 0, 0, 0, time.Local)))
	require.NoError(t, err)
}

func TestUpdateExcludesOwnPlacesFromOccupancy(t *testing.T) {
	store := newMemStore()
	loc := testLocation(t, 10)
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	ctx := context.Background()
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)

	mine, err := engine.Create(ctx, createReq(loc, 4, start))
	require.NoError(t, err)
	_, err = engine.Create(ctx, createReq(loc, 5, start))
	require.NoError(t, err)

	// 5 places are held by the other party; growing from 4 to 5 only
	// needs one extra seat out of the 5 still free.
	five := 5
	updated, err := engine.Update(ctx, mine.ID, service.UpdateReservationRequest{Places: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Places)

	six := 6
	_, err = engine.Update(ctx, mine.ID, service.UpdateReservationRequest{Places: &six})
	require.ErrorIs(t, err, service.ErrNotEnoughFreePlaces)
}

func TestUpdateGrowsToFullCapacityWhenAlone(t *testing.T) {
	store := newMemStore()
	loc := testLocation(t, 10)
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	ctx := context.Background()

	res, err := engine.Create(ctx, createReq(loc, 4, time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)))
	require.NoError(t, err)

	ten := 10
	updated, err := engine.Update(ctx, res.ID, service.UpdateReservationRequest{Places: &ten})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Places)
}

func TestUpdateFinishedReservationNotFound(t *testing.T) {
	store := newMemStore()
	loc := testLocation(t, 10)
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	ctx := context.Background()

	res, err := engine.Create(ctx, createReq(loc, 2, time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)))
	require.NoError(t, err)

	ok, err := store.Finish(ctx, res.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	three := 3
	_, err = engine.Update(ctx, res.ID, service.UpdateReservationRequest{Places: &three})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateValidatesPlaces(t *testing.T) {
	store := newMemStore()
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)

	zero := 0
	_, err := engine.Update(context.Background(), uuid.New(), service.UpdateReservationRequest{Places: &zero})
	require.ErrorIs(t, err, service.ErrValidation)
}

// Hammer one location-date with more single-seat requests than the
// location holds; exactly capacity many must get through.
func TestConcurrentAdmissionsNeverOverbook(t *testing.T) {
	store := newMemStore()
	loc := testLocation(t, 10)
	store.addLocation(loc)
	engine := service.NewAdmissionEngine(nopTxRunner{}, store, store)
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)

	const attempts = 40
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Create(context.Background(), createReq(loc, 1, start))
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
		} else {
			require.ErrorIs(t, err, service.ErrNotEnoughFreePlaces)
		}
	}
	assert.Equal(t, 10, admitted)
}

func TestAdmissionErrorUnwrapsByValue(t *testing.T) {
	var admission *service.AdmissionError
	assert.True(t, errors.As(error(service.ErrNotEnoughFreePlaces), &admission))
	assert.False(t, errors.Is(service.ErrNotEnoughFreePlaces, service.ErrOutsideWorkingHours))
}
