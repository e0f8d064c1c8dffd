// Package service contains the reservation admission engine and the
// lifecycle sweeper.  The admission engine is the single write path
// for reservations: every create and every client-side update goes
// through it, so the capacity rules cannot be bypassed by a handler.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// ErrValidation marks requests that are malformed before any store
// access happens.  Handlers map it to 400.
var ErrValidation = errors.New("validation failed")

// AdmissionError is a rejection of a well-formed request by the
// capacity or working-hours rules.  Handlers map it to 409.
type AdmissionError struct {
	Reason string
}

func (e *AdmissionError) Error() string { return e.Reason }

// The three distinct rejection reasons.  Callers compare with
// errors.Is so the messages stay stable.
var (
	ErrOutsideWorkingHours  = &AdmissionError{Reason: "reservation time is outside of location working hours"}
	ErrCapacityInsufficient = &AdmissionError{Reason: "location capacity is smaller than the requested places"}
	ErrNotEnoughFreePlaces  = &AdmissionError{Reason: "not enough free places at the location for that date"}
)

// LocationStore is the slice of LocationRepo the engine needs.
type LocationStore interface {
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, restaurantID, addressID uuid.UUID) (model.Location, error)
}

// ReservationStore is the slice of ReservationRepo the engine needs.
type ReservationStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, r *model.Reservation) error
	UpdateTx(ctx context.Context, tx *sql.Tx, r *model.Reservation) (bool, error)
	GetActiveByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (model.Reservation, error)
	FindActiveByLocationAndDateTx(ctx context.Context, tx *sql.Tx, restaurantID, addressID uuid.UUID, date time.Time, excludeID uuid.UUID) ([]model.Reservation, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Reservation, error)
}

// CreateReservationRequest carries the client-controlled fields of a
// new reservation.  Status fields are owned by the engine and the
// sweeper and cannot be set here.
type CreateReservationRequest struct {
	LocationRestaurantID uuid.UUID
	LocationAddressID    uuid.UUID
	Name                 string
	Phone                string
	Places               int
	StartTime            time.Time
}

// UpdateReservationRequest carries the optional replacement fields for
// an existing reservation.  A nil field keeps the stored value.
type UpdateReservationRequest struct {
	LocationRestaurantID *uuid.UUID
	LocationAddressID    *uuid.UUID
	Name                 *string
	Phone                *string
	Places               *int
	StartTime            *time.Time
}

type admissionKey struct {
	restaurant uuid.UUID
	address    uuid.UUID
	date       string
}

// AdmissionEngine serializes reservation writes per (restaurant,
// address, date) and enforces the working-hours and capacity rules.
//
// Two layers guard against write skew: an in-process keyed mutex and
// a SELECT ... FOR UPDATE on the location row inside the transaction.
// The row lock is the authoritative one; the mutex keeps contention
// away from the database and makes the engine testable without one.
type AdmissionEngine struct {
	runner       repository.TxRunner
	locations    LocationStore
	reservations ReservationStore

	mu    sync.Mutex
	locks map[admissionKey]*sync.Mutex
}

// NewAdmissionEngine builds an engine over the given stores.
func NewAdmissionEngine(runner repository.TxRunner, locations LocationStore, reservations ReservationStore) *AdmissionEngine {
	return &AdmissionEngine{
		runner:       runner,
		locations:    locations,
		reservations: reservations,
		locks:        make(map[admissionKey]*sync.Mutex),
	}
}

func (e *AdmissionEngine) lockFor(key admissionKey) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

func keyFor(restaurantID, addressID uuid.UUID, start time.Time) admissionKey {
	return admissionKey{
		restaurant: restaurantID,
		address:    addressID,
		date:       start.Format("2006-01-02"),
	}
}

// sumPlaces adds up the places of the given active reservations.
func sumPlaces(rs []model.Reservation) int {
	total := 0
	for _, r := range rs {
		total += r.Places
	}
	return total
}

// checkAdmission applies the admission rules for a request of the
// given size starting at start, against a location that already has
// reserved places committed for the same date.  The checks run in a
// fixed order so a request failing several rules always reports the
// same reason.
func checkAdmission(loc model.Location, reserved, places int, start time.Time) error {
	if loc.Open == nil || loc.Close == nil {
		return ErrOutsideWorkingHours
	}
	at := model.TimeOfDay{Hour: start.Hour(), Minute: start.Minute(), Second: start.Second()}
	// Strict bounds: starting exactly at open or close is rejected.
	if !at.After(*loc.Open) || !at.Before(*loc.Close) {
		return ErrOutsideWorkingHours
	}
	if loc.Places < places {
		return ErrCapacityInsufficient
	}
	if loc.Places-reserved < places {
		return ErrNotEnoughFreePlaces
	}
	return nil
}

func validateCreate(req CreateReservationRequest) error {
	switch {
	case req.LocationRestaurantID == uuid.Nil || req.LocationAddressID == uuid.Nil:
		return fmt.Errorf("%w: location is required", ErrValidation)
	case req.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case req.Phone == "":
		return fmt.Errorf("%w: phone is required", ErrValidation)
	case req.Places <= 0:
		return fmt.Errorf("%w: places must be positive", ErrValidation)
	case req.StartTime.IsZero():
		return fmt.Errorf("%w: start time is required", ErrValidation)
	}
	return nil
}

// Create admits a new reservation.  On success the reservation is
// stored in the pending state and its id is returned.
func (e *AdmissionEngine) Create(ctx context.Context, req CreateReservationRequest) (model.Reservation, error) {
	if err := validateCreate(req); err != nil {
		return model.Reservation{}, err
	}

	lock := e.lockFor(keyFor(req.LocationRestaurantID, req.LocationAddressID, req.StartTime))
	lock.Lock()
	defer lock.Unlock()

	res := model.Reservation{
		ID:                   uuid.New(),
		LocationRestaurantID: req.LocationRestaurantID,
		LocationAddressID:    req.LocationAddressID,
		Name:                 req.Name,
		Phone:                req.Phone,
		Places:               req.Places,
		StartTime:            req.StartTime,
	}
	err := e.runner.RunTx(ctx, func(tx *sql.Tx) error {
		loc, err := e.locations.GetForUpdateTx(ctx, tx, req.LocationRestaurantID, req.LocationAddressID)
		if err != nil {
			return err
		}
		active, err := e.reservations.FindActiveByLocationAndDateTx(ctx, tx, req.LocationRestaurantID, req.LocationAddressID, req.StartTime, uuid.Nil)
		if err != nil {
			return err
		}
		if err := checkAdmission(loc, sumPlaces(active), req.Places, req.StartTime); err != nil {
			return err
		}
		return e.reservations.CreateTx(ctx, tx, &res)
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// Update re-admits an existing reservation with replacement fields.
// The reservation's own places are excluded from the occupancy sum,
// so growing a party only needs the extra seats to be free.  Started
// or finished reservations cannot be updated.
func (e *AdmissionEngine) Update(ctx context.Context, id uuid.UUID, req UpdateReservationRequest) (model.Reservation, error) {
	if id == uuid.Nil {
		return model.Reservation{}, fmt.Errorf("%w: reservation id is required", ErrValidation)
	}
	if req.Places != nil && *req.Places <= 0 {
		return model.Reservation{}, fmt.Errorf("%w: places must be positive", ErrValidation)
	}

	// Pre-read outside the transaction to pick the mutex key.  The
	// row is re-read under FOR UPDATE inside the transaction, which
	// remains the authoritative guard if the row moved in between.
	before, err := e.reservations.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	target := applyUpdate(before, req)
	if err := validateCreate(CreateReservationRequest{
		LocationRestaurantID: target.LocationRestaurantID,
		LocationAddressID:    target.LocationAddressID,
		Name:                 target.Name,
		Phone:                target.Phone,
		Places:               target.Places,
		StartTime:            target.StartTime,
	}); err != nil {
		return model.Reservation{}, err
	}

	lock := e.lockFor(keyFor(target.LocationRestaurantID, target.LocationAddressID, target.StartTime))
	lock.Lock()
	defer lock.Unlock()

	var updated model.Reservation
	err = e.runner.RunTx(ctx, func(tx *sql.Tx) error {
		current, err := e.reservations.GetActiveByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = applyUpdate(current, req)

		loc, err := e.locations.GetForUpdateTx(ctx, tx, updated.LocationRestaurantID, updated.LocationAddressID)
		if err != nil {
			return err
		}
		active, err := e.reservations.FindActiveByLocationAndDateTx(ctx, tx, updated.LocationRestaurantID, updated.LocationAddressID, updated.StartTime, id)
		if err != nil {
			return err
		}
		if err := checkAdmission(loc, sumPlaces(active), updated.Places, updated.StartTime); err != nil {
			return err
		}
		ok, err := e.reservations.UpdateTx(ctx, tx, &updated)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return updated, nil
}

func applyUpdate(r model.Reservation, req UpdateReservationRequest) model.Reservation {
	if req.LocationRestaurantID != nil {
		r.LocationRestaurantID = *req.LocationRestaurantID
	}
	if req.LocationAddressID != nil {
		r.LocationAddressID = *req.LocationAddressID
	}
	if req.Name != nil {
		r.Name = *req.Name
	}
	if req.Phone != nil {
		r.Phone = *req.Phone
	}
	if req.Places != nil {
		r.Places = *req.Places
	}
	if req.StartTime != nil {
		r.StartTime = *req.StartTime
	}
	return r
}
