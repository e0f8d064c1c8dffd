package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  The
// admission engine drives the Tx variants inside its transaction; the
// plain methods serve handlers and the sweeper.  All timestamp fields
// are naive local values (no timezone conversion happens anywhere in
// the reservation path).
type ReservationRepo struct{ DB *sql.DB }

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

const reservationColumns = `id, location_restaurant_id, location_address_id, name, phone, places, start_time, end_time, is_started, is_finished`

func scanReservation(row interface {
	Scan(dest ...interface{}) error
}) (model.Reservation, error) {
	var (
		res     model.Reservation
		rawID   string
		rawRest string
		rawAddr string
		endTime sql.NullTime
	)
	err := row.Scan(&rawID, &rawRest, &rawAddr, &res.Name, &res.Phone, &res.Places,
		&res.StartTime, &endTime, &res.IsStarted, &res.IsFinished)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.ID, err = uuid.Parse(rawID); err != nil {
		return model.Reservation{}, err
	}
	if res.LocationRestaurantID, err = uuid.Parse(rawRest); err != nil {
		return model.Reservation{}, err
	}
	if res.LocationAddressID, err = uuid.Parse(rawAddr); err != nil {
		return model.Reservation{}, err
	}
	if endTime.Valid {
		t := endTime.Time
		res.EndTime = &t
	}
	return res, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction.  The row always starts pending: is_started and
// is_finished false, end_time NULL, regardless of what the caller put
// in those fields.  The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.EndTime = nil
	res.IsStarted = false
	res.IsFinished = false
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (id, location_restaurant_id, location_address_id, name, phone, places, start_time, end_time, is_started, is_finished)
         VALUES (?,?,?,?,?,?,?,NULL,0,0)`,
		res.ID.String(), res.LocationRestaurantID.String(), res.LocationAddressID.String(),
		res.Name, res.Phone, res.Places, res.StartTime)
	return err
}

// UpdateTx overwrites a reservation row within a transaction.  Status
// fields and end_time are preserved as passed in; the admission engine
// carries them over from the row it loaded.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE reservations SET location_restaurant_id=?, location_address_id=?, name=?, phone=?, places=?, start_time=? WHERE id=?`,
		res.LocationRestaurantID.String(), res.LocationAddressID.String(),
		res.Name, res.Phone, res.Places, res.StartTime, res.ID.String())
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// GetActiveByIDTx loads an unfinished reservation inside a transaction,
// taking a row lock so a concurrent sweep or staff action cannot flip
// its status mid-admission.  Finished reservations are invisible here:
// they are immutable.
func (r *ReservationRepo) GetActiveByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (model.Reservation, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id=? AND is_finished=0 LIMIT 1 FOR UPDATE`,
		id.String())
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// FindActiveByLocationAndDateTx returns the pending reservations
// (is_started=0, is_finished=0) of a location whose start_time falls on
// the given calendar date, excluding excludeID when non-nil.  The
// admission engine sums their places to compute what is already
// reserved for the date.
func (r *ReservationRepo) FindActiveByLocationAndDateTx(ctx context.Context, tx *sql.Tx, restaurantID, addressID uuid.UUID, date time.Time, excludeID uuid.UUID) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE location_restaurant_id=? AND location_address_id=?
              AND DATE(start_time)=? AND is_started=0 AND is_finished=0`
	args := []interface{}{restaurantID.String(), addressID.String(), date.Format("2006-01-02")}
	if excludeID != uuid.Nil {
		query += ` AND id<>?`
		args = append(args, excludeID.String())
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetByID fetches a reservation by id.
func (r *ReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Reservation, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id=? LIMIT 1`, id.String())
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// FindByClient lists reservations matching the customer name and phone,
// newest first.
func (r *ReservationRepo) FindByClient(ctx context.Context, name, phone string) ([]model.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE name=? AND phone=? ORDER BY start_time DESC`,
		name, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// FindOverdueUnstarted returns reservations that were never started nor
// finished and whose start_time is before the cutoff.  The sweeper
// finalizes these.
func (r *ReservationRepo) FindOverdueUnstarted(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE is_finished=0 AND is_started=0 AND start_time<?`,
		cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Start marks a reservation as started.  Finished rows are untouchable.
func (r *ReservationRepo) Start(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE reservations SET is_started=1 WHERE id=? AND is_finished=0`, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Finish marks a reservation as finished and stamps end_time.  The
/// is_finished=0 guard makes the operation idempotent: a second call
// (or a sweep racing a staff action) affects zero rows.
func (r *ReservationRepo) Finish(ctx context.Context, id uuid.UUID, endTime time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE reservations SET is_finished=1, end_time=? WHERE id=? AND is_finished=0`,
		endTime, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReservationDetail is a reservation joined with its restaurant and
// address for display.  It is returned by GetDetail and used directly
// as a response body by the reservation handler.
type ReservationDetail struct {
	ID         uuid.UUID  `json:"id"`
	Restaurant string     `json:"restaurant"`
	City       string     `json:"city"`
	Street     string     `json:"street"`
	House      string     `json:"house"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Places     int        `json:"places"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	IsStarted  bool       `json:"is_started"`
	IsFinished bool       `json:"is_finished"`
}

// GetDetail returns a reservation with restaurant and address info.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uuid.UUID) (*ReservationDetail, error) {
	const q = `SELECT r.id, rest.name, a.city, a.street, a.house,
                      r.name, r.phone, r.places, r.start_time, r.end_time, r.is_started, r.is_finished
               FROM reservations r
               JOIN restaurants rest ON rest.id = r.location_restaurant_id
               JOIN addresses a ON a.id = r.location_address_id
               WHERE r.id = ?`
	var (
		det     ReservationDetail
		rawID   string
		endTime sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, q, id.String()).Scan(
		&rawID, &det.Restaurant, &det.City, &det.Street, &det.House,
		&det.Name, &det.Phone, &det.Places, &det.StartTime, &endTime,
		&det.IsStarted, &det.IsFinished,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if det.ID, err = uuid.Parse(rawID); err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		det.EndTime = &t
	}
	return &det, nil
}
