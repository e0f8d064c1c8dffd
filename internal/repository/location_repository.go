package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// LocationRepo provides data access to the locations table.  A location
// is keyed by (restaurant_id, address_id).  The places column is the
// provisioned seating capacity and is only ever written by the CRUD
// operations here; the admission engine treats it as read-only and
// derives free capacity from reservation sums.
type LocationRepo struct{ DB *sql.DB }

func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{DB: db} }

const locationColumns = `restaurant_id, address_id, places, TIME_FORMAT(open, '%H:%i:%s'), TIME_FORMAT(close, '%H:%i:%s')`

func scanLocation(row interface {
	Scan(dest ...interface{}) error
}) (model.Location, error) {
	var (
		loc        model.Location
		rawRest    string
		rawAddr    string
		openNull   sql.NullString
		closeNull  sql.NullString
	)
	err := row.Scan(&rawRest, &rawAddr, &loc.Places, &openNull, &closeNull)
	if err != nil {
		return model.Location{}, err
	}
	if loc.RestaurantID, err = uuid.Parse(rawRest); err != nil {
		return model.Location{}, err
	}
	if loc.AddressID, err = uuid.Parse(rawAddr); err != nil {
		return model.Location{}, err
	}
	if openNull.Valid {
		t, err := model.ParseTimeOfDay(openNull.String)
		if err != nil {
			return model.Location{}, err
		}
		loc.Open = &t
	}
	if closeNull.Valid {
		t, err := model.ParseTimeOfDay(closeNull.String)
		if err != nil {
			return model.Location{}, err
		}
		loc.Close = &t
	}
	return loc, nil
}

// Create inserts a location row.  Hours and capacity are required at
// creation so that the admission engine never sees a half-configured
// location for new data.
func (r *LocationRepo) Create(ctx context.Context, restaurantID, addressID uuid.UUID, places int, openAt, closeAt model.TimeOfDay) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO locations (restaurant_id, address_id, places, open, close) VALUES (?,?,?,?,?)`,
		restaurantID.String(), addressID.String(), places, openAt.String(), closeAt.String())
	if isDuplicateEntry(err) {
		return ErrConflict
	}
	return err
}

// GetByKey fetches a location by its composite key.
func (r *LocationRepo) GetByKey(ctx context.Context, restaurantID, addressID uuid.UUID) (model.Location, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE restaurant_id=? AND address_id=? LIMIT 1`,
		restaurantID.String(), addressID.String())
	loc, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return model.Location{}, ErrNotFound
	}
	return loc, err
}

// GetForUpdateTx fetches a location inside a transaction while taking a
// row lock (SELECT ... FOR UPDATE).  Concurrent admission transactions
// for the same location block here, which serializes the
// read-sum-then-insert sequence and keeps the capacity invariant from
// write skew under read-committed isolation.
func (r *LocationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, restaurantID, addressID uuid.UUID) (model.Location, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE restaurant_id=? AND address_id=? LIMIT 1 FOR UPDATE`,
		restaurantID.String(), addressID.String())
	loc, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return model.Location{}, ErrNotFound
	}
	return loc, err
}

// List returns every location.
func (r *LocationRepo) List(ctx context.Context) ([]model.Location, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+locationColumns+` FROM locations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Location, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// ListByRestaurant returns the locations of one restaurant.
func (r *LocationRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.Location, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE restaurant_id=?`, restaurantID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Location, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Update overwrites capacity and hours.  Nil values keep the stored
// ones, mirroring the partial-update convention of the API.
func (r *LocationRepo) Update(ctx context.Context, restaurantID, addressID uuid.UUID, places *int, openAt, closeAt *model.TimeOfDay) (bool, error) {
	current, err := r.GetByKey(ctx, restaurantID, addressID)
	if err != nil {
		return false, err
	}
	if places == nil {
		places = &current.Places
	}
	if openAt == nil {
		openAt = current.Open
	}
	if closeAt == nil {
		closeAt = current.Close
	}
	var openStr, closeStr interface{}
	if openAt != nil {
		openStr = openAt.String()
	}
	if closeAt != nil {
		closeStr = closeAt.String()
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE locations SET places=?, open=?, close=? WHERE restaurant_id=? AND address_id=?`,
		*places, openStr, closeStr, restaurantID.String(), addressID.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a location row.
func (r *LocationRepo) Delete(ctx context.Context, restaurantID, addressID uuid.UUID) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM locations WHERE restaurant_id=? AND address_id=?`,
		restaurantID.String(), addressID.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
