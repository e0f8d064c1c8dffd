package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// AddressRepo encapsulates database operations for addresses.
// Addresses are created inline by the location and employee flows and
// removed together with their owner, so the repository surface is
// intentionally small.
type AddressRepo struct{ DB *sql.DB }

func NewAddressRepo(db *sql.DB) *AddressRepo { return &AddressRepo{DB: db} }

// Create inserts an address and returns its generated id.
func (r *AddressRepo) Create(ctx context.Context, city, street, house string, apartment *string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO addresses (id, city, street, house, apartment) VALUES (?,?,?,?,?)`,
		id.String(), city, street, house, apartment)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetByID fetches one address.
func (r *AddressRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Address, error) {
	var (
		a   model.Address
		raw string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, city, street, house, apartment FROM addresses WHERE id=? LIMIT 1`,
		id.String()).Scan(&raw, &a.City, &a.Street, &a.House, &a.Apartment)
	if err == sql.ErrNoRows {
		return model.Address{}, ErrNotFound
	}
	if err != nil {
		return model.Address{}, err
	}
	a.ID, err = uuid.Parse(raw)
	return a, err
}

// Update overwrites the address fields; empty strings keep the stored value.
func (r *AddressRepo) Update(ctx context.Context, id uuid.UUID, city, street, house string, apartment *string) (bool, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if city == "" {
		city = current.City
	}
	if street == "" {
		street = current.Street
	}
	if house == "" {
		house = current.House
	}
	if apartment == nil {
		apartment = current.Apartment
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE addresses SET city=?, street=?, house=?, apartment=? WHERE id=?`,
		city, street, house, apartment, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes an address row.
func (r *AddressRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM addresses WHERE id=?`, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
