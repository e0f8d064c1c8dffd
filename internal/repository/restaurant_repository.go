package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// RestaurantRepo encapsulates database operations for restaurants.
type RestaurantRepo struct{ DB *sql.DB }

func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{DB: db} }

// Create inserts a restaurant.  A duplicate name maps to ErrConflict.
func (r *RestaurantRepo) Create(ctx context.Context, name, description string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO restaurants (id, name, description) VALUES (?,?,?)`,
		id.String(), name, description)
	if err != nil {
		if isDuplicateEntry(err) {
			return uuid.Nil, ErrConflict
		}
		return uuid.Nil, err
	}
	return id, nil
}

// GetByID fetches one restaurant.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Restaurant, error) {
	var (
		rest model.Restaurant
		raw  string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, description FROM restaurants WHERE id=? LIMIT 1`,
		id.String()).Scan(&raw, &rest.Name, &rest.Description)
	if err == sql.ErrNoRows {
		return model.Restaurant{}, ErrNotFound
	}
	if err != nil {
		return model.Restaurant{}, err
	}
	rest.ID, err = uuid.Parse(raw)
	return rest, err
}

// List returns all restaurants ordered by name.
func (r *RestaurantRepo) List(ctx context.Context) ([]model.Restaurant, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, description FROM restaurants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Restaurant, 0)
	for rows.Next() {
		var (
			rest model.Restaurant
			raw  string
		)
		if err := rows.Scan(&raw, &rest.Name, &rest.Description); err != nil {
			return nil, err
		}
		if rest.ID, err = uuid.Parse(raw); err != nil {
			return nil, err
		}
		out = append(out, rest)
	}
	return out, rows.Err()
}

// Update overwrites the name/description; empty strings keep the stored value.
func (r *RestaurantRepo) Update(ctx context.Context, id uuid.UUID, name, description string) (bool, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if name == "" {
		name = current.Name
	}
	if description == "" {
		description = current.Description
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE restaurants SET name=?, description=? WHERE id=?`,
		name, description, id.String())
	if err != nil {
		if isDuplicateEntry(err) {
			return false, ErrConflict
		}
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a restaurant; its locations and reservations cascade.
func (r *RestaurantRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM restaurants WHERE id=?`, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
