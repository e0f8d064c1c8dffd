package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// EmployeeRepo provides data access to the employees table and the
// director_servants join table.
type EmployeeRepo struct{ DB *sql.DB }

func NewEmployeeRepo(db *sql.DB) *EmployeeRepo { return &EmployeeRepo{DB: db} }

const employeeColumns = `id, identity_id, position, location_restaurant_id, location_address_id, firstname, lastname, patronymic, age, birthday, home_address_id`

func scanEmployee(row interface {
	Scan(dest ...interface{}) error
}) (model.Employee, error) {
	var (
		emp     model.Employee
		rawID   string
		rawIdent string
		rawRest sql.NullString
		rawAddr sql.NullString
		rawHome string
	)
	err := row.Scan(&rawID, &rawIdent, &emp.Position, &rawRest, &rawAddr,
		&emp.Firstname, &emp.Lastname, &emp.Patronymic, &emp.Age, &emp.Birthday, &rawHome)
	if err != nil {
		return model.Employee{}, err
	}
	if emp.ID, err = uuid.Parse(rawID); err != nil {
		return model.Employee{}, err
	}
	if emp.IdentityID, err = uuid.Parse(rawIdent); err != nil {
		return model.Employee{}, err
	}
	if emp.HomeAddressID, err = uuid.Parse(rawHome); err != nil {
		return model.Employee{}, err
	}
	if rawRest.Valid {
		id, err := uuid.Parse(rawRest.String)
		if err != nil {
			return model.Employee{}, err
		}
		emp.LocationRestaurantID = &id
	}
	if rawAddr.Valid {
		id, err := uuid.Parse(rawAddr.String)
		if err != nil {
			return model.Employee{}, err
		}
		emp.LocationAddressID = &id
	}
	return emp, nil
}

func uuidArg(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

// Create inserts an employee.  An identity can back at most one
// employee; a second insert for the same identity maps to ErrConflict.
func (r *EmployeeRepo) Create(ctx context.Context, emp *model.Employee) error {
	if emp.ID == uuid.Nil {
		emp.ID = uuid.New()
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO employees (id, identity_id, position, location_restaurant_id, location_address_id,
         firstname, lastname, patronymic, age, birthday, home_address_id) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		emp.ID.String(), emp.IdentityID.String(), emp.Position,
		uuidArg(emp.LocationRestaurantID), uuidArg(emp.LocationAddressID),
		emp.Firstname, emp.Lastname, emp.Patronymic, emp.Age,
		emp.Birthday.Format("2006-01-02"), emp.HomeAddressID.String())
	if isDuplicateEntry(err) {
		return ErrConflict
	}
	return err
}

// GetByID fetches one employee.
func (r *EmployeeRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Employee, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id=? LIMIT 1`, id.String())
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return model.Employee{}, ErrNotFound
	}
	return emp, err
}

// GetByIdentity fetches the employee backed by an identity.  The
// middleware and the reservation staff-action checks use this to map
// an authenticated account onto its restaurant.
func (r *EmployeeRepo) GetByIdentity(ctx context.Context, identityID uuid.UUID) (model.Employee, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE identity_id=? LIMIT 1`, identityID.String())
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return model.Employee{}, ErrNotFound
	}
	return emp, err
}

// List returns all employees ordered by lastname.
func (r *EmployeeRepo) List(ctx context.Context) ([]model.Employee, error) {
	return r.queryMany(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY lastname, firstname`)
}

// ListByRestaurant returns employees assigned to any location of the
// given restaurant.
func (r *EmployeeRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.Employee, error) {
	return r.queryMany(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE location_restaurant_id=? ORDER BY lastname, firstname`,
		restaurantID.String())
}

func (r *EmployeeRepo) queryMany(ctx context.Context, query string, args ...interface{}) ([]model.Employee, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

// Update overwrites mutable employee fields; zero values keep the
// stored ones.
func (r *EmployeeRepo) Update(ctx context.Context, id uuid.UUID, position string, locRestaurantID, locAddressID *uuid.UUID, firstname, lastname, patronymic string, age int, birthday *time.Time) (bool, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if position == "" {
		position = current.Position
	}
	if locRestaurantID == nil {
		locRestaurantID = current.LocationRestaurantID
	}
	if locAddressID == nil {
		locAddressID = current.LocationAddressID
	}
	if firstname == "" {
		firstname = current.Firstname
	}
	if lastname == "" {
		lastname = current.Lastname
	}
	if patronymic == "" {
		patronymic = current.Patronymic
	}
	if age == 0 {
		age = current.Age
	}
	bday := current.Birthday
	if birthday != nil {
		bday = *birthday
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE employees SET position=?, location_restaurant_id=?, location_address_id=?,
         firstname=?, lastname=?, patronymic=?, age=?, birthday=? WHERE id=?`,
		position, uuidArg(locRestaurantID), uuidArg(locAddressID),
		firstname, lastname, patronymic, age, bday.Format("2006-01-02"), id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes an employee; director/servant links cascade.
func (r *EmployeeRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM employees WHERE id=?`, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AddServant links a servant under a director.  The director side must
// hold the DIRECTOR position; anything else maps to ErrForbidden.
func (r *EmployeeRepo) AddServant(ctx context.Context, directorID, servantID uuid.UUID) error {
	director, err := r.GetByID(ctx, directorID)
	if err != nil {
		return err
	}
	if director.Position != model.PositionDirector {
		return ErrForbidden
	}
	if _, err := r.GetByID(ctx, servantID); err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO director_servants (director_id, servant_id) VALUES (?,?)`,
		directorID.String(), servantID.String())
	if isDuplicateEntry(err) {
		return ErrConflict
	}
	return err
}

// RemoveServant unlinks a servant from a director.
func (r *EmployeeRepo) RemoveServant(ctx context.Context, directorID, servantID uuid.UUID) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM director_servants WHERE director_id=? AND servant_id=?`,
		directorID.String(), servantID.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Servants lists the employees linked under a director.
func (r *EmployeeRepo) Servants(ctx context.Context, directorID uuid.UUID) ([]model.Employee, error) {
	return r.queryMany(ctx,
		`SELECT e.id, e.identity_id, e.position, e.location_restaurant_id, e.location_address_id,
                e.firstname, e.lastname, e.patronymic, e.age, e.birthday, e.home_address_id
         FROM employees e
         JOIN director_servants ds ON ds.servant_id = e.id
         WHERE ds.director_id=? ORDER BY e.lastname, e.firstname`,
		directorID.String())
}
