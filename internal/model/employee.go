package model

import (
    "time"

    "github.com/google/uuid"
)

// Position values stored in the employees.position column.  DIRECTOR
// and MANAGER may manage locations and other employees; SERVANT is
// regular restaurant staff.
const (
    PositionDirector = "DIRECTOR"
    PositionManager  = "MANAGER"
    PositionServant  = "SERVANT"
)

// Employee represents a member of restaurant staff as stored in the
// `employees` table.  An employee is always backed by an identity and
// may be assigned to a location (a restaurant at a particular
// address).  The assignment is optional: newly hired staff exist
// before being placed.
//
// Fields:
//  ID                   – primary key (uuid).
//  IdentityID           – backing account; unique per employee.
//  Position             – DIRECTOR, MANAGER or SERVANT.
//  LocationRestaurantID – assigned restaurant (nil if unassigned).
//  LocationAddressID    – assigned address (nil if unassigned).
//  Firstname, Lastname, Patronymic – personal name parts.
//  Age                  – age in years.
//  Birthday             – date of birth (date only).
//  HomeAddressID        – the employee's own address row.
type Employee struct {
    ID                   uuid.UUID  // employees.id
    IdentityID           uuid.UUID  // employees.identity_id
    Position             string     // employees.position
    LocationRestaurantID *uuid.UUID // employees.location_restaurant_id (nullable)
    LocationAddressID    *uuid.UUID // employees.location_address_id (nullable)
    Firstname            string     // employees.firstname
    Lastname             string     // employees.lastname
    Patronymic           string     // employees.patronymic
    Age                  int        // employees.age
    Birthday             time.Time  // employees.birthday (DATE)
    HomeAddressID        uuid.UUID  // employees.home_address_id
}

// DirectorServant links a director to a subordinate employee.  Rows
// live in the `director_servants` join table with a composite primary
// key over both columns.
type DirectorServant struct {
    DirectorID uuid.UUID // director_servants.director_id
    ServantID  uuid.UUID // director_servants.servant_id
}
