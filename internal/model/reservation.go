package model

import (
    "time"

    "github.com/google/uuid"
)

// Reservation records a client's booking of a number of places at a
// restaurant location for a point in time.  A reservation is created
// pending (neither started nor finished), is started when staff seat
// the party, and is finished either by staff or by the lifecycle
// sweeper once its start time has passed the grace period without the
// party showing up.  Finished reservations are immutable and excluded
// from capacity accounting.
//
// Fields:
//  ID                   – primary key (uuid).
//  LocationRestaurantID – restaurant part of the location key.
//  LocationAddressID    – address part of the location key.
//  Name                 – customer name.
//  Phone                – customer phone.
//  Places               – party size (> 0).
//  StartTime            – reserved date + time (naive local).
//  EndTime              – set when the reservation finishes (nullable).
//  IsStarted            – staff seated the party.
//  IsFinished           – terminal state.
type Reservation struct {
    ID                   uuid.UUID  // reservations.id
    LocationRestaurantID uuid.UUID  // reservations.location_restaurant_id
    LocationAddressID    uuid.UUID  // reservations.location_address_id
    Name                 string     // reservations.name
    Phone                string     // reservations.phone
    Places               int        // reservations.places
    StartTime            time.Time  // reservations.start_time (DATETIME)
    EndTime              *time.Time // reservations.end_time (nullable)
    IsStarted            bool       // reservations.is_started
    IsFinished           bool       // reservations.is_finished
}
