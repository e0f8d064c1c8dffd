package model

import (
    "fmt"

    "github.com/google/uuid"
)

// Location is a restaurant operating at a particular address.  The
// table has a composite primary key (restaurant_id, address_id).
//
// Fields:
//  RestaurantID – owning restaurant.
//  AddressID    – street address of this location.
//  Places       – provisioned seating capacity.  Free capacity for a
//                 calendar date is computed on demand as Places minus
//                 the sum of places across that date's pending
//                 reservations; the column itself is never decremented.
//  Open, Close  – daily working hours (nil when not configured; a
//                 location without hours cannot accept reservations).
type Location struct {
    RestaurantID uuid.UUID  // locations.restaurant_id
    AddressID    uuid.UUID  // locations.address_id
    Places       int        // locations.places
    Open         *TimeOfDay // locations.open (TIME, nullable)
    Close        *TimeOfDay // locations.close (TIME, nullable)
}

// TimeOfDay is a wall-clock time without a date, as stored in MySQL
// TIME columns.  Values are naive local times; no timezone handling
// is applied anywhere at this boundary.
type TimeOfDay struct {
    Hour   int
    Minute int
    Second int
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
    var t TimeOfDay
    switch len(s) {
    case 5:
        if _, err := fmt.Sscanf(s, "%02d:%02d", &t.Hour, &t.Minute); err != nil {
            return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
        }
    default:
        if _, err := fmt.Sscanf(s, "%02d:%02d:%02d", &t.Hour, &t.Minute, &t.Second); err != nil {
            return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
        }
    }
    if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
        return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
    }
    return t, nil
}

// seconds returns the offset from midnight.
func (t TimeOfDay) seconds() int { return t.Hour*3600 + t.Minute*60 + t.Second }

// After reports whether t is strictly later in the day than other.
func (t TimeOfDay) After(other TimeOfDay) bool { return t.seconds() > other.seconds() }

// Before reports whether t is strictly earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool { return t.seconds() < other.seconds() }

// String renders the canonical TIME column format.
func (t TimeOfDay) String() string {
    return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}
