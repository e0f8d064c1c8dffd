// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

const ReservationQueueName = "reservation.events"

// Lifecycle kinds carried in ReservationEvent.Kind.
const (
	KindCreated  = "created"
	KindUpdated  = "updated"
	KindStarted  = "started"
	KindFinished = "finished"
	KindSwept    = "swept"
)

// ReservationEvent is published on every reservation lifecycle change.
// It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type ReservationEvent struct {
	Kind          string `json:"kind"`
	ReservationID string `json:"reservation_id"`
	RestaurantID  string `json:"restaurant_id"`
	AddressID     string `json:"address_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Places        int    `json:"places"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent snapshots a reservation into an event of the
// given kind, stamped with the moment it happened.
func NewReservationEvent(kind string, res model.Reservation, at time.Time) ReservationEvent {
	ev := ReservationEvent{
		Kind:          kind,
		ReservationID: res.ID.String(),
		RestaurantID:  res.LocationRestaurantID.String(),
		AddressID:     res.LocationAddressID.String(),
		Name:          res.Name,
		Phone:         res.Phone,
		Places:        res.Places,
		StartTime:     res.StartTime.Format(time.DateTime),
		OccurredAt:    at.Format(time.DateTime),
	}
	if res.EndTime != nil {
		ev.EndTime = res.EndTime.Format(time.DateTime)
	}
	return ev
}
