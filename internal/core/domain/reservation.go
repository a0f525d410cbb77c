package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinReservationHours = 1
	MaxReservationHours = 168
)

type Reservation struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	ApartmentID     uuid.UUID
	ReservedAt      time.Time
	ExpiresAt       *time.Time
	ConfirmedAsSale bool
}

// Active reports whether the reservation still holds its apartment.
func (r Reservation) Active() bool {
	return !r.ConfirmedAsSale
}

func (r Reservation) ExpiredAt(now time.Time) bool {
	return r.Active() && r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

func ValidateReservationHours(hours int) error {
	if hours < MinReservationHours || hours > MaxReservationHours {
		return ErrInvalidExpiry
	}
	return nil
}
