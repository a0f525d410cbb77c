package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApartmentStatus string

const (
	ApartmentStatusAvailable ApartmentStatus = "available"
	ApartmentStatusReserved  ApartmentStatus = "reserved"
	ApartmentStatusSold      ApartmentStatus = "sold"
)

func (s ApartmentStatus) Valid() bool {
	switch s {
	case ApartmentStatusAvailable, ApartmentStatusReserved, ApartmentStatusSold:
		return true
	}
	return false
}

type Apartment struct {
	ID        uuid.UUID
	Code      string
	Block     string
	Floor     int
	Number    int
	Price     decimal.Decimal
	Status    ApartmentStatus
	Version   int // optimistic locking
	CreatedAt time.Time
}

// ApartmentDetails holds the fields a catalog writer may set. Status is not among them.
type ApartmentDetails struct {
	Code   string
	Block  string
	Floor  int
	Number int
	Price  decimal.Decimal
}

func (d ApartmentDetails) Validate() error {
	switch {
	case d.Code == "" || len(d.Code) > 50:
		return ErrInvalidApartmentCode
	case d.Block == "" || len(d.Block) > 50:
		return ErrInvalidApartmentBlock
	case d.Floor < 0:
		return ErrInvalidApartmentFloor
	case d.Number <= 0:
		return ErrInvalidApartmentNumber
	case d.Price.IsNegative():
		return ErrInvalidApartmentPrice
	}
	return nil
}
