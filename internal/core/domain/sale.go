package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Sale struct {
	ID            uuid.UUID
	ClientID      uuid.UUID
	ApartmentID   uuid.UUID
	ReservationID *uuid.UUID
	DownPayment   decimal.Decimal
	TotalPrice    decimal.Decimal
	SoldAt        time.Time
}

type SaleRequest struct {
	ClientID      uuid.UUID
	ApartmentID   uuid.UUID
	ReservationID *uuid.UUID
	DownPayment   decimal.Decimal
	TotalPrice    decimal.Decimal
}

func (r SaleRequest) Validate() error {
	if !r.TotalPrice.IsPositive() {
		return ErrInvalidTotalPrice
	}
	if r.DownPayment.IsNegative() {
		return ErrInvalidDownPayment
	}
	return nil
}
