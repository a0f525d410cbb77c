package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventReservationCreated EventType = "ReservationCreated"
	EventSaleConfirmed      EventType = "SaleConfirmed"
)

// Event is published after the state change it describes has been committed.
type Event interface {
	Type() EventType
	AggregateID() uuid.UUID
}

type ReservationCreated struct {
	ReservationID uuid.UUID  `json:"reservationId"`
	ClientID      uuid.UUID  `json:"clientId"`
	ApartmentID   uuid.UUID  `json:"apartmentId"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

func (e ReservationCreated) Type() EventType        { return EventReservationCreated }
func (e ReservationCreated) AggregateID() uuid.UUID { return e.ReservationID }

type SaleConfirmed struct {
	SaleID      uuid.UUID       `json:"saleId"`
	ClientID    uuid.UUID       `json:"clientId"`
	ApartmentID uuid.UUID       `json:"apartmentId"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	DownPayment decimal.Decimal `json:"downPayment"`
}

func (e SaleConfirmed) Type() EventType        { return EventSaleConfirmed }
func (e SaleConfirmed) AggregateID() uuid.UUID { return e.SaleID }
