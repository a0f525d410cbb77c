package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every domain rule violation wraps exactly one of them;
// anything else returned by the services is a technical failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrApartmentNotFound   = fmt.Errorf("apartment %w", ErrNotFound)
	ErrClientNotFound      = fmt.Errorf("client %w", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)
	ErrSaleNotFound        = fmt.Errorf("sale %w", ErrNotFound)
)

var (
	ErrInvalidExpiry          = fmt.Errorf("%w: expires hours must be between %d and %d", ErrInvalidInput, MinReservationHours, MaxReservationHours)
	ErrInvalidTotalPrice      = fmt.Errorf("%w: total price must be positive", ErrInvalidInput)
	ErrInvalidDownPayment     = fmt.Errorf("%w: down payment cannot be negative", ErrInvalidInput)
	ErrReservationMismatch    = fmt.Errorf("%w: reservation belongs to another apartment", ErrInvalidInput)
	ErrInvalidApartmentCode   = fmt.Errorf("%w: apartment code is required (max 50 chars)", ErrInvalidInput)
	ErrInvalidApartmentBlock  = fmt.Errorf("%w: apartment block is required (max 50 chars)", ErrInvalidInput)
	ErrInvalidApartmentFloor  = fmt.Errorf("%w: floor cannot be negative", ErrInvalidInput)
	ErrInvalidApartmentNumber = fmt.Errorf("%w: number must be positive", ErrInvalidInput)
	ErrInvalidApartmentPrice  = fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	ErrInvalidClientName      = fmt.Errorf("%w: client name is required (max 200 chars)", ErrInvalidInput)
	ErrInvalidClientEmail     = fmt.Errorf("%w: client email is invalid", ErrInvalidInput)
	ErrInvalidClientDocument  = fmt.Errorf("%w: client document is required (max 20 chars)", ErrInvalidInput)
	ErrInvalidClientPhone     = fmt.Errorf("%w: client phone is too long", ErrInvalidInput)
)

var (
	ErrApartmentNotAvailable = fmt.Errorf("%w: apartment not available", ErrConflict)
	ErrApartmentSold         = fmt.Errorf("%w: apartment already sold", ErrConflict)
	ErrApartmentInUse        = fmt.Errorf("%w: apartment has reservations or sales", ErrConflict)
	ErrReservationConfirmed  = fmt.Errorf("%w: reservation already confirmed as sale", ErrConflict)
	ErrDuplicateApartment    = fmt.Errorf("%w: apartment code already exists", ErrConflict)
	ErrDuplicateClient       = fmt.Errorf("%w: client with same email or document already exists", ErrConflict)
	ErrClientInUse           = fmt.Errorf("%w: client has reservations or sales", ErrConflict)
	ErrConcurrentUpdate      = fmt.Errorf("%w: apartment was modified concurrently", ErrConflict)
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
)
