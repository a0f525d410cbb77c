package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/apartment-sales/internal/core/domain"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ApartmentRequest struct {
	Code   string          `json:"code"`
	Block  string          `json:"block"`
	Floor  int             `json:"floor"`
	Number int             `json:"number"`
	Price  decimal.Decimal `json:"price"`
}

func (r ApartmentRequest) toDetails() domain.ApartmentDetails {
	return domain.ApartmentDetails{Code: r.Code, Block: r.Block, Floor: r.Floor, Number: r.Number, Price: r.Price}
}

type ApartmentResponse struct {
	ID        uuid.UUID              `json:"id"`
	Code      string                 `json:"code"`
	Block     string                 `json:"block"`
	Floor     int                    `json:"floor"`
	Number    int                    `json:"number"`
	Price     decimal.Decimal        `json:"price"`
	Status    domain.ApartmentStatus `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
}

func toApartmentResponse(a domain.Apartment) ApartmentResponse {
	return ApartmentResponse{
		ID:        a.ID,
		Code:      a.Code,
		Block:     a.Block,
		Floor:     a.Floor,
		Number:    a.Number,
		Price:     a.Price,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
}

type ClientRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
}

func (r ClientRequest) toDetails() domain.ClientDetails {
	return domain.ClientDetails{Name: r.Name, Email: r.Email, Document: r.Document, Phone: r.Phone}
}

type ClientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Document  string    `json:"document"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

func toClientResponse(c domain.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Document:  c.Document,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

type ReservationRequest struct {
	ClientID     uuid.UUID `json:"client_id"`
	ApartmentID  uuid.UUID `json:"apartment_id"`
	ExpiresHours int       `json:"expires_hours"`
}

type ReservationResponse struct {
	ID              uuid.UUID  `json:"id"`
	ClientID        uuid.UUID  `json:"client_id"`
	ApartmentID     uuid.UUID  `json:"apartment_id"`
	ReservedAt      time.Time  `json:"reserved_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
	ConfirmedAsSale bool       `json:"confirmed_as_sale"`
}

func toReservationResponse(r domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:              r.ID,
		ClientID:        r.ClientID,
		ApartmentID:     r.ApartmentID,
		ReservedAt:      r.ReservedAt,
		ExpiresAt:       r.ExpiresAt,
		ConfirmedAsSale: r.ConfirmedAsSale,
	}
}

type SaleRequest struct {
	ClientID      uuid.UUID       `json:"client_id"`
	ApartmentID   uuid.UUID       `json:"apartment_id"`
	ReservationID *uuid.UUID      `json:"reservation_id,omitempty"`
	DownPayment   decimal.Decimal `json:"down_payment"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

func (r SaleRequest) toDomain() domain.SaleRequest {
	return domain.SaleRequest{
		ClientID:      r.ClientID,
		ApartmentID:   r.ApartmentID,
		ReservationID: r.ReservationID,
		DownPayment:   r.DownPayment,
		TotalPrice:    r.TotalPrice,
	}
}

type SaleResponse struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      uuid.UUID       `json:"client_id"`
	ApartmentID   uuid.UUID       `json:"apartment_id"`
	ReservationID *uuid.UUID      `json:"reservation_id"`
	DownPayment   decimal.Decimal `json:"down_payment"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	SoldAt        time.Time       `json:"sold_at"`
}

func toSaleResponse(s domain.Sale) SaleResponse {
	return SaleResponse{
		ID:            s.ID,
		ClientID:      s.ClientID,
		ApartmentID:   s.ApartmentID,
		ReservationID: s.ReservationID,
		DownPayment:   s.DownPayment,
		TotalPrice:    s.TotalPrice,
		SoldAt:        s.SoldAt,
	}
}

type IDResponse struct {
	ID uuid.UUID `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
