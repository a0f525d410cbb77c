package domain

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Document  string
	Phone     string
	CreatedAt time.Time
}

type ClientDetails struct {
	Name     string
	Email    string
	Document string
	Phone    string
}

func (d ClientDetails) Validate() error {
	if d.Name == "" || len(d.Name) > 200 {
		return ErrInvalidClientName
	}
	if len(d.Email) > 200 {
		return ErrInvalidClientEmail
	}
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return ErrInvalidClientEmail
	}
	if d.Document == "" || len(d.Document) > 20 {
		return ErrInvalidClientDocument
	}
	if len(d.Phone) > 20 {
		return ErrInvalidClientPhone
	}
	return nil
}
