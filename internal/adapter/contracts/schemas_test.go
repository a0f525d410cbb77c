package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/apartment-sales/internal/core/domain"
)

func TestValidate_DomainEvents(t *testing.T) {
	expires := time.Now().UTC().Add(24 * time.Hour)

	events := []domain.Event{
		domain.ReservationCreated{
			ReservationID: uuid.New(),
			ClientID:      uuid.New(),
			ApartmentID:   uuid.New(),
			ExpiresAt:     &expires,
		},
		domain.ReservationCreated{
			ReservationID: uuid.New(),
			ClientID:      uuid.New(),
			ApartmentID:   uuid.New(),
		},
		domain.SaleConfirmed{
			SaleID:      uuid.New(),
			ClientID:    uuid.New(),
			ApartmentID: uuid.New(),
			TotalPrice:  decimal.RequireFromString("200000.50"),
			DownPayment: decimal.NewFromInt(50000),
		},
	}

	for _, event := range events {
		body, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if err := Validate(string(event.Type()), body); err != nil {
			t.Errorf("%s: unexpected validation error: %v", event.Type(), err)
		}
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		body      string
	}{
		{name: "unknown type", eventType: "ApartmentPainted", body: `{}`},
		{name: "not json", eventType: "SaleConfirmed", body: `{`},
		{name: "missing field", eventType: "SaleConfirmed", body: `{"saleId":"` + uuid.NewString() + `"}`},
		{name: "bad uuid", eventType: "ReservationCreated", body: `{"reservationId":"x","clientId":"` + uuid.NewString() + `","apartmentId":"` + uuid.NewString() + `","expiresAt":null}`},
		{
			name:      "numeric amount",
			eventType: "SaleConfirmed",
			body: `{"saleId":"` + uuid.NewString() + `","clientId":"` + uuid.NewString() + `","apartmentId":"` + uuid.NewString() +
				`","totalPrice":100,"downPayment":"0"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.eventType, []byte(tt.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
