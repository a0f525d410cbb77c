package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/port"
)

// ApartmentService manages the apartment catalog. Status is owned by
// InventoryService and is never written here.
type ApartmentService struct {
	store  port.Store
	logger port.LoggerPort
}

func NewApartmentService(store port.Store, logger port.LoggerPort) *ApartmentService {
	return &ApartmentService{store: store, logger: logger}
}

func normalizeApartment(d domain.ApartmentDetails) domain.ApartmentDetails {
	d.Code = strings.TrimSpace(d.Code)
	d.Block = strings.TrimSpace(d.Block)
	return d
}

func (s *ApartmentService) Create(ctx context.Context, details domain.ApartmentDetails) (*domain.Apartment, error) {
	details = normalizeApartment(details)
	if err := details.Validate(); err != nil {
		return nil, err
	}

	apartment := domain.Apartment{
		ID:        uuid.New(),
		Code:      details.Code,
		Block:     details.Block,
		Floor:     details.Floor,
		Number:    details.Number,
		Price:     details.Price,
		Status:    domain.ApartmentStatusAvailable,
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.WithinTx(ctx, func(tx port.StoreTx) error {
		existing, err := tx.FindApartmentByCode(ctx, apartment.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateApartment
		}
		return tx.InsertApartment(ctx, apartment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("apartment created", port.Fields{"apartment_id": apartment.ID, "code": apartment.Code})
	return &apartment, nil
}

func (s *ApartmentService) Update(ctx context.Context, id uuid.UUID, details domain.ApartmentDetails) (*domain.Apartment, error) {
	details = normalizeApartment(details)
	if err := details.Validate(); err != nil {
		return nil, err
	}

	var updated domain.Apartment
	err := s.store.WithinTx(ctx, func(tx port.StoreTx) error {
		current, err := tx.GetApartment(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrApartmentNotFound
		}

		clash, err := tx.FindApartmentByCode(ctx, details.Code)
		if err != nil {
			return err
		}
		if clash != nil && clash.ID != id {
			return domain.ErrDuplicateApartment
		}

		updated = *current
		updated.Code = details.Code
		updated.Block = details.Block
		updated.Floor = details.Floor
		updated.Number = details.Number
		updated.Price = details.Price
		return tx.UpdateApartmentDetails(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an apartment that never took part in a reservation or sale.
func (s *ApartmentService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.WithinTx(ctx, func(tx port.StoreTx) error {
		apartment, err := tx.GetApartment(ctx, id)
		if err != nil {
			return err
		}
		if apartment == nil {
			return domain.ErrApartmentNotFound
		}
		if apartment.Status != domain.ApartmentStatusAvailable {
			return domain.ErrApartmentInUse
		}

		refs, err := tx.CountApartmentReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return domain.ErrApartmentInUse
		}
		return tx.DeleteApartment(ctx, id)
	})
}

func (s *ApartmentService) Get(ctx context.Context, id uuid.UUID) (*domain.Apartment, error) {
	apartment, err := s.store.GetApartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if apartment == nil {
		return nil, domain.ErrApartmentNotFound
	}
	return apartment, nil
}

func (s *ApartmentService) List(ctx context.Context, search string) ([]domain.Apartment, error) {
	return s.store.ListApartments(ctx, strings.TrimSpace(search))
}
