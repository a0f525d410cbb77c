package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/apartment-sales/internal/contextkeys"
	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

// maxTxAttempts bounds retries after a lost optimistic lock.
const maxTxAttempts = 3

var errReservationChanged = errors.New("reservation changed")

// InventoryService owns every apartment status transition together with the
// reservation and sale records that drive it.
type InventoryService struct {
	store    port.Store
	notifier port.EventNotifier
	cache    port.CacheRepository
	logger   port.LoggerPort
	now      func() time.Time
}

// NewInventoryService builds the workflow engine. cache may be nil, in which
// case ClaimRequest accepts every key.
func NewInventoryService(store port.Store, notifier port.EventNotifier, cache port.CacheRepository, logger port.LoggerPort) *InventoryService {
	return &InventoryService{
		store:    store,
		notifier: notifier,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InventoryService) log(ctx context.Context) port.LoggerPort {
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		return s.logger.WithFields(port.Fields{"trace_id": traceID})
	}
	return s.logger
}

// ClaimRequest records key as processed. A key seen before yields ErrDuplicateRequest.
func (s *InventoryService) ClaimRequest(ctx context.Context, key string) error {
	if key == "" || s.cache == nil {
		return nil
	}

	ok, err := s.cache.SetIdempotency(ctx, key)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return ErrDuplicateRequest
	}
	return nil
}

func (s *InventoryService) withinTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.store.WithinTx(ctx, fn)
		if !errors.Is(err, port.ErrOptimisticLock) {
			return err
		}
		s.log(ctx).Debug("optimistic lock lost, retrying", port.Fields{"attempt": attempt})
	}
	return domain.ErrConcurrentUpdate
}

func (s *InventoryService) CreateReservation(ctx context.Context, clientID, apartmentID uuid.UUID, expiresHours int) (uuid.UUID, error) {
	if err := domain.ValidateReservationHours(expiresHours); err != nil {
		return uuid.Nil, err
	}

	var reservation domain.Reservation
	err := s.withinTx(ctx, func(tx port.StoreTx) error {
		apartment, err := tx.GetApartment(ctx, apartmentID)
		if err != nil {
			return err
		}
		if apartment == nil {
			return domain.ErrApartmentNotFound
		}

		client, err := tx.GetClient(ctx, clientID)
		if err != nil {
			return err
		}
		if client == nil {
			return domain.ErrClientNotFound
		}

		if apartment.Status != domain.ApartmentStatusAvailable {
			return domain.ErrApartmentNotAvailable
		}

		now := s.now()
		expiresAt := now.Add(time.Duration(expiresHours) * time.Hour)
		reservation = domain.Reservation{
			ID:          uuid.New(),
			ClientID:    clientID,
			ApartmentID: apartmentID,
			ReservedAt:  now,
			ExpiresAt:   &expiresAt,
		}

		if err := tx.UpdateApartmentStatus(ctx, apartment.ID, domain.ApartmentStatusReserved, apartment.Version); err != nil {
			return err
		}
		return tx.InsertReservation(ctx, reservation)
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.log(ctx).Info("reservation created", port.Fields{
		"reservation_id": reservation.ID,
		"apartment_id":   apartmentID,
		"client_id":      clientID,
	})

	s.publish(ctx, domain.ReservationCreated{
		ReservationID: reservation.ID,
		ClientID:      reservation.ClientID,
		ApartmentID:   reservation.ApartmentID,
		ExpiresAt:     reservation.ExpiresAt,
	})

	return reservation.ID, nil
}

func (s *InventoryService) CancelReservation(ctx context.Context, reservationID uuid.UUID) error {
	err := s.withinTx(ctx, func(tx port.StoreTx) error {
		reservation, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation == nil {
			return domain.ErrReservationNotFound
		}
		if reservation.ConfirmedAsSale {
			return domain.ErrReservationConfirmed
		}
		return s.release(ctx, tx, reservation)
	})
	if err != nil {
		return err
	}

	s.log(ctx).Info("reservation cancelled", port.Fields{"reservation_id": reservationID})
	return nil
}

// release deletes an unconfirmed reservation and frees its apartment.
// A sold apartment keeps its status. The apartment row is written before the
// reservation row, the same order ConfirmSale uses.
func (s *InventoryService) release(ctx context.Context, tx port.StoreTx, reservation *domain.Reservation) error {
	apartment, err := tx.GetApartment(ctx, reservation.ApartmentID)
	if err != nil {
		return err
	}
	if apartment != nil && apartment.Status == domain.ApartmentStatusReserved {
		if err := tx.UpdateApartmentStatus(ctx, apartment.ID, domain.ApartmentStatusAvailable, apartment.Version); err != nil {
			return err
		}
	}
	return tx.DeleteReservation(ctx, reservation.ID)
}

func (s *InventoryService) ConfirmSale(ctx context.Context, req domain.SaleRequest) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}

	var sale domain.Sale
	err := s.withinTx(ctx, func(tx port.StoreTx) error {
		apartment, err := tx.GetApartment(ctx, req.ApartmentID)
		if err != nil {
			return err
		}
		if apartment == nil {
			return domain.ErrApartmentNotFound
		}

		client, err := tx.GetClient(ctx, req.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return domain.ErrClientNotFound
		}

		var reservation *domain.Reservation
		if req.ReservationID != nil {
			reservation, err = tx.GetReservation(ctx, *req.ReservationID)
			if err != nil {
				return err
			}
			if reservation == nil {
				return domain.ErrReservationNotFound
			}
			if reservation.ApartmentID != apartment.ID {
				return domain.ErrReservationMismatch
			}
		}

		if apartment.Status == domain.ApartmentStatusSold {
			return domain.ErrApartmentSold
		}
		if reservation != nil && reservation.ConfirmedAsSale {
			return domain.ErrReservationConfirmed
		}

		sale = domain.Sale{
			ID:            uuid.New(),
			ClientID:      req.ClientID,
			ApartmentID:   req.ApartmentID,
			ReservationID: req.ReservationID,
			DownPayment:   req.DownPayment,
			TotalPrice:    req.TotalPrice,
			SoldAt:        s.now(),
		}

		if err := tx.UpdateApartmentStatus(ctx, apartment.ID, domain.ApartmentStatusSold, apartment.Version); err != nil {
			return err
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		if reservation != nil {
			return tx.MarkReservationConfirmed(ctx, reservation.ID)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.log(ctx).Info("sale confirmed", port.Fields{
		"sale_id":      sale.ID,
		"apartment_id": sale.ApartmentID,
		"client_id":    sale.ClientID,
		"total_price":  sale.TotalPrice.String(),
	})

	s.publish(ctx, domain.SaleConfirmed{
		SaleID:      sale.ID,
		ClientID:    sale.ClientID,
		ApartmentID: sale.ApartmentID,
		TotalPrice:  sale.TotalPrice,
		DownPayment: sale.DownPayment,
	})

	return sale.ID, nil
}

// ExpireReservations releases every unconfirmed reservation whose expiry is at
// or before now. Each release commits on its own; reservations that were
// cancelled or confirmed in the meantime are skipped.
func (s *InventoryService) ExpireReservations(ctx context.Context, now time.Time) (int, error) {
	var expired []domain.Reservation
	err := s.store.WithinTx(ctx, func(tx port.StoreTx) error {
		var err error
		expired, err = tx.ListExpiredReservations(ctx, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list expired reservations: %w", err)
	}

	released := 0
	for _, candidate := range expired {
		id := candidate.ID
		err := s.withinTx(ctx, func(tx port.StoreTx) error {
			reservation, err := tx.GetReservation(ctx, id)
			if err != nil {
				return err
			}
			if reservation == nil || !reservation.ExpiredAt(now) {
				return errReservationChanged
			}
			return s.release(ctx, tx, reservation)
		})
		switch {
		case err == nil:
			released++
			s.log(ctx).Info("reservation expired", port.Fields{"reservation_id": id, "apartment_id": candidate.ApartmentID})
		case errors.Is(err, errReservationChanged):
			continue
		case ctx.Err() != nil:
			return released, ctx.Err()
		default:
			s.log(ctx).Error("failed to expire reservation", err, port.Fields{"reservation_id": id})
		}
	}
	return released, nil
}

func (s *InventoryService) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	reservation, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, domain.ErrReservationNotFound
	}
	return reservation, nil
}

func (s *InventoryService) ListReservations(ctx context.Context) ([]domain.Reservation, error) {
	return s.store.ListReservations(ctx)
}

func (s *InventoryService) GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	sale, err := s.store.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrSaleNotFound
	}
	return sale, nil
}

func (s *InventoryService) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.store.ListSales(ctx)
}

// publish hands the event to the notifier. It never fails the caller.
func (s *InventoryService) publish(ctx context.Context, event domain.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log(ctx).Error("failed to enqueue event", err, port.Fields{
			"event_type":   event.Type(),
			"aggregate_id": event.AggregateID(),
		})
	}
}
