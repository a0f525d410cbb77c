package port

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/apartment-sales/internal/core/domain"
)

// ErrOptimisticLock is returned by UpdateApartmentStatus when the stored
// version no longer matches the one the caller read.
var ErrOptimisticLock = errors.New("optimistic lock conflict")

// Store is the entity store. Lookups return (nil, nil) when the row does not exist.
type Store interface {
	Reader

	// WithinTx runs fn in one transaction: committed when fn returns nil, rolled back otherwise.
	WithinTx(ctx context.Context, fn func(tx StoreTx) error) error
}

type Reader interface {
	GetApartment(ctx context.Context, id uuid.UUID) (*domain.Apartment, error)
	ListApartments(ctx context.Context, search string) ([]domain.Apartment, error)

	GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	ListClients(ctx context.Context, search string) ([]domain.Client, error)

	GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	ListReservations(ctx context.Context) ([]domain.Reservation, error)

	GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)

	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// StoreTx sees its own writes and nothing uncommitted from other transactions.
type StoreTx interface {
	Reader

	FindApartmentByCode(ctx context.Context, code string) (*domain.Apartment, error)
	InsertApartment(ctx context.Context, apartment domain.Apartment) error
	// UpdateApartmentDetails rewrites catalog fields only; status and version are left alone.
	UpdateApartmentDetails(ctx context.Context, apartment domain.Apartment) error
	// UpdateApartmentStatus sets status and bumps version if the stored version equals expectedVersion.
	UpdateApartmentStatus(ctx context.Context, id uuid.UUID, status domain.ApartmentStatus, expectedVersion int) error
	DeleteApartment(ctx context.Context, id uuid.UUID) error
	CountApartmentReferences(ctx context.Context, id uuid.UUID) (int, error)

	FindClientByEmail(ctx context.Context, email string) (*domain.Client, error)
	FindClientByDocument(ctx context.Context, document string) (*domain.Client, error)
	InsertClient(ctx context.Context, client domain.Client) error
	UpdateClient(ctx context.Context, client domain.Client) error
	DeleteClient(ctx context.Context, id uuid.UUID) error
	CountClientReferences(ctx context.Context, id uuid.UUID) (int, error)

	InsertReservation(ctx context.Context, reservation domain.Reservation) error
	MarkReservationConfirmed(ctx context.Context, id uuid.UUID) error
	DeleteReservation(ctx context.Context, id uuid.UUID) error
	ListExpiredReservations(ctx context.Context, now time.Time) ([]domain.Reservation, error)

	InsertSale(ctx context.Context, sale domain.Sale) error

	InsertUser(ctx context.Context, user domain.User) error
}
