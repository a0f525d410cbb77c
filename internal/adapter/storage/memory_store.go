package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/port"
)

// MemoryStore keeps every entity in process memory. Transactions are
// serialised by a single mutex and work on a snapshot that replaces the
// live data only when the transaction function succeeds.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(snapshot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.data = snapshot
	return nil
}

func (s *MemoryStore) GetApartment(ctx context.Context, id uuid.UUID) (*domain.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetApartment(ctx, id)
}

func (s *MemoryStore) ListApartments(ctx context.Context, search string) ([]domain.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListApartments(ctx, search)
}

func (s *MemoryStore) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetClient(ctx, id)
}

func (s *MemoryStore) ListClients(ctx context.Context, search string) ([]domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListClients(ctx, search)
}

func (s *MemoryStore) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetReservation(ctx, id)
}

func (s *MemoryStore) ListReservations(ctx context.Context) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListReservations(ctx)
}

func (s *MemoryStore) GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetSale(ctx, id)
}

func (s *MemoryStore) ListSales(ctx context.Context) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListSales(ctx)
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetUserByUsername(ctx, username)
}

type memData struct {
	apartments   map[uuid.UUID]domain.Apartment
	clients      map[uuid.UUID]domain.Client
	reservations map[uuid.UUID]domain.Reservation
	sales        map[uuid.UUID]domain.Sale
	users        map[uuid.UUID]domain.User
}

func newMemData() *memData {
	return &memData{
		apartments:   make(map[uuid.UUID]domain.Apartment),
		clients:      make(map[uuid.UUID]domain.Client),
		reservations: make(map[uuid.UUID]domain.Reservation),
		sales:        make(map[uuid.UUID]domain.Sale),
		users:        make(map[uuid.UUID]domain.User),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.apartments {
		c.apartments[k] = v
	}
	for k, v := range d.clients {
		c.clients[k] = v
	}
	for k, v := range d.reservations {
		c.reservations[k] = v
	}
	for k, v := range d.sales {
		c.sales[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	return c
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (d *memData) GetApartment(_ context.Context, id uuid.UUID) (*domain.Apartment, error) {
	a, ok := d.apartments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (d *memData) ListApartments(_ context.Context, search string) ([]domain.Apartment, error) {
	out := make([]domain.Apartment, 0, len(d.apartments))
	for _, a := range d.apartments {
		if search != "" && !containsFold(a.Code, search) && !containsFold(a.Block, search) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (d *memData) FindApartmentByCode(_ context.Context, code string) (*domain.Apartment, error) {
	for _, a := range d.apartments {
		if a.Code == code {
			return &a, nil
		}
	}
	return nil, nil
}

func (d *memData) InsertApartment(_ context.Context, apartment domain.Apartment) error {
	for _, a := range d.apartments {
		if a.Code == apartment.Code {
			return domain.ErrDuplicateApartment
		}
	}
	d.apartments[apartment.ID] = apartment
	return nil
}

func (d *memData) UpdateApartmentDetails(_ context.Context, apartment domain.Apartment) error {
	current, ok := d.apartments[apartment.ID]
	if !ok {
		return domain.ErrApartmentNotFound
	}
	for id, a := range d.apartments {
		if id != apartment.ID && a.Code == apartment.Code {
			return domain.ErrDuplicateApartment
		}
	}
	current.Code = apartment.Code
	current.Block = apartment.Block
	current.Floor = apartment.Floor
	current.Number = apartment.Number
	current.Price = apartment.Price
	d.apartments[apartment.ID] = current
	return nil
}

func (d *memData) UpdateApartmentStatus(_ context.Context, id uuid.UUID, status domain.ApartmentStatus, expectedVersion int) error {
	current, ok := d.apartments[id]
	if !ok || current.Version != expectedVersion {
		return port.ErrOptimisticLock
	}
	current.Status = status
	current.Version++
	d.apartments[id] = current
	return nil
}

func (d *memData) DeleteApartment(_ context.Context, id uuid.UUID) error {
	delete(d.apartments, id)
	return nil
}

func (d *memData) CountApartmentReferences(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, r := range d.reservations {
		if r.ApartmentID == id {
			n++
		}
	}
	for _, s := range d.sales {
		if s.ApartmentID == id {
			n++
		}
	}
	return n, nil
}

func (d *memData) GetClient(_ context.Context, id uuid.UUID) (*domain.Client, error) {
	c, ok := d.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (d *memData) ListClients(_ context.Context, search string) ([]domain.Client, error) {
	out := make([]domain.Client, 0, len(d.clients))
	for _, c := range d.clients {
		if search != "" && !containsFold(c.Name, search) && !containsFold(c.Email, search) && !containsFold(c.Document, search) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *memData) FindClientByEmail(_ context.Context, email string) (*domain.Client, error) {
	for _, c := range d.clients {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, nil
}

func (d *memData) FindClientByDocument(_ context.Context, document string) (*domain.Client, error) {
	for _, c := range d.clients {
		if c.Document == document {
			return &c, nil
		}
	}
	return nil, nil
}

func (d *memData) clientClash(client domain.Client) bool {
	for id, c := range d.clients {
		if id != client.ID && (c.Email == client.Email || c.Document == client.Document) {
			return true
		}
	}
	return false
}

func (d *memData) InsertClient(_ context.Context, client domain.Client) error {
	if d.clientClash(client) {
		return domain.ErrDuplicateClient
	}
	d.clients[client.ID] = client
	return nil
}

func (d *memData) UpdateClient(_ context.Context, client domain.Client) error {
	current, ok := d.clients[client.ID]
	if !ok {
		return domain.ErrClientNotFound
	}
	if d.clientClash(client) {
		return domain.ErrDuplicateClient
	}
	client.CreatedAt = current.CreatedAt
	d.clients[client.ID] = client
	return nil
}

func (d *memData) DeleteClient(_ context.Context, id uuid.UUID) error {
	delete(d.clients, id)
	return nil
}

func (d *memData) CountClientReferences(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, r := range d.reservations {
		if r.ClientID == id {
			n++
		}
	}
	for _, s := range d.sales {
		if s.ClientID == id {
			n++
		}
	}
	return n, nil
}

func (d *memData) GetReservation(_ context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r, ok := d.reservations[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (d *memData) ListReservations(_ context.Context) ([]domain.Reservation, error) {
	out := make([]domain.Reservation, 0, len(d.reservations))
	for _, r := range d.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedAt.After(out[j].ReservedAt) })
	return out, nil
}

func (d *memData) InsertReservation(_ context.Context, reservation domain.Reservation) error {
	d.reservations[reservation.ID] = reservation
	return nil
}

func (d *memData) MarkReservationConfirmed(_ context.Context, id uuid.UUID) error {
	r, ok := d.reservations[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	r.ConfirmedAsSale = true
	d.reservations[id] = r
	return nil
}

func (d *memData) DeleteReservation(_ context.Context, id uuid.UUID) error {
	if _, ok := d.reservations[id]; !ok {
		return domain.ErrReservationNotFound
	}
	delete(d.reservations, id)
	return nil
}

func (d *memData) ListExpiredReservations(_ context.Context, now time.Time) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range d.reservations {
		if r.ExpiredAt(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out, nil
}

func (d *memData) GetSale(_ context.Context, id uuid.UUID) (*domain.Sale, error) {
	s, ok := d.sales[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (d *memData) ListSales(_ context.Context) ([]domain.Sale, error) {
	out := make([]domain.Sale, 0, len(d.sales))
	for _, s := range d.sales {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.After(out[j].SoldAt) })
	return out, nil
}

func (d *memData) InsertSale(_ context.Context, sale domain.Sale) error {
	for _, s := range d.sales {
		if s.ApartmentID == sale.ApartmentID {
			return domain.ErrApartmentSold
		}
	}
	d.sales[sale.ID] = sale
	return nil
}

func (d *memData) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range d.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (d *memData) InsertUser(_ context.Context, user domain.User) error {
	for _, u := range d.users {
		if u.Username == user.Username {
			return fmt.Errorf("username %q already exists", user.Username)
		}
	}
	d.users[user.ID] = user
	return nil
}
