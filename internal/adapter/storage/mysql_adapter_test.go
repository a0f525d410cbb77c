package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/apartment-sales/internal/contextkeys"
	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/core/service"
	"github.com/rl1809/apartment-sales/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/apartments?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	// Schema is applied from migrations/ by the environment.
	if _, err := db.Exec(`SELECT 1 FROM apartments LIMIT 1`); err != nil {
		db.Close()
		t.Skipf("MySQL schema not applied: %v", err)
	}

	return db
}

func seedMySQLApartment(t *testing.T, ctx context.Context, adapter *MySQLAdapter) domain.Apartment {
	t.Helper()
	apartment := domain.Apartment{
		ID:        uuid.New(),
		Code:      "T-" + uuid.NewString()[:8],
		Block:     "T",
		Floor:     1,
		Number:    101,
		Price:     decimal.RequireFromString("250000.00"),
		Status:    domain.ApartmentStatusAvailable,
		CreatedAt: time.Now().UTC(),
	}
	err := adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		return tx.InsertApartment(ctx, apartment)
	})
	if err != nil {
		t.Fatalf("seed apartment failed: %v", err)
	}
	return apartment
}

func TestMySQL_InsertAndGetApartment(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	apartment := seedMySQLApartment(t, ctx, adapter)
	defer db.ExecContext(ctx, `DELETE FROM apartments WHERE id = ?`, apartment.ID)

	got, err := adapter.GetApartment(ctx, apartment.ID)
	if err != nil {
		t.Fatalf("GetApartment failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected apartment, got nil")
	}
	if got.Code != apartment.Code {
		t.Errorf("expected code %s, got %s", apartment.Code, got.Code)
	}
	if !got.Price.Equal(apartment.Price) {
		t.Errorf("expected price %s, got %s", apartment.Price, got.Price)
	}
	if got.Status != domain.ApartmentStatusAvailable {
		t.Errorf("expected status available, got %s", got.Status)
	}
}

func TestMySQL_GetApartment_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)

	got, err := adapter.GetApartment(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent apartment")
	}
}

func TestMySQL_InsertApartment_DuplicateCode(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	apartment := seedMySQLApartment(t, ctx, adapter)
	defer db.ExecContext(ctx, `DELETE FROM apartments WHERE id = ?`, apartment.ID)

	dup := apartment
	dup.ID = uuid.New()
	err := adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		return tx.InsertApartment(ctx, dup)
	})
	if !errors.Is(err, domain.ErrDuplicateApartment) {
		t.Errorf("expected ErrDuplicateApartment, got: %v", err)
	}
}

func TestMySQL_UpdateApartmentStatus_OptimisticLock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	apartment := seedMySQLApartment(t, ctx, adapter)
	defer db.ExecContext(ctx, `DELETE FROM apartments WHERE id = ?`, apartment.ID)

	err := adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		return tx.UpdateApartmentStatus(ctx, apartment.ID, domain.ApartmentStatusReserved, 0)
	})
	if err != nil {
		t.Fatalf("UpdateApartmentStatus failed: %v", err)
	}

	var version int
	db.QueryRowContext(ctx, `SELECT version FROM apartments WHERE id = ?`, apartment.ID).Scan(&version)
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}

	// Try update with stale version
	err = adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		return tx.UpdateApartmentStatus(ctx, apartment.ID, domain.ApartmentStatusSold, 0)
	})
	if !errors.Is(err, port.ErrOptimisticLock) {
		t.Errorf("expected ErrOptimisticLock, got: %v", err)
	}
}

func TestMySQL_WithinTx_RollsBackOnError(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	apartment := seedMySQLApartment(t, ctx, adapter)
	defer db.ExecContext(ctx, `DELETE FROM apartments WHERE id = ?`, apartment.ID)

	boom := errors.New("boom")
	err := adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		if err := tx.UpdateApartmentStatus(ctx, apartment.ID, domain.ApartmentStatusReserved, 0); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got: %v", err)
	}

	got, _ := adapter.GetApartment(ctx, apartment.ID)
	if got.Status != domain.ApartmentStatusAvailable || got.Version != 0 {
		t.Errorf("expected rolled back apartment, got status=%s version=%d", got.Status, got.Version)
	}
}

func TestMySQL_ReservationAndSale(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	apartment := seedMySQLApartment(t, ctx, adapter)
	client := domain.Client{
		ID:        uuid.New(),
		Name:      "Test Client",
		Email:     uuid.NewString()[:8] + "@example.com",
		Document:  uuid.NewString()[:12],
		CreatedAt: time.Now().UTC(),
	}
	expires := time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond)
	reservation := domain.Reservation{
		ID:          uuid.New(),
		ClientID:    client.ID,
		ApartmentID: apartment.ID,
		ReservedAt:  time.Now().UTC().Add(-time.Hour),
		ExpiresAt:   &expires,
	}

	defer func() {
		db.ExecContext(ctx, `DELETE FROM sales WHERE apartment_id = ?`, apartment.ID)
		db.ExecContext(ctx, `DELETE FROM reservations WHERE apartment_id = ?`, apartment.ID)
		db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, client.ID)
		db.ExecContext(ctx, `DELETE FROM apartments WHERE id = ?`, apartment.ID)
	}()

	err := adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		if err := tx.InsertClient(ctx, client); err != nil {
			return err
		}
		return tx.InsertReservation(ctx, reservation)
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var expired []domain.Reservation
	adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		expired, err = tx.ListExpiredReservations(ctx, time.Now().UTC())
		return err
	})
	found := false
	for _, r := range expired {
		if r.ID == reservation.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected reservation to be listed as expired")
	}

	sale := domain.Sale{
		ID:            uuid.New(),
		ClientID:      client.ID,
		ApartmentID:   apartment.ID,
		ReservationID: &reservation.ID,
		DownPayment:   decimal.RequireFromString("50000.00"),
		TotalPrice:    decimal.RequireFromString("250000.00"),
		SoldAt:        time.Now().UTC(),
	}
	err = adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		if err := tx.MarkReservationConfirmed(ctx, reservation.ID); err != nil {
			return err
		}
		return tx.InsertSale(ctx, sale)
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	got, err := adapter.GetSale(ctx, sale.ID)
	if err != nil || got == nil {
		t.Fatalf("GetSale failed: %v", err)
	}
	if got.ReservationID == nil || *got.ReservationID != reservation.ID {
		t.Errorf("expected reservation id %s, got %v", reservation.ID, got.ReservationID)
	}

	second := sale
	second.ID = uuid.New()
	second.ReservationID = nil
	err = adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		return tx.InsertSale(ctx, second)
	})
	if !errors.Is(err, domain.ErrApartmentSold) {
		t.Errorf("expected ErrApartmentSold, got: %v", err)
	}
}

func TestIsLockConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadlock", &mysql.MySQLError{Number: mysqlDeadlockDetected}, true},
		{"lock wait timeout", fmt.Errorf("update apartment status: %w", &mysql.MySQLError{Number: mysqlLockWaitTimeout}), true},
		{"duplicate entry", &mysql.MySQLError{Number: mysqlDuplicateEntry}, false},
		{"other error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLockConflict(tt.err); got != tt.want {
				t.Errorf("isLockConflict(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMySQL_CancelRacesConfirmSale(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	inventory := service.NewInventoryService(adapter, nil, nil, contextkeys.LoggerFromContext(ctx))

	client := domain.Client{
		ID:        uuid.New(),
		Name:      "Race Client",
		Email:     uuid.NewString()[:8] + "@example.com",
		Document:  uuid.NewString()[:12],
		CreatedAt: time.Now().UTC(),
	}
	if err := adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		return tx.InsertClient(ctx, client)
	}); err != nil {
		t.Fatalf("insert client failed: %v", err)
	}

	var apartmentIDs []uuid.UUID
	defer func() {
		for _, id := range apartmentIDs {
			db.ExecContext(ctx, `DELETE FROM sales WHERE apartment_id = ?`, id)
			db.ExecContext(ctx, `DELETE FROM reservations WHERE apartment_id = ?`, id)
			db.ExecContext(ctx, `DELETE FROM apartments WHERE id = ?`, id)
		}
		db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, client.ID)
	}()

	for i := 0; i < 20; i++ {
		apartment := seedMySQLApartment(t, ctx, adapter)
		apartmentIDs = append(apartmentIDs, apartment.ID)

		reservationID, err := inventory.CreateReservation(ctx, client.ID, apartment.ID, 24)
		if err != nil {
			t.Fatalf("reserve failed: %v", err)
		}

		var wg sync.WaitGroup
		var cancelErr, saleErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			cancelErr = inventory.CancelReservation(ctx, reservationID)
		}()
		go func() {
			defer wg.Done()
			_, saleErr = inventory.ConfirmSale(ctx, domain.SaleRequest{
				ClientID:      client.ID,
				ApartmentID:   apartment.ID,
				ReservationID: &reservationID,
				DownPayment:   decimal.RequireFromString("1000.00"),
				TotalPrice:    decimal.RequireFromString("250000.00"),
			})
		}()
		wg.Wait()

		for _, err := range []error{cancelErr, saleErr} {
			if err != nil && !errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("round %d: loser got a technical error: %v", i, err)
			}
		}
		if (cancelErr == nil) == (saleErr == nil) {
			t.Fatalf("round %d: expected exactly one winner, cancel=%v sale=%v", i, cancelErr, saleErr)
		}

		got, err := adapter.GetApartment(ctx, apartment.ID)
		if err != nil || got == nil {
			t.Fatalf("reload apartment failed: %v", err)
		}
		want := domain.ApartmentStatusAvailable
		if saleErr == nil {
			want = domain.ApartmentStatusSold
		}
		if got.Status != want {
			t.Errorf("round %d: status = %s, want %s", i, got.Status, want)
		}
	}
}
