package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/apartment-sales/internal/adapter/logger"
	"github.com/rl1809/apartment-sales/internal/adapter/storage"
	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/core/service"
	"github.com/rl1809/apartment-sales/internal/port"
)

const (
	totalRequests = 50
	expiresHours  = 24
)

// Races totalRequests clients for one apartment, first as reservations and
// then as walk-in sales. Exactly one of each must win. Set MYSQL_DSN to run
// against MySQL instead of the in-memory store.
func main() {
	ctx := context.Background()
	appLogger := logger.NewSlogAdapter(logger.SlogConfig{Level: slog.LevelWarn, UseColor: true})

	store, cleanup := openStore(ctx)
	defer cleanup()

	apartments := service.NewApartmentService(store, appLogger)
	clients := service.NewClientService(store, appLogger)
	inventory := service.NewInventoryService(store, nil, nil, appLogger)

	run := uuid.NewString()[:8]
	reserved := mustApartment(ctx, apartments, "STRESS-R-"+run)
	sold := mustApartment(ctx, apartments, "STRESS-S-"+run)

	clientIDs := make([]uuid.UUID, totalRequests)
	for i := range clientIDs {
		c, err := clients.Create(ctx, domain.ClientDetails{
			Name:     fmt.Sprintf("Stress Client %d", i),
			Email:    fmt.Sprintf("stress-%s-%d@example.com", run, i),
			Document: fmt.Sprintf("%s%03d", run, i),
		})
		if err != nil {
			log.Fatalf("failed to create client: %v", err)
		}
		clientIDs[i] = c.ID
	}

	ok := true
	ok = report("RESERVATION RACE", race(clientIDs, func(clientID uuid.UUID) error {
		_, err := inventory.CreateReservation(ctx, clientID, reserved.ID, expiresHours)
		return err
	})) && ok
	ok = report("SALE RACE", race(clientIDs, func(clientID uuid.UUID) error {
		_, err := inventory.ConfirmSale(ctx, domain.SaleRequest{
			ClientID:    clientID,
			ApartmentID: sold.ID,
			DownPayment: decimal.NewFromInt(1000),
			TotalPrice:  sold.Price,
		})
		return err
	})) && ok

	final, err := apartments.Get(ctx, sold.ID)
	if err != nil {
		log.Fatalf("failed to reload apartment: %v", err)
	}
	if final.Status == domain.ApartmentStatusSold {
		fmt.Println("PASS: Apartment is sold")
	} else {
		fmt.Printf("FAIL: Expected status sold, got %s\n", final.Status)
		ok = false
	}

	if !ok {
		os.Exit(1)
	}
}

type raceResult struct {
	success   int32
	conflicts int32
	other     int32
	elapsed   time.Duration
}

func race(clientIDs []uuid.UUID, attempt func(clientID uuid.UUID) error) raceResult {
	var successCount, conflictCount, otherCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for _, id := range clientIDs {
		wg.Add(1)
		go func(clientID uuid.UUID) {
			defer wg.Done()

			err := attempt(clientID)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrConflict):
				conflictCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}(id)
	}

	wg.Wait()
	return raceResult{
		success:   successCount.Load(),
		conflicts: conflictCount.Load(),
		other:     otherCount.Load(),
		elapsed:   time.Since(start),
	}
}

func report(title string, r raceResult) bool {
	fmt.Printf("========== %s ==========\n", title)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", r.success)
	fmt.Printf("Conflicts:        %d\n", r.conflicts)
	fmt.Printf("Other errors:     %d\n", r.other)
	fmt.Printf("Duration:         %v\n", r.elapsed)

	if r.success == 1 && r.conflicts == totalRequests-1 {
		fmt.Printf("PASS: Exactly 1 succeeded, %d conflicted\n", totalRequests-1)
		return true
	}
	fmt.Printf("FAIL: Expected 1 success/%d conflicts, got %d/%d\n", totalRequests-1, r.success, r.conflicts)
	return false
}

func openStore(ctx context.Context) (port.Store, func()) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return storage.NewMemoryStore(), func() {}
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	db.SetMaxOpenConns(totalRequests)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	return storage.NewMySQLAdapter(db), func() { db.Close() }
}

func mustApartment(ctx context.Context, apartments *service.ApartmentService, code string) *domain.Apartment {
	a, err := apartments.Create(ctx, domain.ApartmentDetails{
		Code:   code,
		Block:  "STRESS",
		Floor:  1,
		Number: 1,
		Price:  decimal.NewFromInt(300000),
	})
	if err != nil {
		log.Fatalf("failed to create apartment: %v", err)
	}
	return a
}
