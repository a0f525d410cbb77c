package handler

import (
	"context"
	"net"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newGRPCClient(t *testing.T, f *fixture) *InventoryClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryServerInterceptor(nopLogger{})))
	RegisterInventoryServer(srv, NewGRPCHandler(f.inventory))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewInventoryClient(conn)
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Errorf("code = %s, want %s (err %v)", got, want, err)
	}
}

func TestGRPC_ReserveAndConfirm(t *testing.T) {
	f := newFixture(t)
	client := newGRPCClient(t, f)
	ctx := context.Background()

	reserve := &ReserveRequest{
		ClientID:     f.client.ID.String(),
		ApartmentID:  f.apartment.ID.String(),
		ExpiresHours: 12,
	}
	resp, err := client.Reserve(ctx, reserve)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := uuid.Parse(resp.ReservationID); err != nil {
		t.Fatalf("reservation id %q: %v", resp.ReservationID, err)
	}

	_, err = client.Reserve(ctx, reserve)
	assertCode(t, err, codes.FailedPrecondition)

	sale, err := client.ConfirmSale(ctx, &ConfirmSaleRequest{
		ClientID:      f.client.ID.String(),
		ApartmentID:   f.apartment.ID.String(),
		ReservationID: resp.ReservationID,
		DownPayment:   "10000.00",
		TotalPrice:    "250000.00",
	})
	if err != nil {
		t.Fatalf("ConfirmSale: %v", err)
	}
	if sale.SaleID == "" {
		t.Error("expected sale id")
	}

	_, err = client.CancelReservation(ctx, &CancelReservationRequest{ReservationID: resp.ReservationID})
	assertCode(t, err, codes.FailedPrecondition)
}

func TestGRPC_CancelReservation(t *testing.T) {
	f := newFixture(t)
	client := newGRPCClient(t, f)
	ctx := context.Background()

	resp, err := client.Reserve(ctx, &ReserveRequest{
		ClientID:     f.client.ID.String(),
		ApartmentID:  f.apartment.ID.String(),
		ExpiresHours: 1,
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if _, err := client.CancelReservation(ctx, &CancelReservationRequest{ReservationID: resp.ReservationID}); err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}

	_, err = client.CancelReservation(ctx, &CancelReservationRequest{ReservationID: resp.ReservationID})
	assertCode(t, err, codes.NotFound)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	f := newFixture(t)
	client := newGRPCClient(t, f)
	ctx := context.Background()

	_, err := client.Reserve(ctx, &ReserveRequest{ClientID: "bad", ApartmentID: f.apartment.ID.String(), ExpiresHours: 1})
	assertCode(t, err, codes.InvalidArgument)

	_, err = client.Reserve(ctx, &ReserveRequest{ClientID: f.client.ID.String(), ApartmentID: f.apartment.ID.String(), ExpiresHours: 0})
	assertCode(t, err, codes.InvalidArgument)

	_, err = client.Reserve(ctx, &ReserveRequest{ClientID: f.client.ID.String(), ApartmentID: uuid.NewString(), ExpiresHours: 1})
	assertCode(t, err, codes.NotFound)

	_, err = client.ConfirmSale(ctx, &ConfirmSaleRequest{
		ClientID:    f.client.ID.String(),
		ApartmentID: f.apartment.ID.String(),
		DownPayment: "abc",
		TotalPrice:  "100",
	})
	assertCode(t, err, codes.InvalidArgument)

	_, err = client.ConfirmSale(ctx, &ConfirmSaleRequest{
		ClientID:    f.client.ID.String(),
		ApartmentID: f.apartment.ID.String(),
		DownPayment: "0",
		TotalPrice:  "0",
	})
	assertCode(t, err, codes.InvalidArgument)
}

func TestGRPC_DuplicateRequestID(t *testing.T) {
	f := newFixture(t)
	client := newGRPCClient(t, f)
	ctx := context.Background()

	req := &ReserveRequest{
		RequestID:    "grpc-req-1",
		ClientID:     f.client.ID.String(),
		ApartmentID:  f.apartment.ID.String(),
		ExpiresHours: 1,
	}
	if _, err := client.Reserve(ctx, req); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	_, err := client.Reserve(ctx, req)
	assertCode(t, err, codes.AlreadyExists)
}
