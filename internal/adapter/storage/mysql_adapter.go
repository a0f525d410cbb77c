package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/port"
)

const (
	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type MySQLAdapter struct {
	mysqlReader
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{mysqlReader: mysqlReader{q: db}, db: db}
}

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{mysqlReader: mysqlReader{q: tx}}); err != nil {
		if isLockConflict(err) {
			return port.ErrOptimisticLock
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isLockConflict(err) {
			return port.ErrOptimisticLock
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// isLockConflict reports a transaction InnoDB aborted or timed out on a row
// lock. Such a transaction is rolled back and can be run again.
func isLockConflict(err error) bool {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	return mysqlErr.Number == mysqlDeadlockDetected || mysqlErr.Number == mysqlLockWaitTimeout
}

type mysqlReader struct {
	q querier
}

const apartmentColumns = `id, code, block, floor, number, price, status, version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApartment(row rowScanner) (*domain.Apartment, error) {
	var a domain.Apartment
	err := row.Scan(&a.ID, &a.Code, &a.Block, &a.Floor, &a.Number, &a.Price, &a.Status, &a.Version, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r mysqlReader) getApartment(ctx context.Context, query string, arg any) (*domain.Apartment, error) {
	a, err := scanApartment(r.q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query apartment: %w", err)
	}
	return a, nil
}

func (r mysqlReader) GetApartment(ctx context.Context, id uuid.UUID) (*domain.Apartment, error) {
	return r.getApartment(ctx, `SELECT `+apartmentColumns+` FROM apartments WHERE id = ?`, id)
}

func (r mysqlReader) ListApartments(ctx context.Context, search string) ([]domain.Apartment, error) {
	query := `SELECT ` + apartmentColumns + ` FROM apartments`
	var args []any
	if search != "" {
		query += ` WHERE LOWER(code) LIKE ? OR LOWER(block) LIKE ?`
		pattern := likePattern(search)
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY code`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query apartments: %w", err)
	}
	defer rows.Close()

	var out []domain.Apartment
	for rows.Next() {
		a, err := scanApartment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan apartment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

const clientColumns = `id, name, email, document, phone, created_at`

func scanClient(row rowScanner) (*domain.Client, error) {
	var c domain.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Document, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r mysqlReader) getClient(ctx context.Context, query string, arg any) (*domain.Client, error) {
	c, err := scanClient(r.q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query client: %w", err)
	}
	return c, nil
}

func (r mysqlReader) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	return r.getClient(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
}

func (r mysqlReader) ListClients(ctx context.Context, search string) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	var args []any
	if search != "" {
		query += ` WHERE LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(document) LIKE ?`
		pattern := likePattern(search)
		args = append(args, pattern, pattern, pattern)
	}
	query += ` ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

const reservationColumns = `id, client_id, apartment_id, reserved_at, expires_at, confirmed_as_sale`

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var (
		res       domain.Reservation
		expiresAt sql.NullTime
	)
	if err := row.Scan(&res.ID, &res.ClientID, &res.ApartmentID, &res.ReservedAt, &expiresAt, &res.ConfirmedAsSale); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		res.ExpiresAt = &expiresAt.Time
	}
	return &res, nil
}

func (r mysqlReader) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	res, err := scanReservation(r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reservation: %w", err)
	}
	return res, nil
}

func (r mysqlReader) queryReservations(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r mysqlReader) ListReservations(ctx context.Context) ([]domain.Reservation, error) {
	return r.queryReservations(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY reserved_at DESC`)
}

const saleColumns = `id, client_id, apartment_id, reservation_id, down_payment, total_price, sold_at`

func scanSale(row rowScanner) (*domain.Sale, error) {
	var (
		s             domain.Sale
		reservationID uuid.NullUUID
	)
	if err := row.Scan(&s.ID, &s.ClientID, &s.ApartmentID, &reservationID, &s.DownPayment, &s.TotalPrice, &s.SoldAt); err != nil {
		return nil, err
	}
	if reservationID.Valid {
		s.ReservationID = &reservationID.UUID
	}
	return &s, nil
}

func (r mysqlReader) GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	s, err := scanSale(r.q.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query sale: %w", err)
	}
	return s, nil
}

func (r mysqlReader) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY sold_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r mysqlReader) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

type mysqlTx struct {
	mysqlReader
}

func (t *mysqlTx) FindApartmentByCode(ctx context.Context, code string) (*domain.Apartment, error) {
	return t.getApartment(ctx, `SELECT `+apartmentColumns+` FROM apartments WHERE code = ?`, code)
}

func (t *mysqlTx) InsertApartment(ctx context.Context, a domain.Apartment) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO apartments (id, code, block, floor, number, price, status, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Code, a.Block, a.Floor, a.Number, a.Price, a.Status, a.Version, a.CreatedAt,
	)
	if isDuplicateEntry(err) {
		return domain.ErrDuplicateApartment
	}
	if err != nil {
		return fmt.Errorf("insert apartment: %w", err)
	}
	return nil
}

func (t *mysqlTx) UpdateApartmentDetails(ctx context.Context, a domain.Apartment) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE apartments
		SET code = ?, block = ?, floor = ?, number = ?, price = ?
		WHERE id = ?`,
		a.Code, a.Block, a.Floor, a.Number, a.Price, a.ID,
	)
	if isDuplicateEntry(err) {
		return domain.ErrDuplicateApartment
	}
	if err != nil {
		return fmt.Errorf("update apartment: %w", err)
	}
	return nil
}

func (t *mysqlTx) UpdateApartmentStatus(ctx context.Context, id uuid.UUID, status domain.ApartmentStatus, expectedVersion int) error {
	result, err := t.q.ExecContext(ctx, `
		UPDATE apartments
		SET status = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		status, id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update apartment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update apartment status: %w", err)
	}
	if rows == 0 {
		return port.ErrOptimisticLock
	}
	return nil
}

func (t *mysqlTx) DeleteApartment(ctx context.Context, id uuid.UUID) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM apartments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete apartment: %w", err)
	}
	return nil
}

func (t *mysqlTx) countReferences(ctx context.Context, column string, id uuid.UUID) (int, error) {
	var n int
	err := t.q.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM reservations WHERE `+column+` = ?)
		     + (SELECT COUNT(*) FROM sales WHERE `+column+` = ?)`, id, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s references: %w", column, err)
	}
	return n, nil
}

func (t *mysqlTx) CountApartmentReferences(ctx context.Context, id uuid.UUID) (int, error) {
	return t.countReferences(ctx, "apartment_id", id)
}

func (t *mysqlTx) FindClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	return t.getClient(ctx, `SELECT `+clientColumns+` FROM clients WHERE email = ?`, email)
}

func (t *mysqlTx) FindClientByDocument(ctx context.Context, document string) (*domain.Client, error) {
	return t.getClient(ctx, `SELECT `+clientColumns+` FROM clients WHERE document = ?`, document)
}

func (t *mysqlTx) InsertClient(ctx context.Context, c domain.Client) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO clients (id, name, email, document, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Document, c.Phone, c.CreatedAt,
	)
	if isDuplicateEntry(err) {
		return domain.ErrDuplicateClient
	}
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (t *mysqlTx) UpdateClient(ctx context.Context, c domain.Client) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE clients SET name = ?, email = ?, document = ?, phone = ?
		WHERE id = ?`,
		c.Name, c.Email, c.Document, c.Phone, c.ID,
	)
	if isDuplicateEntry(err) {
		return domain.ErrDuplicateClient
	}
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

func (t *mysqlTx) DeleteClient(ctx context.Context, id uuid.UUID) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}

func (t *mysqlTx) CountClientReferences(ctx context.Context, id uuid.UUID) (int, error) {
	return t.countReferences(ctx, "client_id", id)
}

func (t *mysqlTx) InsertReservation(ctx context.Context, res domain.Reservation) error {
	var expiresAt sql.NullTime
	if res.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *res.ExpiresAt, Valid: true}
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO reservations (id, client_id, apartment_id, reserved_at, expires_at, confirmed_as_sale)
		VALUES (?, ?, ?, ?, ?, ?)`,
		res.ID, res.ClientID, res.ApartmentID, res.ReservedAt, expiresAt, res.ConfirmedAsSale,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (t *mysqlTx) MarkReservationConfirmed(ctx context.Context, id uuid.UUID) error {
	result, err := t.q.ExecContext(ctx, `UPDATE reservations SET confirmed_as_sale = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("confirm reservation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm reservation: %w", err)
	}
	if rows == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (t *mysqlTx) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	result, err := t.q.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if rows == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (t *mysqlTx) ListExpiredReservations(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	return t.queryReservations(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE confirmed_as_sale = FALSE AND expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at`, now)
}

func (t *mysqlTx) InsertSale(ctx context.Context, s domain.Sale) error {
	var reservationID uuid.NullUUID
	if s.ReservationID != nil {
		reservationID = uuid.NullUUID{UUID: *s.ReservationID, Valid: true}
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO sales (id, client_id, apartment_id, reservation_id, down_payment, total_price, sold_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ClientID, s.ApartmentID, reservationID, s.DownPayment, s.TotalPrice, s.SoldAt,
	)
	if isDuplicateEntry(err) {
		return domain.ErrApartmentSold
	}
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (t *mysqlTx) InsertUser(ctx context.Context, u domain.User) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func likePattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}
