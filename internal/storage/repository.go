// Package storage persists users, properties, tariff configurations
// and bills in a single SQLite database. Configurations and bill cost
// data are stored as JSON documents; columns exist for the fields the
// queries filter and order by.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/on3oleg/utihome/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// User is an account row. PasswordHash is a bcrypt hash.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Property is a billable object (apartment, house, garage) owned by a
// user. Every tariff configuration and bill is scoped to one property.
type Property struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
}

// PendingExportBill identifies a committed bill that has not reached
// the external export sink yet.
type PendingExportBill struct {
	ID         int64
	PropertyID int64
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?)`,
		email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, persistErr("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, persistErr("create user id", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "email", email)
	return User{ID: id, Email: email, PasswordHash: passwordHash}, nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, persistErr("get user by email", err)
	}
	return u, nil
}

// --- Properties ---

func (r *SQLiteRepository) CreateProperty(ctx context.Context, userID int64, name, description string) (Property, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO properties (user_id, name, description) VALUES (?, ?, ?)`,
		userID, name, description)
	if err != nil {
		return Property{}, persistErr("create property", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Property{}, persistErr("create property id", err)
	}

	slog.InfoContext(ctx, "Property created", "id", id, "user_id", userID, "name", name)
	return Property{ID: id, UserID: userID, Name: name, Description: description}, nil
}

func (r *SQLiteRepository) ListProperties(ctx context.Context, userID int64) ([]Property, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description FROM properties WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, persistErr("list properties", err)
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description); err != nil {
			return nil, persistErr("scan property", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list properties", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Property(ctx context.Context, id int64) (Property, error) {
	var p Property
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description FROM properties WHERE id = ?`,
		id).Scan(&p.ID, &p.UserID, &p.Name, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	if err != nil {
		return Property{}, persistErr("get property", err)
	}
	return p, nil
}

func (r *SQLiteRepository) RenameProperty(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE properties SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return persistErr("rename property", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Tariff configuration ---

// TariffConfig loads the configuration document for a property. A
// property with nothing stored gets the blank-slate default; that is
// not an error.
func (r *SQLiteRepository) TariffConfig(ctx context.Context, propertyID int64) (core.TariffConfig, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM tariff_configs WHERE property_id = ?`,
		propertyID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultTariffConfig(), nil
	}
	if err != nil {
		return core.TariffConfig{}, persistErr("get tariff config", err)
	}

	cfg, err := decodeTariffConfig([]byte(data))
	if err != nil {
		return core.TariffConfig{}, persistErr("decode tariff config", err)
	}
	return cfg, nil
}

func (r *SQLiteRepository) SaveTariffConfig(ctx context.Context, propertyID int64, cfg core.TariffConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return persistErr("encode tariff config", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tariff_configs (property_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(property_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		propertyID, string(data), time.Now().UTC())
	if err != nil {
		return persistErr("save tariff config", err)
	}
	return nil
}

// --- Bills ---

// AppendBill inserts an immutable bill row and returns it with the
// assigned id.
func (r *SQLiteRepository) AppendBill(ctx context.Context, propertyID int64, bill core.BillRecord) (core.BillRecord, error) {
	saved, err := appendBillTx(ctx, r.db, propertyID, bill)
	if err != nil {
		return core.BillRecord{}, persistErr("append bill", err)
	}
	return saved, nil
}

// CommitBill persists the two artifacts of one billing commit in a
// single transaction: the frozen bill first, then the advanced
// configuration. Callers have already applied the commit guard.
func (r *SQLiteRepository) CommitBill(ctx context.Context, propertyID int64, bill core.BillRecord, advanced core.TariffConfig) (core.BillRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.BillRecord{}, persistErr("begin commit", err)
	}
	defer tx.Rollback()

	saved, err := appendBillTx(ctx, tx, propertyID, bill)
	if err != nil {
		return core.BillRecord{}, persistErr("append bill", err)
	}

	data, err := json.Marshal(advanced)
	if err != nil {
		return core.BillRecord{}, persistErr("encode tariff config", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tariff_configs (property_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(property_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		propertyID, string(data), time.Now().UTC()); err != nil {
		return core.BillRecord{}, persistErr("save tariff config", err)
	}

	if err := tx.Commit(); err != nil {
		return core.BillRecord{}, persistErr("commit bill", err)
	}

	slog.InfoContext(ctx, "Bill committed",
		"id", saved.ID,
		"property_id", propertyID,
		"total_cost", saved.TotalCost.String())
	return saved, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendBillTx(ctx context.Context, db execer, propertyID int64, bill core.BillRecord) (core.BillRecord, error) {
	data, err := json.Marshal(bill)
	if err != nil {
		return core.BillRecord{}, fmt.Errorf("encode bill: %w", err)
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO bills (property_id, date, name, total_cost, data) VALUES (?, ?, ?, ?, ?)`,
		propertyID, bill.Date.UTC(), bill.Name, bill.TotalCost.String(), string(data))
	if err != nil {
		return core.BillRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.BillRecord{}, err
	}
	bill.ID = strconv.FormatInt(id, 10)
	return bill, nil
}

// ListBills returns the bills for a property, newest first.
func (r *SQLiteRepository) ListBills(ctx context.Context, propertyID int64) ([]core.BillRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, name, data FROM bills WHERE property_id = ? ORDER BY date DESC, id DESC`,
		propertyID)
	if err != nil {
		return nil, persistErr("list bills", err)
	}
	defer rows.Close()

	var out []core.BillRecord
	for rows.Next() {
		bill, _, err := scanBill(rows)
		if err != nil {
			return nil, persistErr("scan bill", err)
		}
		out = append(out, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list bills", err)
	}
	return out, nil
}

// Bill loads one bill and the property it belongs to.
func (r *SQLiteRepository) Bill(ctx context.Context, billID int64) (core.BillRecord, int64, error) {
	var (
		id         int64
		propertyID int64
		date       time.Time
		name       string
		data       string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, property_id, date, name, data FROM bills WHERE id = ?`,
		billID).Scan(&id, &propertyID, &date, &name, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BillRecord{}, 0, ErrNotFound
	}
	if err != nil {
		return core.BillRecord{}, 0, persistErr("get bill", err)
	}

	bill, err := decodeBill(id, date, name, []byte(data))
	if err != nil {
		return core.BillRecord{}, 0, persistErr("decode bill", err)
	}
	return bill, propertyID, nil
}

// RenameBill changes the user-assigned label. Cost fields are frozen at
// commit time and never touched.
func (r *SQLiteRepository) RenameBill(ctx context.Context, billID int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET name = ? WHERE id = ?`, name, billID)
	if err != nil {
		return persistErr("rename bill", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Export bookkeeping ---

func (r *SQLiteRepository) PendingExportBills(ctx context.Context, limit int) ([]PendingExportBill, error) {
	// export_error is diagnostic only; errored bills stay in the queue so the
	// periodic catch-up pass retries them.
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, property_id FROM bills WHERE exported = 0 ORDER BY id LIMIT ?`,
		limit)
	if err != nil {
		return nil, persistErr("pending export bills", err)
	}
	defer rows.Close()

	var out []PendingExportBill
	for rows.Next() {
		var p PendingExportBill
		if err := rows.Scan(&p.ID, &p.PropertyID); err != nil {
			return nil, persistErr("scan pending export bill", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("pending export bills", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, billID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE bills SET exported = 1, export_error = 0 WHERE id = ?`, billID); err != nil {
		return persistErr("mark exported", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, billID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE bills SET export_error = 1 WHERE id = ?`, billID); err != nil {
		return persistErr("mark export error", err)
	}
	slog.WarnContext(ctx, "Bill marked with export error", "id", billID)
	return nil
}

// --- Helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (core.BillRecord, int64, error) {
	var (
		id   int64
		date time.Time
		name string
		data string
	)
	if err := row.Scan(&id, &date, &name, &data); err != nil {
		return core.BillRecord{}, 0, err
	}
	bill, err := decodeBill(id, date, name, []byte(data))
	return bill, id, err
}

// decodeBill unmarshals the frozen JSON document and overlays the
// columns that are authoritative: id, date and the renameable name.
func decodeBill(id int64, date time.Time, name string, data []byte) (core.BillRecord, error) {
	var bill core.BillRecord
	if err := json.Unmarshal(data, &bill); err != nil {
		return core.BillRecord{}, fmt.Errorf("decode bill %d: %w", id, err)
	}
	bill.ID = strconv.FormatInt(id, 10)
	bill.Date = date
	bill.Name = name
	return bill, nil
}

func decodeTariffConfig(data []byte) (core.TariffConfig, error) {
	var cfg core.TariffConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return core.TariffConfig{}, err
	}
	if cfg.CustomReadings == nil {
		cfg.CustomReadings = map[string]decimal.Decimal{}
	}
	return cfg, nil
}

func isUniqueViolation(err error) bool {
	// modernc sqlite surfaces constraint failures in the message;
	// there is no exported error code type to match on.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
