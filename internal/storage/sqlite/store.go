// Package sqlite implements storage.Store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/wiz-abhi/LedgerBook/internal/core"
	"github.com/wiz-abhi/LedgerBook/internal/storage"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Ledger writes open their SQL transactions immediate, so a second
	// writer queues on the busy timeout instead of failing mid-transaction
	// with SQLITE_BUSY on the lock upgrade.
	dsn := "file:" + dbPath + "?_txlock=immediate&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) CreateCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Version = 1
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (id, name, village, contact, dues_paise, version, sync_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)`,
		c.ID, c.Name, c.Village, c.Contact, c.Dues.Paise, c.Version, c.CreatedAt)
	if err != nil {
		return core.Customer{}, fmt.Errorf("insert customer: %w", err)
	}

	slog.InfoContext(ctx, "Customer saved to SQLite",
		"customer_id", c.ID,
		"name", c.Name,
		"village", c.Village)

	return c, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (core.Customer, error) {
	return scanCustomer(s.db.QueryRowContext(ctx,
		`SELECT id, name, village, contact, dues_paise, version, created_at
		 FROM customers WHERE id = ?`, id))
}

func (s *Store) UpdateCustomer(ctx context.Context, id string, upd storage.CustomerUpdate) error {
	cur, err := s.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	if upd.Name != nil {
		cur.Name = *upd.Name
	}
	if upd.Village != nil {
		cur.Village = *upd.Village
	}
	if upd.Contact != nil {
		cur.Contact = *upd.Contact
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE customers SET name = ?, village = ?, contact = ?, version = version + 1, sync_status = 'pending'
		 WHERE id = ?`,
		cur.Name, cur.Village, cur.Contact, id)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteCustomer removes the customer together with its transaction log.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete customer: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE customer_id = ?`, id); err != nil {
		return fmt.Errorf("delete customer transactions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete customer: %w", err)
	}

	slog.InfoContext(ctx, "Customer deleted", "customer_id", id)
	return nil
}

func (s *Store) ListCustomers(ctx context.Context, sort storage.SortKey) ([]core.Customer, error) {
	// Sort keys map to fixed clauses; user input never reaches the SQL text.
	orderBy := "name COLLATE NOCASE"
	switch sort {
	case storage.SortByVillage:
		orderBy = "village COLLATE NOCASE, name COLLATE NOCASE"
	case storage.SortByDues:
		orderBy = "dues_paise DESC, name COLLATE NOCASE"
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, village, contact, dues_paise, version, created_at
		 FROM customers ORDER BY `+orderBy)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []core.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Villages(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT village FROM customers WHERE village != '' ORDER BY village COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list villages: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan village: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT id, customer_id, amount_paise, type, description, created_at
		 FROM transactions WHERE id = ?`, id))
}

func (s *Store) ListTransactions(ctx context.Context, customerID string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, amount_paise, type, description, created_at
		 FROM transactions WHERE customer_id = ? ORDER BY created_at DESC, id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]core.RecentTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.customer_id, t.amount_paise, t.type, t.description, t.created_at, c.name, c.village
		 FROM transactions t JOIN customers c ON c.id = t.customer_id
		 ORDER BY t.created_at DESC, t.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RecentTransaction
	for rows.Next() {
		var rt core.RecentTransaction
		if err := rows.Scan(&rt.ID, &rt.CustomerID, &rt.Amount.Paise, &rt.Type,
			&rt.Description, &rt.CreatedAt, &rt.CustomerName, &rt.Village); err != nil {
			return nil, fmt.Errorf("scan recent transaction: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// ApplyTransaction records t and adjusts the owning customer's balance in a
// single SQL transaction. The version check makes a concurrent balance
// mutation fail with core.ErrConflict instead of silently losing an update.
func (s *Store) ApplyTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin apply transaction: %w", err)
	}
	defer tx.Rollback()

	cust, err := scanCustomer(tx.QueryRowContext(ctx,
		`SELECT id, name, village, contact, dues_paise, version, created_at
		 FROM customers WHERE id = ?`, t.CustomerID))
	if err != nil {
		return core.Transaction{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, customer_id, amount_paise, type, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.CustomerID, t.Amount.Paise, t.Type, t.Description, t.CreatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	newDues := core.ApplyNew(cust.Dues, t.Amount)
	if err := s.updateDues(ctx, tx, cust, newDues); err != nil {
		return core.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit apply transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction applied",
		"transaction_id", t.ID,
		"customer_id", t.CustomerID,
		"txn_type", string(t.Type),
		"amount_paise", t.Amount.Paise,
		"new_dues_paise", newDues.Paise)

	return t, nil
}

func (s *Store) EditTransaction(ctx context.Context, id string, upd storage.TransactionUpdate) (core.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin edit transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := scanTransaction(tx.QueryRowContext(ctx,
		`SELECT id, customer_id, amount_paise, type, description, created_at
		 FROM transactions WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, err
	}

	cust, err := scanCustomer(tx.QueryRowContext(ctx,
		`SELECT id, name, village, contact, dues_paise, version, created_at
		 FROM customers WHERE id = ?`, old.CustomerID))
	if err != nil {
		return core.Transaction{}, err
	}

	updated := old
	updated.Amount = upd.Amount
	updated.Type = upd.Type
	updated.Description = upd.Description

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET amount_paise = ?, type = ?, description = ? WHERE id = ?`,
		updated.Amount.Paise, updated.Type, updated.Description, id); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	newDues := core.ApplyEdit(cust.Dues, old.Amount, updated.Amount)
	if err := s.updateDues(ctx, tx, cust, newDues); err != nil {
		return core.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit edit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction edited",
		"transaction_id", id,
		"customer_id", old.CustomerID,
		"old_amount_paise", old.Amount.Paise,
		"new_amount_paise", updated.Amount.Paise,
		"new_dues_paise", newDues.Paise)

	return updated, nil
}

func (s *Store) RemoveTransaction(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := scanTransaction(tx.QueryRowContext(ctx,
		`SELECT id, customer_id, amount_paise, type, description, created_at
		 FROM transactions WHERE id = ?`, id))
	if err != nil {
		return err
	}

	cust, err := scanCustomer(tx.QueryRowContext(ctx,
		`SELECT id, name, village, contact, dues_paise, version, created_at
		 FROM customers WHERE id = ?`, old.CustomerID))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	newDues := core.ApplyDelete(cust.Dues, old.Amount)
	if err := s.updateDues(ctx, tx, cust, newDues); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction removed",
		"transaction_id", id,
		"customer_id", old.CustomerID,
		"amount_paise", old.Amount.Paise,
		"new_dues_paise", newDues.Paise)

	return nil
}

func (s *Store) PendingSyncCustomers(ctx context.Context, limit int) ([]storage.PendingSyncCustomer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version FROM customers WHERE sync_status != 'synced'
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync customers: %w", err)
	}
	defer rows.Close()

	var out []storage.PendingSyncCustomer
	for rows.Next() {
		var p storage.PendingSyncCustomer
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending sync customer: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkCustomerSynced records a successful spreadsheet export. The version
// guard keeps the row pending when the customer changed again while the
// export was in flight.
func (s *Store) MarkCustomerSynced(ctx context.Context, id string, version int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE customers SET sync_status = 'synced' WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark customer synced: %w", err)
	}
	return nil
}

func (s *Store) MarkCustomerSyncError(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE customers SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark customer sync error: %w", err)
	}
	slog.WarnContext(ctx, "Customer marked with sync error", "customer_id", id)
	return nil
}

// updateDues writes the new balance with a version check. Zero rows
// affected means another writer moved the balance under us.
func (s *Store) updateDues(ctx context.Context, tx *sql.Tx, cust core.Customer, dues core.Money) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE customers SET dues_paise = ?, version = version + 1, sync_status = 'pending'
		 WHERE id = ? AND version = ?`,
		dues.Paise, cust.ID, cust.Version)
	if err != nil {
		return fmt.Errorf("update customer dues: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (core.Customer, error) {
	var c core.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Village, &c.Contact, &c.Dues.Paise, &c.Version, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, core.ErrNotFound
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	return c, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	err := row.Scan(&t.ID, &t.CustomerID, &t.Amount.Paise, &t.Type, &t.Description, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
