package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"foliodesk/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ TransactionStore = (*SQLiteStore)(nil)

const transactionsSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id TEXT    NOT NULL,
	symbol     TEXT    NOT NULL,
	order_type TEXT    NOT NULL,
	quantity   TEXT    NOT NULL,
	price      TEXT    NOT NULL,
	total      TEXT    NOT NULL,
	timestamp  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_account
	ON transactions(account_id, timestamp DESC);
`

// SQLiteStore implements TransactionStore backed by a SQLite database.
// Decimal columns are stored as text to avoid float drift.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(transactionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTransaction inserts a new transaction and sets tx.ID.
func (s *SQLiteStore) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (account_id, symbol, order_type, quantity, price, total, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.AccountID,
		tx.Symbol,
		string(tx.OrderType),
		tx.Quantity.String(),
		tx.Price.String(),
		tx.Total.String(),
		tx.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting transaction for %s: %w", tx.Symbol, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading transaction id: %w", err)
	}
	tx.ID = id
	return nil
}

// ListTransactions returns the account's transactions newest-first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	query := `SELECT id, account_id, symbol, order_type, quantity, price, total, timestamp
		FROM transactions WHERE account_id = ? ORDER BY timestamp DESC, id DESC`
	args := []any{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %s: %w", accountID, err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var (
			tx                         domain.Transaction
			orderType                  string
			quantity, price, total, ts string
		)
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Symbol, &orderType, &quantity, &price, &total, &ts); err != nil {
			return nil, fmt.Errorf("scanning transaction row: %w", err)
		}

		tx.OrderType = domain.OrderType(orderType)
		if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("parsing quantity %q: %w", quantity, err)
		}
		if tx.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing price %q: %w", price, err)
		}
		if tx.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parsing total %q: %w", total, err)
		}
		if tx.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", ts, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
