package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/merchflow/echeck-debit-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionStore reads enrichment records and writes back gateway
// authorization ids.
type TransactionStore struct {
	db *pgxpool.Pool
}

func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db.Pool}
}

// FindByID retrieves the enrichment record for a transaction: the
// transaction row joined with its consumer and merchant, plus the latest
// settlement event if one exists. Returns ErrTransactionNotFound when the
// transaction is unknown.
func (s *TransactionStore) FindByID(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
	query := `
		SELECT
			t.transaction_id,
			right(t.transaction_id, 6) AS serial_number,
			t.stamp,
			t.total_amount::text,
			t.consumer_id,
			t.merchant_id,
			t.terminal_id,
			t.approval_code,
			c.fname,
			c.lname,
			c.address1,
			c.address2,
			c.city,
			c.state,
			c.zip,
			c.home_phone,
			c.mobile_phone,
			m.address1 AS merchant_address,
			m.city AS merchant_city,
			m.state AS merchant_state,
			m.ach_trans_type,
			m.ach_statement_id,
			COALESCE(e.settled_log_id, '') AS settled_log_id
		FROM transactions t
		INNER JOIN consumers c ON t.consumer_id = c.consumer_id
		INNER JOIN merchants m ON t.merchant_id = m.merchant_id
		LEFT JOIN transaction_events e ON t.transaction_id = e.transaction_id
		WHERE t.transaction_id = $1
		ORDER BY e.created_on DESC
		LIMIT 1
	`

	row := s.db.QueryRow(ctx, query, transactionID)
	return scanRecord(row)
}

// RecordAuthorization writes a settlement event carrying the gateway's
// authorization id for a processed transaction.
func (s *TransactionStore) RecordAuthorization(ctx context.Context, transactionID, authorizationID string) error {
	query := `
		INSERT INTO transaction_events (transaction_id, settled_stamp, payliance_auth_id, created_on)
		VALUES ($1, now(), $2, now())
	`

	_, err := s.db.Exec(ctx, query, transactionID, authorizationID)
	if err != nil {
		return fmt.Errorf("failed to record authorization for transaction %s: %w", transactionID, err)
	}

	return nil
}

func scanRecord(row pgx.Row) (*domain.TransactionRecord, error) {
	var record domain.TransactionRecord
	var totalAmount string

	err := row.Scan(
		&record.TransactionID,
		&record.SerialNumber,
		&record.Stamp,
		&totalAmount,
		&record.ConsumerID,
		&record.MerchantID,
		&record.TerminalID,
		&record.ApprovalCode,
		&record.FirstName,
		&record.LastName,
		&record.Address1,
		&record.Address2,
		&record.City,
		&record.State,
		&record.Zip,
		&record.HomePhone,
		&record.MobilePhone,
		&record.MerchantAddress,
		&record.MerchantCity,
		&record.MerchantState,
		&record.ACHTransType,
		&record.ACHStatementID,
		&record.SettledLogID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction record: %w", err)
	}

	amount, err := decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total_amount %q: %w", totalAmount, err)
	}
	record.TotalAmount = amount

	return &record, nil
}
