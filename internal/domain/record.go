package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is the enrichment row looked up from the transaction
// store: the transaction itself joined with its consumer and merchant.
type TransactionRecord struct {
	TransactionID   string
	SerialNumber    string
	Stamp           time.Time
	TotalAmount     decimal.Decimal
	ConsumerID      string
	MerchantID      string
	TerminalID      string
	ApprovalCode    string
	FirstName       string
	LastName        string
	Address1        string
	Address2        string
	City            string
	State           string
	Zip             string
	HomePhone       string
	MobilePhone     string
	MerchantAddress string
	MerchantCity    string
	MerchantState   string
	ACHTransType    string
	ACHStatementID  string
	SettledLogID    string
}
