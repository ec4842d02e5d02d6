package testhelpers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TransactionFixture identifies the rows seeded by SeedTransaction.
type TransactionFixture struct {
	TransactionID string
	ConsumerID    string
	MerchantID    string
}

// SeedTransaction inserts a consumer, a merchant, and one transaction owned by
// them, returning the generated ids. totalAmount is a decimal string such as
// "149.99".
func SeedTransaction(t *testing.T, td *TestDatabase, totalAmount string) TransactionFixture {
	ctx := context.Background()

	fixture := TransactionFixture{
		TransactionID: "txn-" + uuid.New().String(),
		ConsumerID:    "cons-" + uuid.New().String(),
		MerchantID:    "merch-" + uuid.New().String(),
	}

	_, err := td.DB.Pool.Exec(ctx, `
		INSERT INTO consumers (consumer_id, fname, lname, address1, address2, city, state, zip, home_phone, mobile_phone)
		VALUES ($1, 'Ada', 'Lovelace', '12 Analytical Way', 'Apt 4', 'Austin', 'TX', '78701', '5125550100', '5125550101')`,
		fixture.ConsumerID)
	require.NoError(t, err)

	_, err = td.DB.Pool.Exec(ctx, `
		INSERT INTO merchants (merchant_id, address1, city, state, ach_trans_type, ach_statement_id)
		VALUES ($1, '900 Commerce St', 'Dallas', 'TX', 'WEB', 'MERCHFLOW POS')`,
		fixture.MerchantID)
	require.NoError(t, err)

	_, err = td.DB.Pool.Exec(ctx, `
		INSERT INTO transactions (transaction_id, total_amount, consumer_id, merchant_id, terminal_id, approval_code)
		VALUES ($1, $2, $3, $4, 'TERM-01', 'APPR01')`,
		fixture.TransactionID, totalAmount, fixture.ConsumerID, fixture.MerchantID)
	require.NoError(t, err)

	return fixture
}
