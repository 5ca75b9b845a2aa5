package sheets

import (
	"context"

	"fincli/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter mirrors an imported transaction into a spreadsheet.
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)

// Row renders tx as the spreadsheet row the adapters write: date,
// description, amount, type, category, account, tags, backend ID.
func Row(tx core.Transaction) []any {
	category := tx.CategoryName
	if category == "" {
		category = tx.Category
	}
	account := tx.AccountName
	if account == "" {
		account = tx.Account
	}
	tags := ""
	for i, t := range tx.Tags {
		if i > 0 {
			tags += ", "
		}
		tags += t
	}
	return []any{tx.Date, tx.Description, tx.Amount.Float(), string(tx.Type), category, account, tags, tx.ID}
}
