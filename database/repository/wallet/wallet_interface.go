package walletRepo

import (
	"context"

	"bottlebank/models"
)

// WalletRepository defines data access for the append-only wallet ledger.
type WalletRepository interface {
	// Append adds a transaction to the user's ledger.
	Append(ctx context.Context, txn *models.WalletTransaction) error
	// ListByUser retrieves a user's transactions, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.WalletTransaction, error)
	// ListAll retrieves every transaction.
	ListAll(ctx context.Context) ([]models.WalletTransaction, error)
}
