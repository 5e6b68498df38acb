// File: models/wallet.go
package models

import "time"

// WalletTransaction is an append-only ledger entry written when a job
// completes. Never edited or removed by the core.
type WalletTransaction struct {
	ID          string    `bson:"id" json:"id"`
	UserID      string    `bson:"userId" json:"userId"`
	Date        time.Time `bson:"date" json:"date"`
	Title       string    `bson:"title" json:"title"`
	Amount      float64   `bson:"amount" json:"amount"`
	BottleCount int       `bson:"bottleCount" json:"bottleCount"`
}
