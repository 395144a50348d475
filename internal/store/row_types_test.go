package store

import "time"

// Timestamp columns scan into time.Time, never raw driver values.
var (
	_ time.Time = Country{}.CreatedAt
	_ time.Time = Wallet{}.CreatedAt
	_ time.Time = Wallet{}.UpdatedAt
	_ time.Time = WalletEntry{}.CreatedAt
	_ time.Time = TransactionEvent{}.CreatedAt
)
