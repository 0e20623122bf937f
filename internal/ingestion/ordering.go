package ingestion

import (
	"errors"

	"salesbot/internal/feed"
)

// ErrInvalidOrdering is returned when transactions are not oldest-first.
var ErrInvalidOrdering = errors.New("transactions are not in chronological order")

// OldestFirst returns the newest-first feed page reversed, so sales are stored and
// announced in the order they happened. The input slice is not modified.
func OldestFirst(txs []feed.Transaction) []feed.Transaction {
	out := make([]feed.Transaction, len(txs))
	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}
	return out
}

// ValidateOldestFirst checks that created timestamps never decrease.
// Returns ErrInvalidOrdering if they do.
func ValidateOldestFirst(txs []feed.Transaction) error {
	for i := 1; i < len(txs); i++ {
		if txs[i].Created.Before(txs[i-1].Created) {
			return ErrInvalidOrdering
		}
	}
	return nil
}
