package domain

import "time"

// TransactionTypeAsset is the feed discriminator for asset sales.
// Entries with any other type are never stored.
const TransactionTypeAsset = "Asset"

// SaleRecord represents one stored sale.
// Corresponds to the sales table. Rows are created once and never mutated.
type SaleRecord struct {
	IDHash     string    // content hash of the feed transaction (unique)
	GroupID    int64     // partition the sale belongs to
	Item       string    // display name
	BuyerName  string    // buyer display name
	BuyerID    int64     // buyer identifier
	Amount     int64     // currency units, non-negative
	OccurredAt time.Time // feed-supplied timestamp
}

// Validate checks required fields.
func (r *SaleRecord) Validate() bool {
	return r != nil && r.IDHash != "" && r.Amount >= 0 && !r.OccurredAt.IsZero()
}

// DailyTotal is the summed amount of one calendar day.
type DailyTotal struct {
	Date  time.Time // UTC midnight of the calendar day
	Total int64
}
