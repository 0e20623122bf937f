package feed

import (
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/idhash"
)

type transactionPage struct {
	Data []Transaction `json:"data"`
}

// Transaction is a single entry of the transactions feed.
type Transaction struct {
	IDHash   string    `json:"idHash"`
	Created  time.Time `json:"created"`
	Agent    Agent     `json:"agent"`
	Details  Details   `json:"details"`
	Currency Currency  `json:"currency"`
}

// Agent is the buyer of a transaction.
type Agent struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Details describes the sold item.
type Details struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Currency holds the transaction amount in whole currency units.
type Currency struct {
	Amount int64 `json:"amount"`
}

// IsAsset reports whether the transaction sold an asset item.
func (t Transaction) IsAsset() bool {
	return t.Details.Type == domain.TransactionTypeAsset
}

// ToSaleRecord converts the transaction into a record for groupID.
// When the feed omits a hash, the id is derived from the transaction content.
func (t Transaction) ToSaleRecord(groupID int64) *domain.SaleRecord {
	occurredAt := t.Created.UTC()

	id := idhash.ComputeSaleID(groupID, t.IDHash)
	if t.IDHash == "" {
		id = idhash.ComputeSaleIDFromContent(groupID, t.Agent.ID, t.Details.Name, t.Currency.Amount, occurredAt)
	}

	return &domain.SaleRecord{
		IDHash:     id,
		GroupID:    groupID,
		Item:       t.Details.Name,
		BuyerName:  t.Agent.Name,
		BuyerID:    t.Agent.ID,
		Amount:     t.Currency.Amount,
		OccurredAt: occurredAt,
	}
}
