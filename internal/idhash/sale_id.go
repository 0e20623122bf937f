package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// ComputeSaleID computes a deterministic id_hash for a feed transaction using SHA256.
// Formula: SHA256(group_id|feed_hash)
// The group is part of the key so identical feed hashes from two partitions never collide.
// Returns hex-encoded hash (64 characters).
func ComputeSaleID(groupID int64, feedHash string) string {
	data := fmt.Sprintf("%d|%s", groupID, feedHash)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSaleIDFromContent is used when the feed omits a transaction hash.
// Formula: SHA256(group_id|buyer_id|item|amount|occurred_at_ms)
func ComputeSaleIDFromContent(groupID, buyerID int64, item string, amount int64, occurredAt time.Time) string {
	data := fmt.Sprintf("%d|%d|%s|%d|%d",
		groupID,
		buyerID,
		item,
		amount,
		occurredAt.UnixMilli(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortRef returns a compact base58 reference of an id_hash for logs and alerts.
// Uses the first 8 bytes of the decoded hash. Non-hex input is encoded as-is.
func ShortRef(idHash string) string {
	raw, err := hex.DecodeString(idHash)
	if err != nil || len(raw) == 0 {
		return base58.Encode([]byte(idHash))
	}
	if len(raw) > 8 {
		raw = raw[:8]
	}
	return base58.Encode(raw)
}
