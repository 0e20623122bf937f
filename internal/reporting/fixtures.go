package reporting

import (
	"context"
	"fmt"
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/idhash"
	"salesbot/internal/storage"
)

// demoItems cycle through the fixture sales.
var demoItems = []struct {
	name   string
	amount int64
}{
	{"Golden Crown", 1200},
	{"Starter Pack", 80},
	{"Neon Wings", 450},
	{"Speed Coil", 150},
	{"Starter Pack", 80},
}

// LoadFixtures stores deterministic demo sales for the fixtureDays calendar
// days ending on the day of now, three to five sales per day.
func LoadFixtures(ctx context.Context, store storage.SaleStore, now time.Time, fixtureDays int) (int, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	loaded := 0

	for d := fixtureDays - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)
		perDay := 3 + d%3
		for i := 0; i < perDay; i++ {
			item := demoItems[(d+i)%len(demoItems)]
			groupID := int64(1 + i%2)
			buyerID := int64(1000 + d*10 + i)
			occurred := day.Add(time.Duration(9+i*2) * time.Hour)
			if occurred.After(now) {
				continue
			}

			r := &domain.SaleRecord{
				IDHash:     idhash.ComputeSaleIDFromContent(groupID, buyerID, item.name, item.amount, occurred),
				GroupID:    groupID,
				Item:       item.name,
				BuyerName:  fmt.Sprintf("buyer%d", buyerID),
				BuyerID:    buyerID,
				Amount:     item.amount,
				OccurredAt: occurred,
			}
			inserted, err := store.InsertIfAbsent(ctx, r)
			if err != nil {
				return loaded, fmt.Errorf("load fixture sale: %w", err)
			}
			if inserted {
				loaded++
			}
		}
	}

	return loaded, nil
}
