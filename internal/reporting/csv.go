package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"salesbot/internal/idhash"
)

// csvHeader is the column order of RenderCSV.
var csvHeader = []string{"occurred_at", "group_id", "item", "buyer_id", "buyer_name", "amount", "ref"}

// RenderCSV writes the individual sales of a report as CSV.
func RenderCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, s := range r.Sales {
		row := []string{
			s.OccurredAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(s.GroupID, 10),
			s.Item,
			strconv.FormatInt(s.BuyerID, 10),
			s.BuyerName,
			strconv.FormatInt(s.Amount, 10),
			idhash.ShortRef(s.IDHash),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
