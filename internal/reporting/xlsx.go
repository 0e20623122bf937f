package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"salesbot/internal/idhash"
)

const (
	summarySheet = "Summary"
	salesSheet   = "Sales"
)

// WriteXLSX writes the report as a workbook with a Summary and a Sales sheet.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(salesSheet); err != nil {
		return fmt.Errorf("create sales sheet: %w", err)
	}

	if err := writeSummary(f, r); err != nil {
		return err
	}
	if err := writeSales(f, r); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r *Report) error {
	rows := [][]interface{}{
		{"Report", r.Title()},
		{"Generated", r.GeneratedAt.Format(time.RFC3339)},
		{"Window start", r.WindowStart.Format(time.DateOnly)},
		{"Total", r.Total},
		{"Sales", r.SaleCount},
		{"Average sale", r.AverageSale().InexactFloat64()},
		{"Previous window", r.PreviousTotal},
		{"Change", formatChange(r)},
	}
	if r.Forecast != nil {
		rows = append(rows,
			[]interface{}{"Forecast", r.Forecast.PredictedNext},
			[]interface{}{"Confidence", r.Forecast.Confidence.String()},
		)
	}

	rows = append(rows, []interface{}{}, []interface{}{"Group", "Sales", "Total"})
	for _, g := range r.Groups {
		rows = append(rows, []interface{}{g.GroupID, g.Count, g.Total})
	}

	return setRows(f, summarySheet, rows)
}

func writeSales(f *excelize.File, r *Report) error {
	rows := make([][]interface{}, 0, len(r.Sales)+1)
	header := make([]interface{}, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	rows = append(rows, header)

	for _, s := range r.Sales {
		rows = append(rows, []interface{}{
			s.OccurredAt.UTC().Format(time.RFC3339),
			s.GroupID,
			s.Item,
			s.BuyerID,
			s.BuyerName,
			s.Amount,
			idhash.ShortRef(s.IDHash),
		})
	}

	return setRows(f, salesSheet, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
