package tabular

import (
	"encoding/csv"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/zedaster/UrfuHhParser/pkg/frequency"
	"github.com/zedaster/UrfuHhParser/pkg/pipeline"
	"github.com/zedaster/UrfuHhParser/pkg/record"
)

const (
	currencySheet = "Currencies"
	summarySheet  = "Summary"
)

// WriteFrequencyCSV writes "currency,count" rows in frequency.Table.Sorted
// order.
func WriteFrequencyCSV(path string, table frequency.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	w.Write([]string{"currency", "count"})
	for _, e := range table.Sorted() {
		w.Write([]string{e.Code, strconv.Itoa(e.Count)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteRejectsCSV writes the line, reason and error of every rejected row
// followed by the row itself. Short rows are padded to the header; cells past
// the header are kept.
func WriteRejectsCSV(path string, schema *record.Schema, rejected []record.Rejected) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	w.Write(append([]string{"reject_line", "reject_reason", "reject_error"}, schema.Columns()...))
	for _, rej := range rejected {
		detail := ""
		if rej.Err != nil {
			detail = rej.Err.Error()
		}
		row := make([]string, 0, 3+max(schema.Len(), len(rej.Raw.Values)))
		row = append(row, strconv.Itoa(rej.Raw.Line), string(rej.Reason), detail)
		row = append(row, rej.Raw.Values...)
		for len(row) < 3+schema.Len() {
			row = append(row, "")
		}
		w.Write(row)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteReportXLSX stores the frequency table and the run summary in a
// workbook. Currencies counted more than threshold times are marked frequent.
func WriteReportXLSX(path string, table frequency.Table, summary pipeline.Summary, threshold int) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(currencySheet); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if idx, err := f.GetSheetIndex(currencySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	total := table.Total()
	if err := f.SetSheetRow(currencySheet, "A1", &[]any{"currency", "count", "share", "frequent"}); err != nil {
		return err
	}
	for i, e := range table.Sorted() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		share := 0.0
		if total > 0 {
			share = float64(e.Count) / float64(total)
		}
		if err := f.SetSheetRow(currencySheet, cell, &[]any{e.Code, e.Count, share, e.Count > threshold}); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	rows := [][]any{
		{"run_id", summary.RunID.String()},
		{"read", summary.Read},
		{"normalized", summary.Normalized},
		{"rejected", summary.Rejected},
	}
	for _, reason := range slices.Sorted(maps.Keys(summary.RejectedBy)) {
		rows = append(rows, []any{"rejected_" + string(reason), summary.RejectedBy[reason]})
	}
	rows = append(rows,
		[]any{"unclassified_currency", summary.Unclassified},
		[]any{"chunks", summary.Chunks},
		[]any{"workers", summary.Workers},
		[]any{"chunk_size", summary.ChunkSize},
		[]any{"elapsed_seconds", summary.Elapsed.Seconds()},
	)
	if summary.Normalized > 0 {
		rows = append(rows,
			[]any{"earliest", summary.Earliest.String()},
			[]any{"latest", summary.Latest.String()},
		)
	}
	for _, year := range slices.Sorted(maps.Keys(summary.Years)) {
		rows = append(rows, []any{fmt.Sprintf("year_%d", year), summary.Years[year]})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
