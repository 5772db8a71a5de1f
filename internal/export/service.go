package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"receiptscan/internal/store"
)

// Service produces XLSX bytes from stored receipts.
type Service struct {
	receipts store.ReceiptStore
	logger   *slog.Logger
}

func NewService(receipts store.ReceiptStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{receipts: receipts, logger: logger}
}

// ExportXLSX returns an XLSX workbook (as bytes) for the given owner and
// date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all receipts for the owner.
func (s *Service) ExportXLSX(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC)
	fromDate := time.Time{}
	toDate := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if from != nil {
		fromDate = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	}
	if to != nil {
		toDate = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
	} else if from != nil {
		today := time.Now().UTC()
		toDate = time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, time.UTC)
	}

	recs, err := s.receipts.List(ctx, ownerID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Receipts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Purchase Date",
		"Merchant",
		"Total Amount",
		"Items",
		"Confidence",
		"Source File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.PurchasedAt.Format("2006-01-02"))
		write(2, r.MerchantName)
		write(3, r.TotalAmount)
		write(4, itemSummary(r))
		write(5, fmt.Sprintf("%.2f", r.Confidence))
		write(6, r.FileName)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "B", 28) // merchant
	_ = f.SetColWidth(sheet, "C", "C", 14) // amount
	_ = f.SetColWidth(sheet, "D", "D", 48) // items
	_ = f.SetColWidth(sheet, "E", "E", 12) // confidence
	_ = f.SetColWidth(sheet, "F", "F", 40) // file

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"owner_id", ownerID.String(),
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// itemSummary renders the stored item list as "2x Coffee ($3.50); ...".
func itemSummary(r store.Record) string {
	rec, err := r.Receipt()
	if err != nil || len(rec.Items) == 0 {
		return ""
	}
	out := ""
	for i, it := range rec.Items {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%dx %s ($%.2f)", it.Quantity, it.Name, it.Price)
	}
	return truncate(out, 140)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
