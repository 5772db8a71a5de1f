package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"receiptscan/internal/receipt"
)

// Record is a persisted extraction result. Items are stored as a JSON
// column so both backends share one schema.
type Record struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	FileName     string
	FilePath     string
	MerchantName string
	TotalAmount  float64
	PurchasedAt  time.Time
	Confidence   float32
	ItemsJSON    string
	CreatedAt    time.Time
}

// Receipt rehydrates the extraction payload from a stored record.
func (r *Record) Receipt() (receipt.ExtractedReceipt, error) {
	out := receipt.ExtractedReceipt{
		MerchantName: r.MerchantName,
		TotalAmount:  r.TotalAmount,
		PurchaseDate: r.PurchasedAt,
		Confidence:   r.Confidence,
		IsScanned:    true,
	}
	if r.ItemsJSON != "" {
		if err := json.Unmarshal([]byte(r.ItemsJSON), &out.Items); err != nil {
			return receipt.ExtractedReceipt{}, err
		}
	}
	return out, nil
}

// NewRecord builds a record from an extraction result ready for insert.
func NewRecord(ownerID uuid.UUID, fileName, filePath string, rec receipt.ExtractedReceipt) (Record, error) {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		FileName:     fileName,
		FilePath:     filePath,
		MerchantName: rec.MerchantName,
		TotalAmount:  rec.TotalAmount,
		PurchasedAt:  rec.PurchaseDate.UTC(),
		Confidence:   rec.Confidence,
		ItemsJSON:    string(items),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Stats summarizes an owner's stored receipts.
type Stats struct {
	Count       int64
	TotalAmount float64
	Average     float64
	Earliest    time.Time
	Latest      time.Time
	Monthly     []MonthCount
}

// MonthCount is the number of receipts purchased in one calendar month.
type MonthCount struct {
	Month string // "2006-01"
	Count int64
}

// ReceiptStore persists extraction results. Implementations exist for
// Postgres and SQLite.
type ReceiptStore interface {
	Insert(ctx context.Context, rec Record) error
	// LatestForFile returns the most recently created record for the
	// (owner, file name) pair, or nil when the file was never seen.
	LatestForFile(ctx context.Context, ownerID uuid.UUID, fileName string) (*Record, error)
	List(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]Record, error)
	Stats(ctx context.Context, ownerID uuid.UUID) (Stats, error)
	Close() error
}
