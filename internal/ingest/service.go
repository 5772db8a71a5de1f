package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"receiptscan/constants"
	"receiptscan/internal/pipeline"
	"receiptscan/internal/receipt"
	"receiptscan/internal/store"
)

// MinValidConfidence is the recognition confidence below which a file is
// marked INVALID instead of being sent through extraction.
const MinValidConfidence float32 = 0.5

// Extractor is the pipeline surface the service needs.
type Extractor interface {
	ExtractReceipt(ctx context.Context, filePath string) (pipeline.Result, error)
}

// Outcome reports what happened to one ingested file.
type Outcome struct {
	Status  constants.FileStatus
	Receipt receipt.ExtractedReceipt
	// RecordID is set when a new record was persisted.
	RecordID uuid.UUID
}

// Service drives a file through extraction, duplicate detection and
// persistence. It owns the scratch-directory lifecycle: every extraction's
// scratch dir is removed exactly once, whether the file is stored, found
// to be a duplicate, or the pipeline fails.
type Service struct {
	extractor Extractor
	receipts  store.ReceiptStore
	logger    *slog.Logger
}

func NewService(extractor Extractor, receipts store.ReceiptStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{extractor: extractor, receipts: receipts, logger: logger}
}

// Validate checks a file before full processing: the extension must be on
// the allow-list, the file must exist and be non-empty, and a probe
// extraction must recover text with usable confidence.
func (s *Service) Validate(ctx context.Context, filePath string) (constants.FileStatus, error) {
	ext := constants.ExtOf(filePath)
	if !constants.IsAllowedExt(ext) {
		s.logger.Warn("ingest.validate.bad_ext", "path", filePath, "ext", ext)
		return constants.StatusInvalid, nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return constants.StatusInvalid, fmt.Errorf("stat %s: %w", filePath, err)
	}
	if info.Size() == 0 {
		s.logger.Warn("ingest.validate.empty_file", "path", filePath)
		return constants.StatusInvalid, nil
	}

	res, err := s.extractor.ExtractReceipt(ctx, filePath)
	defer s.cleanupScratch(res.ScratchDir)
	if err != nil {
		s.logger.Warn("ingest.validate.extract_failed", "path", filePath, "error", err)
		return constants.StatusInvalid, nil
	}
	if res.Receipt.Confidence < MinValidConfidence {
		s.logger.Warn("ingest.validate.low_confidence",
			"path", filePath, "confidence", res.Receipt.Confidence)
		return constants.StatusInvalid, nil
	}
	return constants.StatusPendingProcessing, nil
}

// Process runs one extraction end to end for the given owner. A result
// matching the latest prior record for the same file name (same merchant,
// same amount, same UTC calendar day) is reported as DUPLICATE and not
// stored again.
func (s *Service) Process(ctx context.Context, ownerID uuid.UUID, filePath string) (Outcome, error) {
	fileName := filepath.Base(filePath)

	res, err := s.extractor.ExtractReceipt(ctx, filePath)
	defer s.cleanupScratch(res.ScratchDir)
	if err != nil {
		return Outcome{Status: constants.StatusInvalid}, err
	}

	prior, err := s.latestPrior(ctx, ownerID, fileName)
	if err != nil {
		return Outcome{Status: constants.StatusInvalid}, err
	}
	if receipt.IsDuplicate(res.Receipt, prior) {
		s.logger.Info("ingest.process.duplicate",
			"owner_id", ownerID, "file", fileName,
			"merchant", res.Receipt.MerchantName, "total", res.Receipt.TotalAmount)
		return Outcome{Status: constants.StatusDuplicate, Receipt: res.Receipt}, nil
	}

	rec, err := store.NewRecord(ownerID, fileName, filePath, res.Receipt)
	if err != nil {
		return Outcome{Status: constants.StatusInvalid}, fmt.Errorf("encode record: %w", err)
	}
	if err := s.receipts.Insert(ctx, rec); err != nil {
		return Outcome{Status: constants.StatusInvalid}, err
	}

	s.logger.Info("ingest.process.stored",
		"owner_id", ownerID, "file", fileName, "record_id", rec.ID,
		"merchant", res.Receipt.MerchantName, "total", res.Receipt.TotalAmount)
	return Outcome{Status: constants.StatusProcessed, Receipt: res.Receipt, RecordID: rec.ID}, nil
}

func (s *Service) latestPrior(ctx context.Context, ownerID uuid.UUID, fileName string) (*receipt.ExtractedReceipt, error) {
	rec, err := s.receipts.LatestForFile(ctx, ownerID, fileName)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	prior, err := rec.Receipt()
	if err != nil {
		return nil, fmt.Errorf("decode prior record: %w", err)
	}
	return &prior, nil
}

// cleanupScratch removes an extraction's scratch directory. It tolerates
// an already-removed directory, so calling it on every exit path is safe.
func (s *Service) cleanupScratch(dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("ingest.cleanup.failed", "dir", dir, "error", err)
	}
}
