package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"receiptscan/constants"
	"receiptscan/internal/common"
	"receiptscan/internal/export"
	"receiptscan/internal/ingest"
	"receiptscan/internal/llm/gemini"
	"receiptscan/internal/ocr"
	"receiptscan/internal/pipeline"
	"receiptscan/internal/rasterize"
	"receiptscan/internal/store"
)

// receipt-batch walks a directory, ingests every supported receipt file it
// finds and optionally writes an XLSX summary of the owner's receipts.
func main() {
	var (
		dir       = flag.String("dir", "", "directory to scan for receipt files")
		ownerFlag = flag.String("owner", "", "owner UUID; defaults to a single local owner")
		xlsxOut   = flag.String("xlsx", "", "write an XLSX export of all stored receipts to this path")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found")
	}

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: receipt-batch -dir <directory> [-owner <uuid>] [-xlsx <out.xlsx>]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, *dir, *ownerFlag, *xlsxOut); err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

var localOwner = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func run(ctx context.Context, logger *slog.Logger, dir, ownerFlag, xlsxOut string) error {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ownerID := localOwner
	if ownerFlag != "" {
		parsed, err := uuid.Parse(ownerFlag)
		if err != nil {
			return fmt.Errorf("parse owner id: %w", err)
		}
		ownerID = parsed
	}

	receipts, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer receipts.Close()

	model, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		return err
	}
	defer model.Close()

	engine := ocr.NewEngine(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
		OEM:         cfg.OCR.OEM,
		Workers:     cfg.OCR.Workers,
	}, logger)

	pipe := pipeline.New(pipeline.Config{
		ScratchRoot: cfg.Raster.ScratchRoot,
		RasterOpts:  rasterize.Options{ViewportScale: cfg.Raster.ViewportScale},
	}, rasterize.New(logger), engine, model, logger)

	svc := ingest.NewService(pipe, receipts, logger)

	start := time.Now()
	var processed, duplicates, failed, skipped int

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !constants.IsAllowedExt(constants.ExtOf(path)) {
			skipped++
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		outcome, err := svc.Process(ctx, ownerID, path)
		switch {
		case err != nil:
			failed++
			logger.Warn("batch.file.failed", "path", path, "error", err)
		case outcome.Status == constants.StatusDuplicate:
			duplicates++
		default:
			processed++
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("batch.done",
		"processed", processed,
		"duplicates", duplicates,
		"failed", failed,
		"skipped", skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	stats, err := receipts.Stats(ctx, ownerID)
	if err != nil {
		return err
	}
	fmt.Printf("stored receipts: %d, total amount: %.2f, average: %.2f\n",
		stats.Count, stats.TotalAmount, stats.Average)
	for _, mc := range stats.Monthly {
		fmt.Printf("  %s: %d\n", mc.Month, mc.Count)
	}

	if xlsxOut != "" {
		data, err := export.NewService(receipts, logger).ExportXLSX(ctx, ownerID, nil, nil)
		if err != nil {
			return err
		}
		if err := os.WriteFile(xlsxOut, data, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		fmt.Printf("wrote %s\n", xlsxOut)
	}
	return nil
}

func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (store.ReceiptStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Store, logger)
	case "sqlite":
		return store.NewSQLiteStore(ctx, cfg.Store.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
