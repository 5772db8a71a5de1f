package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"receiptscan/internal/common"
	"receiptscan/internal/ingest"
	"receiptscan/internal/llm/gemini"
	"receiptscan/internal/ocr"
	"receiptscan/internal/pipeline"
	"receiptscan/internal/rasterize"
	"receiptscan/internal/store"
)

func main() {
	var (
		filePath  = flag.String("file", "", "receipt file to scan (pdf, jpg, jpeg or png)")
		ownerFlag = flag.String("owner", "", "owner UUID; defaults to a single local owner")
		jsonOut   = flag.Bool("json", false, "print the extracted receipt as JSON")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found")
	}

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: receiptscan -file <receipt> [-owner <uuid>] [-json]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, *filePath, *ownerFlag, *jsonOut); err != nil {
		logger.Error("scan failed", "error", err)
		os.Exit(1)
	}
}

// localOwner is the owner recorded when no -owner flag is given, so a
// single-user CLI install keeps one consistent history.
var localOwner = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func run(ctx context.Context, logger *slog.Logger, filePath, ownerFlag string, jsonOut bool) error {
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

	outcome, err := svc.Process(ctx, ownerID, filePath)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}

	fmt.Printf("status:   %s\n", outcome.Status)
	fmt.Printf("merchant: %s\n", outcome.Receipt.MerchantName)
	fmt.Printf("total:    %.2f\n", outcome.Receipt.TotalAmount)
	fmt.Printf("date:     %s\n", outcome.Receipt.PurchaseDate.Format("2006-01-02"))
	fmt.Printf("items:    %d\n", len(outcome.Receipt.Items))
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
