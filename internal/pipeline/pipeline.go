package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"receiptscan/constants"
	"receiptscan/internal/common"
	"receiptscan/internal/llm"
	"receiptscan/internal/ocr"
	"receiptscan/internal/rasterize"
	"receiptscan/internal/receipt"
)

// Rasterizer renders PDF pages into a scratch directory.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, destDir string, opts rasterize.Options) ([]rasterize.Page, error)
}

// Config holds the orchestrator's knobs.
type Config struct {
	// ScratchRoot is where per-invocation scratch directories are created.
	// Default: the OS temp dir.
	ScratchRoot string
	// RasterOpts are passed through to the rasterizer on PDF input.
	RasterOpts rasterize.Options
}

// Pipeline chains rasterization, text recovery, model extraction,
// sanitization and normalization into one invocation. Every dependency is
// injected; there is no process-wide state, so independent invocations can
// run in parallel.
type Pipeline struct {
	cfg    Config
	raster Rasterizer
	ocr    ocr.Recognizer
	model  llm.TextGenerator
	logger *slog.Logger
}

func New(cfg Config, raster Rasterizer, recognizer ocr.Recognizer, model llm.TextGenerator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScratchRoot == "" {
		cfg.ScratchRoot = os.TempDir()
	}
	return &Pipeline{cfg: cfg, raster: raster, ocr: recognizer, model: model, logger: logger}
}

// Result carries the extracted receipt plus the invocation's scratch
// directory. The caller owns scratch cleanup, on failure as well as
// success; the pipeline has no rollback hooks.
type Result struct {
	Receipt    receipt.ExtractedReceipt
	ScratchDir string
}

// ExtractReceipt runs one full extraction. It either returns a fully
// populated receipt or aborts with one of the four tagged error kinds;
// there is no partial result and no retry between stages.
func (p *Pipeline) ExtractReceipt(ctx context.Context, filePath string) (Result, error) {
	invocation := uuid.New().String()
	start := time.Now()
	ext := constants.ExtOf(filePath)

	p.logger.Info("pipeline.extract.start", "invocation", invocation, "path", filePath, "ext", ext)

	scratch, err := os.MkdirTemp(p.cfg.ScratchRoot, "receiptscan-")
	if err != nil {
		return Result{}, common.NewRasterizationError("create scratch dir", err)
	}
	res := Result{ScratchDir: scratch}

	var imagePath string
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		pages, err := p.raster.Rasterize(ctx, filePath, scratch, p.cfg.RasterOpts)
		if err != nil {
			p.logger.Error("pipeline.rasterize.failed", "invocation", invocation, "error", err)
			return res, err
		}
		// Only page 1 feeds structured extraction; multi-page receipts are
		// out of scope for now.
		imagePath = pages[0].Path
	case constants.IMAGE:
		imagePath = filePath
	default:
		return res, common.NewRecognitionError(fmt.Sprintf("unsupported file extension %q", ext), nil)
	}

	recognized, err := p.ocr.Recognize(ctx, imagePath)
	if err != nil {
		p.logger.Error("pipeline.recognize.failed", "invocation", invocation, "error", err)
		return res, err
	}
	p.logger.Info("pipeline.recognize.ok",
		"invocation", invocation,
		"text_len", len(recognized.Text),
		"confidence", recognized.Confidence,
	)

	raw, err := p.model.Generate(ctx, llm.BuildPrompt(recognized.Text))
	if err != nil {
		p.logger.Error("pipeline.generate.failed", "invocation", invocation, "error", err)
		return res, err
	}

	parsed, err := llm.Sanitize(raw, p.logger)
	if err != nil {
		p.logger.Error("pipeline.sanitize.failed", "invocation", invocation, "error", err)
		return res, err
	}

	res.Receipt = receipt.Normalize(parsed, recognized.Confidence)

	p.logger.Info("pipeline.extract.ok",
		"invocation", invocation,
		"merchant", res.Receipt.MerchantName,
		"total", res.Receipt.TotalAmount,
		"items", len(res.Receipt.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
