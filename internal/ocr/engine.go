package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"receiptscan/internal/common"
)

// Config for the text-recovery engine.
type Config struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	PSM         int // e.g., 6 is good for a uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use the engine default
	Workers     int // max concurrent recognitions; default 2
}

// Result is one recognition outcome. Confidence is normalized to [0,1].
type Result struct {
	Text       string
	Confidence float32
}

// Recognizer recovers text from a single raster image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (Result, error)
}

// Engine runs tesseract over single images. A recognition acquires one
// worker slot for its whole duration, released on success and failure
// alike, so the underlying engine is never shared between concurrent
// invocations without serialization.
type Engine struct {
	cfg     Config
	runner  Runner
	logger  *slog.Logger
	workers chan struct{}
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Engine{
		cfg:     cfg,
		runner:  execRunner{},
		logger:  logger,
		workers: make(chan struct{}, cfg.Workers),
	}
}

// Recognize runs OCR over one image and reports recovered text plus a
// scalar confidence.
func (e *Engine) Recognize(ctx context.Context, imagePath string) (Result, error) {
	select {
	case e.workers <- struct{}{}:
	case <-ctx.Done():
		return Result{}, common.NewRecognitionError("recognition canceled", ctx.Err())
	}
	defer func() { <-e.workers }()

	e.logger.Debug("ocr.recognize.start", "path", imagePath, "lang", e.cfg.Lang)

	text, err := e.recognizeText(ctx, imagePath)
	if err != nil {
		return Result{}, err
	}

	conf := e.confidence(ctx, imagePath, text)

	e.logger.Debug("ocr.recognize.ok", "path", imagePath, "bytes", len(text), "confidence", conf)
	return Result{Text: text, Confidence: conf}, nil
}

func (e *Engine) recognizeText(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg == "" {
			msg = "tesseract failed"
		}
		return "", common.NewRecognitionError(msg, err)
	}
	return string(out), nil
}

// confidence prefers the mean word confidence from tesseract's TSV output
// and falls back to a content heuristic when TSV is unavailable.
func (e *Engine) confidence(ctx context.Context, path, text string) float32 {
	tsvConf, err := e.tsvConfidence(ctx, path)
	heur := heuristicConfidence(text)

	var conf float32
	switch {
	case err != nil || tsvConf <= 0:
		conf = heur
	default:
		// weight the engine's own estimate higher
		conf = 0.7*tsvConf + 0.3*heur
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

func (e *Engine) tsvConfidence(ctx context.Context, path string) (float32, error) {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}
