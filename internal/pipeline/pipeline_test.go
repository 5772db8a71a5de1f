package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptscan/internal/common"
	"receiptscan/internal/ocr"
	"receiptscan/internal/rasterize"
	"receiptscan/internal/receipt"
)

type fakeRasterizer struct {
	err   error
	calls int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _, destDir string, _ rasterize.Options) ([]rasterize.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p1 := filepath.Join(destDir, "page_1.png")
	p2 := filepath.Join(destDir, "page_2.png")
	return []rasterize.Page{{Number: 1, Path: p1}, {Number: 2, Path: p2}}, nil
}

type fakeRecognizer struct {
	result ocr.Result
	err    error
	paths  []string
}

func (f *fakeRecognizer) Recognize(_ context.Context, imagePath string) (ocr.Result, error) {
	f.paths = append(f.paths, imagePath)
	return f.result, f.err
}

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func newTestPipeline(t *testing.T, raster *fakeRasterizer, rec *fakeRecognizer, gen *fakeGenerator) *Pipeline {
	t.Helper()
	return New(Config{ScratchRoot: t.TempDir()}, raster, rec, gen, nil)
}

func TestExtractReceiptFromImage(t *testing.T) {
	raster := &fakeRasterizer{}
	rec := &fakeRecognizer{result: ocr.Result{Text: "WALMART TOTAL $45.67", Confidence: 0.92}}
	gen := &fakeGenerator{response: `{"merchantName":"Walmart","totalAmount":45.67,"purchaseDate":"2024-03-15","items":[]}`}

	p := newTestPipeline(t, raster, rec, gen)
	res, err := p.ExtractReceipt(context.Background(), "receipt.jpg")
	require.NoError(t, err)
	defer os.RemoveAll(res.ScratchDir)

	assert.Zero(t, raster.calls, "images must not be rasterized")
	assert.Equal(t, []string{"receipt.jpg"}, rec.paths)
	assert.Equal(t, "Walmart", res.Receipt.MerchantName)
	assert.Equal(t, 45.67, res.Receipt.TotalAmount)
	assert.Equal(t, float32(0.92), res.Receipt.Confidence)
	assert.True(t, res.Receipt.IsScanned)
	assert.NotEmpty(t, res.ScratchDir)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "WALMART TOTAL $45.67")
}

func TestExtractReceiptFromPDFUsesFirstPage(t *testing.T) {
	raster := &fakeRasterizer{}
	rec := &fakeRecognizer{result: ocr.Result{Text: "receipt text with 2024-01-01", Confidence: 0.75}}
	gen := &fakeGenerator{response: `{"merchantName":"Target","totalAmount":10}`}

	p := newTestPipeline(t, raster, rec, gen)
	res, err := p.ExtractReceipt(context.Background(), "scan.pdf")
	require.NoError(t, err)
	defer os.RemoveAll(res.ScratchDir)

	assert.Equal(t, 1, raster.calls)
	require.Len(t, rec.paths, 1)
	assert.Equal(t, "page_1.png", filepath.Base(rec.paths[0]))
}

func TestExtractReceiptUnsupportedExtension(t *testing.T) {
	p := newTestPipeline(t, &fakeRasterizer{}, &fakeRecognizer{}, &fakeGenerator{})
	res, err := p.ExtractReceipt(context.Background(), "notes.txt")
	require.Error(t, err)
	defer os.RemoveAll(res.ScratchDir)
	assert.True(t, common.IsKind(err, common.KindRecognition))
}

func TestExtractReceiptErrorKindsPropagate(t *testing.T) {
	tests := []struct {
		name   string
		raster *fakeRasterizer
		rec    *fakeRecognizer
		gen    *fakeGenerator
		file   string
		kind   common.Kind
	}{
		{
			name:   "rasterization",
			raster: &fakeRasterizer{err: common.NewRasterizationError("corrupt pdf", nil)},
			rec:    &fakeRecognizer{},
			gen:    &fakeGenerator{},
			file:   "bad.pdf",
			kind:   common.KindRasterization,
		},
		{
			name:   "recognition",
			raster: &fakeRasterizer{},
			rec:    &fakeRecognizer{err: common.NewRecognitionError("tesseract failed", nil)},
			gen:    &fakeGenerator{},
			file:   "bad.png",
			kind:   common.KindRecognition,
		},
		{
			name:   "extraction service",
			raster: &fakeRasterizer{},
			rec:    &fakeRecognizer{result: ocr.Result{Text: "ok", Confidence: 0.8}},
			gen:    &fakeGenerator{err: common.NewExtractionServiceError("model unavailable", nil)},
			file:   "ok.png",
			kind:   common.KindExtractionService,
		},
		{
			name:   "malformed extraction",
			raster: &fakeRasterizer{},
			rec:    &fakeRecognizer{result: ocr.Result{Text: "ok", Confidence: 0.8}},
			gen:    &fakeGenerator{response: "I could not read the receipt."},
			file:   "ok.png",
			kind:   common.KindMalformedExtraction,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, tt.raster, tt.rec, tt.gen)
			res, err := p.ExtractReceipt(context.Background(), tt.file)
			require.Error(t, err)
			defer os.RemoveAll(res.ScratchDir)
			assert.True(t, common.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestExtractReceiptAllNullFieldsGetDefaults(t *testing.T) {
	rec := &fakeRecognizer{result: ocr.Result{Text: "barely legible", Confidence: 0.6}}
	gen := &fakeGenerator{response: `{"merchantName": null, "totalAmount": null, "purchaseDate": null, "items": []}`}

	p := newTestPipeline(t, &fakeRasterizer{}, rec, gen)
	res, err := p.ExtractReceipt(context.Background(), "faded.jpg")
	require.NoError(t, err)
	defer os.RemoveAll(res.ScratchDir)

	assert.Equal(t, receipt.DefaultMerchantName, res.Receipt.MerchantName)
	assert.Equal(t, float64(receipt.DefaultTotalAmount), res.Receipt.TotalAmount)
	assert.False(t, res.Receipt.PurchaseDate.IsZero())
	assert.Empty(t, res.Receipt.Items)
	assert.True(t, res.Receipt.IsScanned)
}

func TestExtractReceiptScratchDirIsPerInvocation(t *testing.T) {
	rec := &fakeRecognizer{result: ocr.Result{Text: "ok", Confidence: 0.8}}
	gen := &fakeGenerator{response: `{"merchantName":"A","totalAmount":1}`}
	p := newTestPipeline(t, &fakeRasterizer{}, rec, gen)

	first, err := p.ExtractReceipt(context.Background(), "a.png")
	require.NoError(t, err)
	second, err := p.ExtractReceipt(context.Background(), "b.png")
	require.NoError(t, err)
	defer os.RemoveAll(first.ScratchDir)
	defer os.RemoveAll(second.ScratchDir)

	assert.NotEqual(t, first.ScratchDir, second.ScratchDir)
}
