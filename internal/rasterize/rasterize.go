package rasterize

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"receiptscan/internal/common"
)

// Options mirror the renderer knobs the workflow exposes.
type Options struct {
	// ViewportScale is the render resolution multiplier over the PDF's
	// natural 72 DPI. Default 2.0.
	ViewportScale float64
	// PagesToProcess is an explicit 1-based page allow-list. Empty means
	// all pages.
	PagesToProcess []int
	// StrictPagesToProcess fails the run when a requested page does not
	// exist; otherwise missing pages are silently skipped.
	StrictPagesToProcess bool
	// Password decrypts protected documents.
	Password string
}

// Page is one rendered PDF page.
type Page struct {
	Number int // 1-based
	Path   string
}

// Rasterizer renders PDF pages to PNG files inside a caller-supplied
// scratch directory. The caller owns the directory's lifecycle; nothing
// here deletes it.
type Rasterizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{logger: logger}
}

// Rasterize renders the selected pages of pdfPath into destDir as
// page_<n>.png and returns them in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, destDir string, opts Options) ([]Page, error) {
	scale := opts.ViewportScale
	if scale <= 0 {
		scale = 2.0
	}

	src, pageCount, err := r.openSource(pdfPath, destDir, opts.Password)
	if err != nil {
		return nil, err
	}

	pages, err := selectPages(pageCount, opts.PagesToProcess, opts.StrictPagesToProcess)
	if err != nil {
		return nil, err
	}

	doc, err := fitz.New(src)
	if err != nil {
		return nil, common.NewRasterizationError("open pdf for rendering", err)
	}
	defer doc.Close()

	dpi := 72 * scale
	out := make([]Page, 0, len(pages))
	for _, n := range pages {
		if err := ctx.Err(); err != nil {
			return nil, common.NewRasterizationError("rasterization canceled", err)
		}
		img, err := doc.ImageDPI(n-1, dpi)
		if err != nil {
			return nil, common.NewRasterizationError(fmt.Sprintf("render page %d", n), err)
		}
		path := filepath.Join(destDir, fmt.Sprintf("page_%d.png", n))
		f, err := os.Create(path)
		if err != nil {
			return nil, common.NewRasterizationError("write page image", err)
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return nil, common.NewRasterizationError("encode page image", err)
		}
		if err := f.Close(); err != nil {
			return nil, common.NewRasterizationError("write page image", err)
		}
		out = append(out, Page{Number: n, Path: path})
	}

	r.logger.Debug("rasterize.ok", "pdf", pdfPath, "pages", len(out), "scale", scale)
	return out, nil
}

// openSource validates the document and resolves the file actually handed
// to the renderer. Password-protected documents are decrypted into the
// scratch directory first; the decrypted copy lives and dies with it.
func (r *Rasterizer) openSource(pdfPath, destDir, password string) (string, int, error) {
	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err == nil {
		return pdfPath, pdfCtx.PageCount, nil
	}
	if password == "" {
		return "", 0, common.NewRasterizationError("not a readable pdf", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	decrypted := filepath.Join(destDir, "decrypted.pdf")
	if derr := api.DecryptFile(pdfPath, decrypted, conf); derr != nil {
		return "", 0, common.NewRasterizationError("decrypt pdf", derr)
	}
	pdfCtx, err = api.ReadContextFile(decrypted)
	if err != nil {
		return "", 0, common.NewRasterizationError("not a readable pdf", err)
	}
	return decrypted, pdfCtx.PageCount, nil
}

// selectPages resolves the allow-list against the document's page count.
func selectPages(pageCount int, requested []int, strict bool) ([]int, error) {
	if len(requested) == 0 {
		all := make([]int, pageCount)
		for i := range all {
			all[i] = i + 1
		}
		if len(all) == 0 {
			return nil, common.NewRasterizationError("document has no pages", nil)
		}
		return all, nil
	}

	out := make([]int, 0, len(requested))
	var missing []string
	for _, n := range requested {
		if n < 1 || n > pageCount {
			missing = append(missing, fmt.Sprintf("%d", n))
			continue
		}
		out = append(out, n)
	}
	if strict && len(missing) > 0 {
		return nil, common.NewRasterizationError(
			fmt.Sprintf("requested pages do not exist: %s", strings.Join(missing, ", ")), nil)
	}
	if len(out) == 0 {
		return nil, common.NewRasterizationError("no requested page exists in document", nil)
	}
	return out, nil
}
