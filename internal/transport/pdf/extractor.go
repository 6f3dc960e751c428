// Package pdf extracts plain text from PDF documents with unipdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Compile-time check.
var _ domain.TextExtractor = (*Extractor)(nil)

// SetLicense activates a unipdf metered license key. Must be called once before extraction.
func SetLicense(key string) error {
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("set unipdf license: %w", err)
	}
	return nil
}

// pages is a parsed document that yields text page by page (1-based).
type pages interface {
	NumPages() (int, error)
	PageText(n int) (string, error)
}

type openFunc func(data []byte) (pages, error)

// Extractor concatenates the text of all readable pages.
type Extractor struct {
	open   openFunc
	logger *zap.Logger
}

// NewExtractor creates a unipdf-backed extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{open: openUnipdf, logger: logger}
}

// Extract returns the text of every page that yields non-empty text, each followed by a newline.
// Pages that fail are skipped. A document that cannot be opened or has no text fails with
// domain.ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	doc, err := e.open(data)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w: %w", domain.ErrExtraction, err)
	}

	n, err := doc.NumPages()
	if err != nil {
		return "", fmt.Errorf("count pages: %w: %w", domain.ErrExtraction, err)
	}

	var b strings.Builder
	kept, skipped := 0, 0
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		text, err := doc.PageText(i)
		if err != nil {
			skipped++
			e.logger.Debug("Skipping unreadable page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
		kept++
	}

	if kept == 0 {
		return "", fmt.Errorf("no extractable text in %d pages: %w", n, domain.ErrExtraction)
	}
	if skipped > 0 {
		e.logger.Warn("Some pages could not be read", zap.Int("pages", n), zap.Int("skipped", skipped))
	}
	return b.String(), nil
}

type unipdfPages struct {
	reader *model.PdfReader
}

func openUnipdf(data []byte) (pages, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	encrypted, err := reader.IsEncrypted()
	if err != nil {
		return nil, fmt.Errorf("check encryption: %w", err)
	}
	if encrypted {
		ok, err := reader.Decrypt([]byte(""))
		if err != nil {
			return nil, fmt.Errorf("decrypt: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("pdf is password protected")
		}
	}
	return &unipdfPages{reader: reader}, nil
}

func (p *unipdfPages) NumPages() (int, error) {
	n, err := p.reader.GetNumPages()
	if err != nil {
		return 0, fmt.Errorf("get num pages: %w", err)
	}
	return n, nil
}

func (p *unipdfPages) PageText(n int) (string, error) {
	page, err := p.reader.GetPage(n)
	if err != nil {
		return "", fmt.Errorf("get page: %w", err)
	}
	ex, err := extractor.New(page)
	if err != nil {
		return "", fmt.Errorf("new extractor: %w", err)
	}
	text, err := ex.ExtractText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}
