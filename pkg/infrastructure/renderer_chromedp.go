package infrastructure

import (
	"context"

	"resume-pdf-export/internal/domain"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PrintPDF prints the current document with fixed paper geometry. CSS @page
// sizes are ignored so every export comes out A4.
func (p *chromePage) PrintPDF(ctx context.Context, opts domain.PrintOptions) ([]byte, error) {
	var pdfBuf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdfBuf, _, err = page.PrintToPDF().
			WithPrintBackground(opts.PrintBackground).
			WithPaperWidth(opts.PaperWidth).
			WithPaperHeight(opts.PaperHeight).
			WithMarginTop(opts.Margin).
			WithMarginBottom(opts.Margin).
			WithMarginLeft(opts.Margin).
			WithMarginRight(opts.Margin).
			WithPreferCSSPageSize(false).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	p.log.Debug("pdf printed", "bytes", len(pdfBuf))
	return pdfBuf, nil
}
