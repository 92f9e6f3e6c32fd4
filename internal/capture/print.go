// Package capture renders generated pages in headless Chromium.
package capture

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// US Letter, in inches.
const (
	LetterWidth  = 8.5
	LetterHeight = 11.0

	DefaultTimeout = 30 * time.Second
)

var pageObjectRe = regexp.MustCompile(`/Type\s*/Page[^s]`)

// PrintOptions defines a single print fit check.
type PrintOptions struct {
	// URL to print, e.g. "file:///srv/site/index.html".
	URL string

	// MaxPages is the most pages the printout may take. Zero means 1.
	MaxPages int

	// Timeout bounds the whole run. If zero, DefaultTimeout is used.
	Timeout time.Duration
}

type PrintResult struct {
	URL      string
	Pages    int
	MaxPages int
}

func (r PrintResult) Fits() bool {
	return r.Pages > 0 && r.Pages <= r.MaxPages
}

// PrintFit launches headless Chromium via chromedp, loads opts.URL and
// prints it to a Letter-sized PDF with backgrounds and no margins, then
// counts the pages.
func PrintFit(parentCtx context.Context, opts PrintOptions) (PrintResult, error) {
	if opts.URL == "" {
		return PrintResult{}, fmt.Errorf("capture: URL is required")
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	res := PrintResult{URL: opts.URL, MaxPages: opts.MaxPages}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(opts.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(LetterWidth).
				WithPaperHeight(LetterHeight).
				WithPrintBackground(true).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return res, fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	res.Pages = CountPDFPages(pdf)
	return res, nil
}

// CountPDFPages counts /Type /Page objects, skipping the /Pages tree
// nodes.
func CountPDFPages(pdf []byte) int {
	return len(pageObjectRe.FindAll(pdf, -1))
}

// FileURL turns a local path into a file:// URL Chromium can open.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("capture: resolve %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
