package main

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"coloft/internal/linkcheck"
	appLog "coloft/internal/log"
	"coloft/internal/site"
)

// linkPages are the generated pages whose external links are checked.
var linkPages = []string{site.RegionalFile, site.IndexFile}

func collectURLs(fsys afero.Fs, outputDir string) ([]string, error) {
	seen := make(map[string]bool)
	var urls []string
	for _, name := range linkPages {
		f, err := fsys.Open(path.Join(outputDir, name))
		if err != nil {
			return nil, fmt.Errorf("open %s (run build first): %w", name, err)
		}
		found, err := linkcheck.ExtractURLs(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		for _, u := range found {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	return urls, nil
}

func links(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}

	urls, err := collectURLs(e.fs, e.cfg.OutputDir)
	if err != nil {
		return err
	}
	appLog.Info("checking links", "count", len(urls))

	ctx, cancel := signalContext()
	defer cancel()

	// The bar only renders on a terminal; piped runs get the summary alone.
	var barOut io.Writer
	if f, ok := c.App.ErrWriter.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		barOut = f
	}
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(barOut))
	name := "Checking"
	bar := p.AddBar(int64(len(urls)),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d", decor.WC{W: 10}),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "Complete"),
		),
	)

	checker := linkcheck.NewChecker(e.cfg.LinkCheck.Timeout, e.cfg.LinkCheck.Delay, e.cfg.LinkCheck.UserAgent)
	results := checker.CheckAll(ctx, urls, func(int, linkcheck.Result) {
		bar.Increment()
	})
	if !bar.Completed() {
		bar.Abort(false)
	}
	p.Wait()

	sum := linkcheck.Summarize(results)
	w := c.App.Writer
	fmt.Fprintf(w, "Working: %d  Redirects: %d  Broken: %d\n", len(sum.Working), len(sum.Redirects), len(sum.Broken))
	for _, r := range sum.Redirects {
		fmt.Fprintf(w, "  REDIRECT %d %s -> %s\n", r.Status, r.URL, r.Location)
	}
	for _, r := range sum.Broken {
		reason := r.Err
		if reason == "" {
			reason = fmt.Sprintf("HTTP %d", r.Status)
		}
		fmt.Fprintf(w, "  BROKEN %s (%s)\n", r.URL, reason)
	}

	if len(results) < len(urls) {
		return fmt.Errorf("link check interrupted after %d of %d", len(results), len(urls))
	}
	if len(sum.Broken) > 0 {
		return fmt.Errorf("%d broken links", len(sum.Broken))
	}
	return nil
}
