// Package linkcheck validates the external links of generated pages with
// HTTP HEAD requests.
package linkcheck

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	appLog "coloft/internal/log"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; LinkValidator/1.0)"
)

// ExtractURLs returns the unique absolute http(s) href targets in an HTML
// document, sorted.
func ExtractURLs(r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			urls := make([]string, 0, len(seen))
			for u := range seen {
				urls = append(urls, u)
			}
			sort.Strings(urls)
			return urls, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					v := string(val)
					if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
						seen[v] = struct{}{}
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

// Result is the outcome of checking one URL.
type Result struct {
	URL      string
	Status   int
	Location string
	Err      string
	OK       bool
}

// Redirect reports a 3xx answer. Redirects count as OK but may need the
// link updated.
func (r Result) Redirect() bool {
	return r.Status >= 300 && r.Status < 400
}

// Checker issues HEAD requests one at a time.
type Checker struct {
	client    *http.Client
	userAgent string
	delay     time.Duration
}

// NewChecker builds a Checker. Zero values fall back to the defaults.
// Redirects are reported, not followed.
func NewChecker(timeout, delay time.Duration, userAgent string) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Checker{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: userAgent,
		delay:     delay,
	}
}

// Check sends a single HEAD request.
func (c *Checker) Check(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Result{URL: url, Err: err.Error()}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		msg := err.Error()
		var timeout interface{ Timeout() bool }
		if errors.As(err, &timeout) && timeout.Timeout() {
			msg = "request timeout"
		}
		return Result{URL: url, Err: msg}
	}
	defer resp.Body.Close()

	return Result{
		URL:      url,
		Status:   resp.StatusCode,
		Location: resp.Header.Get("Location"),
		OK:       resp.StatusCode >= 200 && resp.StatusCode < 400,
	}
}

// CheckAll checks urls sequentially, pausing between requests so remote
// servers are not hammered. progress, if non-nil, is called after each
// URL. Cancelling ctx stops the run and returns what was checked.
func (c *Checker) CheckAll(ctx context.Context, urls []string, progress func(i int, r Result)) []Result {
	results := make([]Result, 0, len(urls))
	for i, u := range urls {
		if ctx.Err() != nil {
			break
		}
		res := c.Check(ctx, u)
		results = append(results, res)
		if !res.OK {
			appLog.Debug("link check failed", "url", u, "status", res.Status, "err", res.Err)
		}
		if progress != nil {
			progress(i, res)
		}
		if c.delay > 0 && i < len(urls)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(c.delay):
			}
		}
	}
	return results
}

// Summary buckets results.
type Summary struct {
	Working   []Result
	Redirects []Result
	Broken    []Result
}

func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.OK {
			s.Working = append(s.Working, r)
		} else {
			s.Broken = append(s.Broken, r)
		}
		if r.Redirect() {
			s.Redirects = append(s.Redirects, r)
		}
	}
	return s
}
