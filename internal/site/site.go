// Package site writes the static calendar pages to the output directory.
package site

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/samber/mo"
	"github.com/spf13/afero"

	"coloft/internal/config"
	"coloft/internal/dataset"
	appLog "coloft/internal/log"
	"coloft/internal/recurrence"
	"coloft/internal/render"
)

// Output file names, relative to the output directory.
const (
	RegionalFile   = "regional-calendar.html"
	IndexFile      = "index.html"
	StylesheetFile = "styles/styles.css"
	SitemapFile    = "sitemap.xml"
	EventsDir      = "events"
)

// Stats summarizes one build.
type Stats struct {
	Regions   int
	ByState   map[string]int
	Events    int
	Scheduled int
	Files     []string
}

// Builder renders every page for a given day. Build is safe to call from
// the refresh scheduler and the CLI at the same time.
type Builder struct {
	FS       afero.Fs
	Config   *config.Config
	Schedule *recurrence.Schedule

	mu sync.Mutex
}

func NewBuilder(fsys afero.Fs, cfg *config.Config, sched *recurrence.Schedule) *Builder {
	return &Builder{FS: fsys, Config: cfg, Schedule: sched}
}

// Build computes every scheduled event's dates as of asOf and writes the
// pages. A missing dataset skips the regional calendar; the index and
// event pages are still written.
func (b *Builder) Build(asOf recurrence.Date) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var st Stats
	out := b.Config.OutputDir

	data, err := dataset.Load(b.FS, b.Config.DataPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		appLog.Warn("dataset not found, skipping regional calendar", "path", b.Config.DataPath)
	case err != nil:
		return st, err
	default:
		var buf bytes.Buffer
		page := render.NewRegionalPage(b.Config.SiteTitle, data, b.states(), asOf)
		if err := render.RegionalCalendar(&buf, page); err != nil {
			return st, err
		}
		if err := b.write(&st, RegionalFile, buf.Bytes()); err != nil {
			return st, err
		}
		st.Regions = len(data.Regions)
		st.ByState = make(map[string]int, len(b.Config.States))
		for _, s := range b.Config.States {
			st.ByState[s.ID] = len(data.RegionsInState(s.ID))
		}
		st.Events = data.TotalEvents()
	}

	index := render.IndexPage{SiteTitle: b.Config.SiteTitle}
	for _, id := range b.Schedule.IDs() {
		entry, _ := b.Schedule.Entry(id)
		upcoming, err := b.Schedule.UpcomingOccurrences(id, asOf)
		if err != nil {
			return st, fmt.Errorf("site: event %q: %w", id, err)
		}
		next := mo.None[recurrence.Date]()
		if len(upcoming) > 0 {
			next = mo.Some(upcoming[0])
		}
		index.Events = append(index.Events, render.NewScheduledView(entry, next))

		var buf bytes.Buffer
		if err := render.Event(&buf, render.NewEventPage(b.Config.SiteTitle, entry, upcoming)); err != nil {
			return st, err
		}
		if err := b.write(&st, path.Join(EventsDir, id+".html"), buf.Bytes()); err != nil {
			return st, err
		}
		st.Scheduled++
	}

	var buf bytes.Buffer
	if err := render.Index(&buf, index); err != nil {
		return st, err
	}
	if err := b.write(&st, IndexFile, buf.Bytes()); err != nil {
		return st, err
	}
	if err := b.write(&st, StylesheetFile, render.Stylesheet); err != nil {
		return st, err
	}
	if b.Config.BaseURL != "" {
		sitemap, err := Sitemap(b.Config.BaseURL, st.Files, asOf)
		if err != nil {
			return st, err
		}
		if err := b.write(&st, SitemapFile, sitemap); err != nil {
			return st, err
		}
	}

	appLog.Info("site built",
		"as_of", asOf.String(),
		"output", out,
		"files", len(st.Files),
		"regions", st.Regions,
		"events", st.Events,
		"scheduled", st.Scheduled,
	)
	return st, nil
}

// Sitemap lists the HTML pages among files under baseURL, all modified
// on asOf.
func Sitemap(baseURL string, files []string, asOf recurrence.Date) ([]byte, error) {
	base := strings.TrimSuffix(baseURL, "/") + "/"

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	urlset := doc.CreateElement("urlset")
	urlset.CreateAttr("xmlns", "http://www.sitemaps.org/schemas/sitemap/0.9")

	for _, f := range files {
		if !strings.HasSuffix(f, ".html") {
			continue
		}
		u := urlset.CreateElement("url")
		u.CreateElement("loc").SetText(base + f)
		u.CreateElement("lastmod").SetText(asOf.String())
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("site: sitemap: %w", err)
	}
	return out, nil
}

func (b *Builder) states() []render.StateInfo {
	states := make([]render.StateInfo, 0, len(b.Config.States))
	for _, s := range b.Config.States {
		states = append(states, render.StateInfo{ID: s.ID, Label: s.Label, Color: s.Color})
	}
	return states
}

func (b *Builder) write(st *Stats, name string, data []byte) error {
	full := path.Join(b.Config.OutputDir, name)
	if err := b.FS.MkdirAll(path.Dir(full), 0o755); err != nil {
		return fmt.Errorf("site: mkdir for %s: %w", name, err)
	}
	if err := afero.WriteFile(b.FS, full, data, 0o644); err != nil {
		return fmt.Errorf("site: write %s: %w", name, err)
	}
	st.Files = append(st.Files, name)
	return nil
}
