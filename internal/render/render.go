// Package render turns the dataset and computed occurrence dates into
// HTML pages.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/samber/mo"

	"coloft/internal/dataset"
	"coloft/internal/recurrence"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Stylesheet is written to styles/styles.css next to the pages.
//
//go:embed static/styles.css
var Stylesheet []byte

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"join": strings.Join,
	"headData": func(title, siteTitle, root string) map[string]string {
		return map[string]string{"Title": title, "SiteTitle": siteTitle, "Root": root}
	},
}).ParseFS(templateFS, "templates/*.tmpl"))

// FormatDate renders d as "Jan 2, 2006".
func FormatDate(d recurrence.Date) string {
	return d.Time().Format("Jan 2, 2006")
}

// Chip is a filter toggle on the regional calendar.
type Chip struct {
	Filter   string
	Label    string
	Category string
}

type ChipGroup struct {
	Label string
	Chips []Chip
}

type EventView struct {
	Title       string
	URL         string
	Schedule    string
	Venue       string
	Price       string
	Description string
	// Tags are the event's tags plus region-<id>.
	Tags []string
}

type RegionView struct {
	ID     string
	Name   string
	Events []EventView
}

type StateSection struct {
	Label   string
	Color   string
	Regions []RegionView
}

// StateInfo labels a state section.
type StateInfo struct {
	ID    string
	Label string
	Color string
}

// RegionalPage is the model of regional-calendar.html.
type RegionalPage struct {
	SiteTitle   string
	States      []StateSection
	Filters     []ChipGroup
	GeneratedOn string
}

// NewRegionalPage groups d into state sections in the order given.
// Regions whose state is not listed are left out. Filter chips are built
// from what the data actually contains.
func NewRegionalPage(siteTitle string, d *dataset.Data, states []StateInfo, asOf recurrence.Date) RegionalPage {
	page := RegionalPage{SiteTitle: siteTitle, GeneratedOn: FormatDate(asOf)}

	var regionChips []Chip
	usedTags := make(map[string]bool)
	for _, st := range states {
		section := StateSection{Label: st.Label, Color: st.Color}
		for _, r := range d.RegionsInState(st.ID) {
			rv := RegionView{ID: r.ID, Name: r.Name}
			for _, ev := range r.Events {
				tags := append(append([]string{}, ev.Tags...), "region-"+r.ID)
				for _, t := range ev.Tags {
					usedTags[t] = true
				}
				rv.Events = append(rv.Events, EventView{
					Title:       Title(ev),
					URL:         ev.URL,
					Schedule:    ev.Schedule,
					Venue:       ev.Venue,
					Price:       ev.Price,
					Description: ev.Description,
					Tags:        tags,
				})
			}
			section.Regions = append(section.Regions, rv)
			regionChips = append(regionChips, Chip{Filter: "region-" + r.ID, Label: r.Name, Category: "region"})
		}
		page.States = append(page.States, section)
	}

	page.Filters = []ChipGroup{
		{Label: "📍 Regions", Chips: regionChips},
		{Label: "Event Type", Chips: tagChips(dataset.EventTypes, usedTags, "type")},
		{Label: "Frequency", Chips: tagChips(dataset.Frequencies, usedTags, "frequency")},
	}
	return page
}

func tagChips(taxonomy []string, used map[string]bool, category string) []Chip {
	chips := make([]Chip, 0, len(taxonomy))
	for _, t := range taxonomy {
		if used[t] {
			chips = append(chips, Chip{Filter: t, Label: strings.ToUpper(t[:1]) + t[1:], Category: category})
		}
	}
	return chips
}

// ScheduledView is one recurring event on the index page.
type ScheduledView struct {
	ID   string
	Name string
	Rule string
	// Next is empty when the horizon holds no occurrence; the template
	// then omits the "Next:" label.
	Next string
	Href string
}

type IndexPage struct {
	SiteTitle string
	Events    []ScheduledView
}

// EventPage is the model of events/<id>.html.
type EventPage struct {
	SiteTitle string
	ID        string
	Name      string
	Rule      string
	Dates     []string
}

// NewScheduledView formats the next occurrence of one event.
func NewScheduledView(e recurrence.Entry, next mo.Option[recurrence.Date]) ScheduledView {
	v := ScheduledView{
		ID:   e.ID,
		Name: e.Name,
		Rule: e.Rule.String(),
		Href: "events/" + e.ID + ".html",
	}
	if d, ok := next.Get(); ok {
		v.Next = FormatDate(d)
	}
	return v
}

func NewEventPage(siteTitle string, e recurrence.Entry, upcoming []recurrence.Date) EventPage {
	p := EventPage{SiteTitle: siteTitle, ID: e.ID, Name: e.Name, Rule: e.Rule.String()}
	for _, d := range upcoming {
		p.Dates = append(p.Dates, FormatDate(d))
	}
	return p
}

func RegionalCalendar(w io.Writer, page RegionalPage) error {
	return execute(w, "regional.html.tmpl", page)
}

func Index(w io.Writer, page IndexPage) error {
	return execute(w, "index.html.tmpl", page)
}

func Event(w io.Writer, page EventPage) error {
	return execute(w, "event.html.tmpl", page)
}

func execute(w io.Writer, name string, data any) error {
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render: %s: %w", name, err)
	}
	return nil
}
