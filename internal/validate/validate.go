// Package validate lints the regional events dataset: required fields,
// URLs, the tag taxonomy and a few formatting conventions.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"coloft/internal/dataset"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

var (
	requiredFields = []string{"name", "url", "schedule", "venue", "price", "tags"}

	timeRe = regexp.MustCompile(`\d{1,2}(:\d{2})?\s*(AM|PM|am|pm)`)
)

// Finding is one validation message.
type Finding struct {
	Severity Severity
	Region   string
	Event    string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Region, f.Event, f.Message)
}

// Report collects findings for a dataset.
type Report struct {
	Findings []Finding
	Regions  int
	Events   int
}

func (r *Report) HasErrors() bool {
	return r.Count(SeverityError) > 0
}

func (r *Report) Count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

func (r *Report) add(s Severity, region, event, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Severity: s,
		Region:   region,
		Event:    event,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Dataset validates every region and event of d.
func Dataset(d *dataset.Data) *Report {
	r := &Report{Regions: len(d.Regions)}
	for _, region := range d.Regions {
		name := region.Name
		if name == "" {
			name = "(unnamed region)"
		}
		if region.Events == nil {
			r.add(SeverityError, name, "", `region must have an "events" array`)
			continue
		}
		if len(region.Events) == 0 {
			r.add(SeverityWarning, name, "", "empty region (no events)")
		}
		for _, ev := range region.Events {
			Event(r, name, ev)
			r.Events++
		}
	}
	return r
}

// Event appends the findings for a single event to r.
func Event(r *Report, region string, ev dataset.Event) {
	name := ev.Name
	if name == "" {
		name = "(unnamed event)"
	}

	for _, field := range requiredFields {
		if fieldEmpty(ev, field) {
			r.add(SeverityError, region, name, "missing required field: %s", field)
		}
	}

	if ev.URL != "" {
		if u, err := url.Parse(ev.URL); err != nil || u.Scheme == "" || u.Host == "" {
			r.add(SeverityError, region, name, "invalid URL: %s", ev.URL)
		} else if isSocial(ev.URL) {
			r.add(SeverityWarning, region, name, "social media URL detected (prefer official websites)")
		}
	}

	if len(ev.Tags) > 0 {
		seen := make(map[string]bool, len(ev.Tags))
		dup := false
		for _, t := range ev.Tags {
			if seen[t] {
				dup = true
			}
			seen[t] = true
			if !contains(dataset.EventTypes, t) && !contains(dataset.Frequencies, t) {
				r.add(SeverityError, region, name, "invalid tag: %q. Valid tags: %s", t, strings.Join(validTags(), ", "))
			}
		}
		if dup {
			r.add(SeverityError, region, name, "duplicate tags found: %s", strings.Join(ev.Tags, ", "))
		}
		if !anyOf(ev.Tags, dataset.EventTypes) {
			r.add(SeverityWarning, region, name, "no event type tag (dance, connection, retreat, etc.)")
		}
		if !anyOf(ev.Tags, dataset.Frequencies) {
			r.add(SeverityWarning, region, name, "no frequency tag (weekly, monthly, annual, seasonal)")
		}
	}

	if ev.Name != "" {
		recurring := ev.HasTag("weekly") || ev.HasTag("monthly")
		workshop := ev.HasTag("retreat") || ev.HasTag("festival")
		if recurring && !strings.Contains(ev.Name, dataset.RecurringIndicator) {
			r.add(SeverityWarning, region, name, "recurring event missing %s emoji", dataset.RecurringIndicator)
		}
		if workshop && !strings.Contains(ev.Name, dataset.WorkshopIndicator) {
			r.add(SeverityWarning, region, name, "workshop/retreat/festival missing %s emoji", dataset.WorkshopIndicator)
		}
	}

	if ev.Schedule != "" && !timeRe.MatchString(ev.Schedule) && !ev.HasTag("annual") && !ev.HasTag("seasonal") {
		r.add(SeverityWarning, region, name, "schedule missing time information")
	}

	if ev.Description != "" && isSocial(ev.Description) {
		r.add(SeverityWarning, region, name, "social media links in description (prefer email/newsletter/phone)")
	}
}

func fieldEmpty(ev dataset.Event, field string) bool {
	switch field {
	case "name":
		return ev.Name == ""
	case "url":
		return ev.URL == ""
	case "schedule":
		return ev.Schedule == ""
	case "venue":
		return ev.Venue == ""
	case "price":
		return ev.Price == ""
	case "tags":
		return ev.Tags == nil
	}
	return false
}

func isSocial(s string) bool {
	return strings.Contains(s, "facebook.com") || strings.Contains(s, "instagram.com")
}

func validTags() []string {
	return append(append([]string{}, dataset.EventTypes...), dataset.Frequencies...)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func anyOf(tags, list []string) bool {
	for _, t := range tags {
		if contains(list, t) {
			return true
		}
	}
	return false
}
