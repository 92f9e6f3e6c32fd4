package render

import (
	"regexp"
	"strings"

	"coloft/internal/dataset"
)

var (
	workshopRe = regexp.MustCompile(`(?i)retreats throughout \d{4}|\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) \d+-\d+|workshop|festival|camp northwest|\d+-day`)
)

// Indicator picks the title emoji for ev: the workshop marker for
// retreats, festivals and dated multi-day events, the recurring marker
// otherwise. Tags decide first; the name, schedule and description text
// are consulted when the tags say nothing about either.
func Indicator(ev dataset.Event) string {
	switch {
	case ev.HasTag("retreat") || ev.HasTag("festival"):
		return dataset.WorkshopIndicator
	case ev.HasTag("weekly") || ev.HasTag("monthly"):
		return dataset.RecurringIndicator
	}

	text := ev.Name + "\n" + ev.Schedule + "\n" + ev.Description
	if workshopRe.MatchString(text) {
		return dataset.WorkshopIndicator
	}
	return dataset.RecurringIndicator
}

// Title prefixes ev.Name with its indicator unless the name already
// carries one.
func Title(ev dataset.Event) string {
	if strings.Contains(ev.Name, dataset.RecurringIndicator) || strings.Contains(ev.Name, dataset.WorkshopIndicator) {
		return ev.Name
	}
	return Indicator(ev) + " " + ev.Name
}
