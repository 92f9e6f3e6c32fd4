// Package stale finds events whose schedules carry specific dates that
// need periodic updating (annual festivals, seasonal retreats).
package stale

import (
	"regexp"
	"strconv"
	"time"

	"coloft/internal/dataset"
	"coloft/internal/recurrence"
)

type Status string

const (
	StatusOutdated Status = "OUTDATED"
	StatusCurrent  Status = "CURRENT"
	StatusFuture   Status = "FUTURE"
	StatusNoYear   Status = "NO YEAR"
)

var (
	yearRe  = regexp.MustCompile(`\b(20\d{2})\b`)
	monthRe = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\b`)
)

// Item is one event flagged for review.
type Item struct {
	Region   string
	Name     string
	Schedule string
	URL      string
	// Year is 0 when the schedule names no year.
	Year     int
	HasMonth bool
	Status   Status
}

// Report groups flagged events.
type Report struct {
	AsOf     recurrence.Date
	Annual   []Item
	Seasonal []Item
	// SpecificDates are weekly/monthly events whose schedule names a month
	// or year; a pattern like "Sundays" is usually what was meant.
	SpecificDates []Item
	NextCheck     recurrence.Date
}

// NeedingUpdates counts annual and seasonal events.
func (r Report) NeedingUpdates() int {
	return len(r.Annual) + len(r.Seasonal)
}

// Check classifies every event in d relative to asOf.
func Check(d *dataset.Data, asOf recurrence.Date) Report {
	rep := Report{AsOf: asOf, NextCheck: NextQuarter(asOf)}

	for _, region := range d.Regions {
		for _, ev := range region.Events {
			item := Item{
				Region:   region.Name,
				Name:     ev.Name,
				Schedule: ev.Schedule,
				URL:      ev.URL,
				HasMonth: monthRe.MatchString(ev.Schedule),
			}
			if m := yearRe.FindStringSubmatch(ev.Schedule); m != nil {
				item.Year, _ = strconv.Atoi(m[1])
			}
			item.Status = status(item.Year, asOf.Year)

			switch {
			case ev.HasTag("annual") || ev.HasTag("festival"):
				rep.Annual = append(rep.Annual, item)
			case ev.HasTag("seasonal"):
				rep.Seasonal = append(rep.Seasonal, item)
			case item.HasMonth || item.Year != 0:
				rep.SpecificDates = append(rep.SpecificDates, item)
			}
		}
	}
	return rep
}

func status(year, current int) Status {
	switch {
	case year == 0:
		return StatusNoYear
	case year < current:
		return StatusOutdated
	case year == current:
		return StatusCurrent
	default:
		return StatusFuture
	}
}

// NextQuarter returns the next of Jan 1, Apr 1, Jul 1 or Oct 1 strictly
// after asOf.
func NextQuarter(asOf recurrence.Date) recurrence.Date {
	q := (int(asOf.Month)-1)/3*3 + 1
	start := recurrence.NewDate(asOf.Year, time.Month(q), 1)
	return start.AddMonths(3)
}
