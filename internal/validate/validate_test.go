package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coloft/internal/dataset"
)

func messages(r *Report) []string {
	out := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		out = append(out, f.Message)
	}
	return out
}

func TestEvent_Clean(t *testing.T) {
	r := &Report{}
	Event(r, "Portland, OR", dataset.Event{
		Name:     "🔄 Ecstatic Dance",
		URL:      "https://example.org/ed",
		Schedule: "Sundays 10:30 AM",
		Venue:    "Hall",
		Price:    "$20",
		Tags:     []string{"dance", "weekly"},
	})
	assert.Empty(t, r.Findings)
}

func TestEvent_Problems(t *testing.T) {
	r := &Report{}
	Event(r, "Eugene, OR", dataset.Event{
		Name:        "Jam",
		URL:         "https://www.facebook.com/jam",
		Schedule:    "Sundays",
		Venue:       "Park",
		Tags:        []string{"dance", "dance", "weekly", "yoga"},
		Description: "see instagram.com/jam",
	})

	msgs := messages(r)
	assert.Contains(t, msgs, "missing required field: price")
	assert.Contains(t, msgs, "social media URL detected (prefer official websites)")
	assert.Contains(t, msgs, "duplicate tags found: dance, dance, weekly, yoga")
	assert.Contains(t, msgs, "recurring event missing 🔄 emoji")
	assert.Contains(t, msgs, "schedule missing time information")
	assert.Contains(t, msgs, "social media links in description (prefer email/newsletter/phone)")
	assert.True(t, r.HasErrors())

	assert.Contains(t, msgs, `invalid tag: "yoga". Valid tags: dance, connection, retreat, breathwork, consciousness, ritual, festival, music, weekly, monthly, annual, seasonal`)
}

func TestEvent_InvalidURLAndMissingTags(t *testing.T) {
	r := &Report{}
	Event(r, "X", dataset.Event{
		Name:     "🎪 Retreat",
		URL:      "not a url",
		Schedule: "Sep 4-7, 2026",
		Venue:    "Camp",
		Price:    "$500",
		Tags:     []string{"seasonal"},
	})
	msgs := messages(r)
	assert.Contains(t, msgs, "invalid URL: not a url")
	assert.Contains(t, msgs, "no event type tag (dance, connection, retreat, etc.)")
	assert.NotContains(t, msgs, "schedule missing time information")
}

func TestDataset(t *testing.T) {
	d := &dataset.Data{Regions: []dataset.Region{
		{Name: "Empty", Events: []dataset.Event{}},
		{Name: "Broken"},
		{Name: "Ok", Events: []dataset.Event{{
			Name: "🔄 Dance", URL: "https://example.org", Schedule: "Fridays 7 PM",
			Venue: "Hall", Price: "$10", Tags: []string{"dance", "weekly"},
		}}},
	}}

	r := Dataset(d)
	require.Len(t, r.Findings, 2)
	assert.Equal(t, SeverityWarning, r.Findings[0].Severity)
	assert.Equal(t, SeverityError, r.Findings[1].Severity)
	assert.Equal(t, 3, r.Regions)
	assert.Equal(t, 1, r.Events)
	assert.Equal(t, 1, r.Count(SeverityError))
	assert.Equal(t, "[Broken] : region must have an \"events\" array", r.Findings[1].String())
}
