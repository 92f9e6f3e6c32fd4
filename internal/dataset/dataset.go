// Package dataset reads the regional events JSON file the calendar is
// generated from.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	appLog "coloft/internal/log"
)

// Tag taxonomy. Every event carries one or more event types and a
// frequency.
var (
	EventTypes  = []string{"dance", "connection", "retreat", "breathwork", "consciousness", "ritual", "festival", "music"}
	Frequencies = []string{"weekly", "monthly", "annual", "seasonal"}
)

// Title indicators shown before event names.
const (
	RecurringIndicator = "🔄"
	WorkshopIndicator  = "🎪"
)

// ErrNoRegions is returned when the document has no "regions" array.
var ErrNoRegions = errors.New(`dataset: JSON must contain a "regions" array`)

// Event is a single listing on the regional calendar. Schedule is free
// text ("Sundays 10 AM", "Aug 14-17, 2026").
type Event struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Schedule    string   `json:"schedule"`
	Venue       string   `json:"venue"`
	Price       string   `json:"price"`
	Tags        []string `json:"tags"`
	Description string   `json:"description,omitempty"`
}

func (e Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type Region struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	State  string  `json:"state"`
	Events []Event `json:"events"`
}

// Data is the whole regional events document.
type Data struct {
	Regions []Region `json:"regions"`
}

// Load reads and decodes the dataset at path on fsys.
func Load(fsys afero.Fs, path string) (*Data, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a dataset document.
func Parse(raw []byte) (*Data, error) {
	var probe struct {
		Regions json.RawMessage `json:"regions"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("dataset: parse: %w", err)
	}
	if len(probe.Regions) == 0 || probe.Regions[0] != '[' {
		return nil, ErrNoRegions
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("dataset: parse: %w", err)
	}
	appLog.Debug("dataset loaded", "regions", len(data.Regions), "events", data.TotalEvents())
	return &data, nil
}

func (d *Data) TotalEvents() int {
	n := 0
	for _, r := range d.Regions {
		n += len(r.Events)
	}
	return n
}

// RegionsInState keeps dataset order.
func (d *Data) RegionsInState(state string) []Region {
	out := make([]Region, 0)
	for _, r := range d.Regions {
		if r.State == state {
			out = append(out, r)
		}
	}
	return out
}
