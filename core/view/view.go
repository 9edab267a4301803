// Package view lays out a panel's filtered records for display.
package view

import (
	"errors"
	"sort"
	"time"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/crud"
)

// Mode is a presentation layout.
type Mode string

const (
	ModeTable    Mode = "table"
	ModeCalendar Mode = "calendar"
	ModeSummary  Mode = "summary"
	ModeTimeline Mode = "timeline"
	ModeGrid     Mode = "grid"

	UnscheduledKey = "unscheduled"
)

var ErrUnsupportedMode = errors.New("unsupported view mode")

// Dated is implemented by records that can be placed on a calendar or a timeline.
type Dated interface {
	When() (time.Time, bool)
}

type (
	Group[R crud.Record] struct {
		Key     string `json:"key"`
		Count   int    `json:"count"`
		Records []R    `json:"records"`
	}

	CategoryCount struct {
		Category string `json:"category"`
		Count    int    `json:"count"`
	}

	// Layout is the same filtered record set, arranged for one Mode.
	Layout[R crud.Record] struct {
		Mode    Mode            `json:"mode"`
		Total   int             `json:"total"`
		Records []R             `json:"records,omitempty"` // table, timeline
		Groups  []Group[R]      `json:"groups,omitempty"`  // calendar, summary, grid
		Counts  []CategoryCount `json:"counts,omitempty"`  // summary
	}
)

// Resolve validates the requested mode for a panel whose alternate mode is alt.
// An empty request selects the table.
func Resolve(requested string, alt Mode) (Mode, error) {
	switch Mode(core.CleanString(requested, true /* lower */)) {
	case "", ModeTable:
		return ModeTable, nil
	case alt:
		return alt, nil
	}
	return "", ErrUnsupportedMode
}

// Render arranges records for mode. categories are the panel's known category values, if any.
func Render[R crud.Record](mode Mode, records []R, categories []string) (Layout[R], error) {
	layout := Layout[R]{Mode: mode, Total: len(records)}
	switch mode {
	case ModeTable:
		layout.Records = append(make([]R, 0, len(records)), records...)
	case ModeTimeline:
		layout.Records = timeline(records)
	case ModeCalendar:
		layout.Groups = calendar(records)
	case ModeSummary:
		layout.Counts, layout.Groups = summary(records, categories)
	case ModeGrid:
		layout.Groups = groupBy(records, nil, func(rec R) string { return rec.RecordCategory() })
	default:
		return Layout[R]{}, ErrUnsupportedMode
	}
	return layout, nil
}

func when(rec crud.Record) (time.Time, bool) {
	if d, ok := rec.(Dated); ok {
		return d.When()
	}
	return time.Time{}, false
}

// timeline sorts records chronologically; undated records come last, in their original order.
func timeline[R crud.Record](records []R) []R {
	out := append(make([]R, 0, len(records)), records...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, iok := when(out[i])
		tj, jok := when(out[j])
		if iok != jok {
			return iok
		}
		return iok && ti.Before(tj)
	})
	return out
}

// calendar groups records by day, days ascending, followed by the unscheduled ones.
func calendar[R crud.Record](records []R) []Group[R] {
	days := make([]string, 0)
	seen := make(map[string]bool)
	for _, rec := range records {
		if t, ok := when(rec); ok {
			day := t.Format(core.DateLayout)
			if !seen[day] {
				seen[day] = true
				days = append(days, day)
			}
		}
	}
	sort.Strings(days)
	days = append(days, UnscheduledKey)

	return groupBy(records, days, func(rec R) string {
		if t, ok := when(rec); ok {
			return t.Format(core.DateLayout)
		}
		return UnscheduledKey
	})
}

// summary counts records per known category (zero counts included), then per unknown value.
func summary[R crud.Record](records []R, categories []string) ([]CategoryCount, []Group[R]) {
	groups := groupBy(records, categories, func(rec R) string { return rec.RecordCategory() })
	byKey := make(map[string]int, len(groups))
	for _, g := range groups {
		byKey[g.Key] = g.Count
	}

	counts := make([]CategoryCount, 0, len(categories)+len(groups))
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c] = true
		counts = append(counts, CategoryCount{Category: c, Count: byKey[c]})
	}
	for _, g := range groups {
		if !known[g.Key] {
			counts = append(counts, CategoryCount{Category: g.Key, Count: g.Count})
		}
	}
	return counts, groups
}

// groupBy groups records by key, ordering groups as in order then by first appearance.
// Empty groups are dropped.
func groupBy[R crud.Record](records []R, order []string, key func(R) string) []Group[R] {
	keys := append([]string(nil), order...)
	buckets := make(map[string][]R)
	for _, rec := range records {
		k := key(rec)
		if _, ok := buckets[k]; !ok && !contains(order, k) {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], rec)
	}

	groups := make([]Group[R], 0, len(buckets))
	for _, k := range keys {
		if recs := buckets[k]; len(recs) > 0 {
			groups = append(groups, Group[R]{Key: k, Count: len(recs), Records: recs})
		}
	}
	return groups
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
