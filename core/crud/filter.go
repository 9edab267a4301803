package crud

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/trezcool/madrasa/core"
)

// AllCategories is the category selector matching every record.
const AllCategories = "all"

// Filter narrows the visible records of a panel.
type Filter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
}

func (f *Filter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Category = core.CleanString(f.Category)
	if f.Category == "" {
		f.Category = AllCategories
	}
}

func (f Filter) IsEmpty() bool {
	return f.Search == "" && (f.Category == "" || f.Category == AllCategories)
}

// Matches reports whether rec is in the selected category and one of its searchable
// fields contains the search text, ignoring case. An empty search text matches everything.
func (f Filter) Matches(rec Record) bool {
	if f.Category != "" && f.Category != AllCategories && f.Category != rec.RecordCategory() {
		return false
	}
	if f.Search == "" {
		return true
	}
	folder := cases.Fold()
	needle := folder.String(f.Search)
	for _, fld := range rec.SearchText() {
		if strings.Contains(folder.String(fld), needle) {
			return true
		}
	}
	return false
}

// Apply returns the records matching f, in their original order. records is not modified.
func Apply[R Record](f Filter, records []R) []R {
	out := make([]R, 0, len(records))
	for _, rec := range records {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}
