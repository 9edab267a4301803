// Package crud holds the in-memory record list shared by every dashboard panel:
// the Store itself, the EditorSession used to create or edit a draft, and the
// search/category Filter deriving the visible records.
package crud

type (
	// Record is a single panel entry (activity, behavior report, exam, schedule entry).
	Record interface {
		RecordID() string
		// RecordCategory returns the value of the field used as the category/class filter dimension.
		RecordCategory() string
		// SearchText returns the values of the searchable fields.
		SearchText() []string
	}

	// Entity constrains *R to a Record whose identifier can be assigned by a Store.
	Entity[R Record] interface {
		*R
		Record
		SetRecordID(id string)
	}

	// Cleaner is implemented by records normalizing their fields before validation.
	Cleaner interface {
		Clean()
	}

	// Schema describes one panel's record list.
	Schema struct {
		Name     string // e.g. "activities"
		IDPrefix string
		// Categories lists the known category values, in display order.
		// It is nil when the category dimension is an open set (e.g. class names).
		Categories []string
	}
)

// ChangeFunc is notified with a store's new size after each successful mutation.
type ChangeFunc func(schema Schema, size int)
