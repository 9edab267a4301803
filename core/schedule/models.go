package schedule

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/crud"
	"github.com/trezcool/madrasa/core/view"
)

const AltMode = view.ModeGrid

var Schema = crud.Schema{Name: "schedules", IDPrefix: "sch"}

// Entry is the timetable of one class. Its document is null until one is uploaded.
type Entry struct {
	ID           string      `json:"id"`
	ClassName    string      `json:"class_name" validate:"required"`
	Document     null.String `json:"document"` // blob key
	DocumentName null.String `json:"document_name"`
	ContentType  null.String `json:"content_type"`
	Size         null.Int64  `json:"size"`
	UploadedAt   null.Time   `json:"uploaded_at"`
}

func (e Entry) RecordID() string       { return e.ID }
func (e *Entry) SetRecordID(id string) { e.ID = id }
func (e Entry) RecordCategory() string { return e.ClassName }
func (e Entry) SearchText() []string   { return []string{e.ClassName} }

// Uploaded reports whether a document is attached; entries without one are shown as "not uploaded".
func (e Entry) Uploaded() bool { return e.Document.Valid && e.Document.String != "" }

func (e *Entry) Clean() {
	e.ClassName = core.CleanString(e.ClassName)
}

// clearDocument drops the document reference and its metadata.
func (e *Entry) clearDocument() {
	e.Document = null.String{}
	e.DocumentName = null.String{}
	e.ContentType = null.String{}
	e.Size = null.Int64{}
	e.UploadedAt = null.Time{}
}

// KeepDocument copies the document fields of orig into e.
// Documents only change through Attach and Detach.
func (e *Entry) KeepDocument(orig Entry) {
	e.Document = orig.Document
	e.DocumentName = orig.DocumentName
	e.ContentType = orig.ContentType
	e.Size = orig.Size
	e.UploadedAt = orig.UploadedAt
}

func (e Entry) MarshalJSON() ([]byte, error) {
	type entry Entry
	return json.Marshal(struct {
		entry
		Uploaded bool `json:"uploaded"`
	}{entry(e), e.Uploaded()})
}

type (
	Store   = crud.Store[Entry, *Entry]
	Session = crud.Session[Entry, *Entry]
)

func NewStore(validate *validator.Validate) *Store {
	return crud.NewStore[Entry](Schema, validate)
}
