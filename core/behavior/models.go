package behavior

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/crud"
	"github.com/trezcool/madrasa/core/view"
)

// Report types
const (
	TypePositive = "إيجابي"
	TypeNegative = "سلبي"

	AltMode = view.ModeSummary
)

var (
	Types = []string{TypePositive, TypeNegative}

	Schema = crud.Schema{Name: "behavior-reports", IDPrefix: "beh", Categories: Types}
)

// Report is a note about a student's behavior and the action taken.
type Report struct {
	ID          string `json:"id"`
	StudentName string `json:"student_name" validate:"required"`
	ClassName   string `json:"class_name" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=إيجابي سلبي"`
	Description string `json:"description" validate:"required"`
	Action      string `json:"action" validate:"required"`
	Date        string `json:"date" validate:"required,date"`
}

func (r Report) RecordID() string        { return r.ID }
func (r *Report) SetRecordID(id string)  { r.ID = id }
func (r Report) RecordCategory() string  { return r.Type }
func (r Report) SearchText() []string    { return []string{r.StudentName, r.Description, r.Action} }
func (r Report) When() (time.Time, bool) { return core.ParseDateTime(r.Date, "") }

func (r *Report) Clean() {
	r.StudentName = core.CleanString(r.StudentName)
	r.ClassName = core.CleanString(r.ClassName)
	r.Type = core.CleanString(r.Type)
	r.Description = core.CleanString(r.Description)
	r.Action = core.CleanString(r.Action)
	r.Date = core.CleanString(r.Date)
}

type (
	Store   = crud.Store[Report, *Report]
	Session = crud.Session[Report, *Report]
)

func NewStore(validate *validator.Validate) *Store {
	return crud.NewStore[Report](Schema, validate)
}
