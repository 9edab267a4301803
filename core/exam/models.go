package exam

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/crud"
	"github.com/trezcool/madrasa/core/view"
)

const AltMode = view.ModeTimeline

// Schema has an open category set: exams are filtered by class name.
var Schema = crud.Schema{Name: "exams", IDPrefix: "exam"}

type Exam struct {
	ID        string `json:"id"`
	Subject   string `json:"subject" validate:"required"`
	ClassName string `json:"class_name" validate:"required"`
	Date      string `json:"date" validate:"required,date"`
	Time      string `json:"time" validate:"required,clock"`
	Duration  int    `json:"duration" validate:"required,gt=0"` // minutes
	Room      string `json:"room" validate:"required"`
}

func (e Exam) RecordID() string        { return e.ID }
func (e *Exam) SetRecordID(id string)  { e.ID = id }
func (e Exam) RecordCategory() string  { return e.ClassName }
func (e Exam) SearchText() []string    { return []string{e.Subject, e.ClassName, e.Room} }
func (e Exam) When() (time.Time, bool) { return core.ParseDateTime(e.Date, e.Time) }

// Ends returns the end of the exam, if it is dated.
func (e Exam) Ends() (time.Time, bool) {
	start, ok := e.When()
	if !ok {
		return time.Time{}, false
	}
	return start.Add(time.Duration(e.Duration) * time.Minute), true
}

func (e *Exam) Clean() {
	e.Subject = core.CleanString(e.Subject)
	e.ClassName = core.CleanString(e.ClassName)
	e.Date = core.CleanString(e.Date)
	e.Time = core.CleanString(e.Time)
	e.Room = core.CleanString(e.Room)
}

type (
	Store   = crud.Store[Exam, *Exam]
	Session = crud.Session[Exam, *Exam]
)

func NewStore(validate *validator.Validate) *Store {
	return crud.NewStore[Exam](Schema, validate)
}
