package activity

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/crud"
	"github.com/trezcool/madrasa/core/view"
)

// Categories
const (
	CategorySports  = "رياضية"
	CategoryScience = "علمية"
	CategoryCulture = "ثقافية"
	CategoryArt     = "فنية"
	CategorySocial  = "اجتماعية"

	AltMode = view.ModeCalendar
)

var (
	Categories = []string{CategorySports, CategoryScience, CategoryCulture, CategoryArt, CategorySocial}

	Schema = crud.Schema{Name: "activities", IDPrefix: "act", Categories: Categories}
)

type Activity struct {
	ID          string `json:"id"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,oneof=رياضية علمية ثقافية فنية اجتماعية"`
	Date        string `json:"date" validate:"required,date"`
	Time        string `json:"time" validate:"required,clock"`
	Location    string `json:"location" validate:"required"`
}

func (a Activity) RecordID() string        { return a.ID }
func (a *Activity) SetRecordID(id string)  { a.ID = id }
func (a Activity) RecordCategory() string  { return a.Category }
func (a Activity) SearchText() []string    { return []string{a.Title, a.Description, a.Location} }
func (a Activity) When() (time.Time, bool) { return core.ParseDateTime(a.Date, a.Time) }

func (a *Activity) Clean() {
	a.Title = core.CleanString(a.Title)
	a.Description = core.CleanString(a.Description)
	a.Category = core.CleanString(a.Category)
	a.Date = core.CleanString(a.Date)
	a.Time = core.CleanString(a.Time)
	a.Location = core.CleanString(a.Location)
}

type (
	Store   = crud.Store[Activity, *Activity]
	Session = crud.Session[Activity, *Activity]
)

func NewStore(validate *validator.Validate) *Store {
	return crud.NewStore[Activity](Schema, validate)
}
