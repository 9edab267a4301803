package crud

import (
	"errors"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/trezcool/madrasa/core"
)

var (
	ErrInactive      = errors.New("no draft in progress")
	ErrReadOnlyField = errors.New("field cannot be set")
)

// Mode tells what a Session is currently doing with its draft.
type Mode int

const (
	Idle Mode = iota
	Creating
	Editing
)

func (m Mode) String() string {
	switch m {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	default:
		return "idle"
	}
}

// Session holds the draft of the record being created or edited.
// The draft is never visible in a Store until Commit succeeds.
// The zero value is an idle Session.
type Session[R Record, P Entity[R]] struct {
	mode   Mode
	target string // id of the record being edited
	draft  R
}

func (s *Session[R, P]) Mode() Mode     { return s.mode }
func (s *Session[R, P]) Target() string { return s.target }
func (s *Session[R, P]) Draft() R       { return s.draft }

// BeginCreate resets the draft to an empty record.
func (s *Session[R, P]) BeginCreate() {
	var zero R
	s.mode = Creating
	s.target = ""
	s.draft = zero
}

// BeginEdit copies rec into the draft, remembering its identifier.
func (s *Session[R, P]) BeginEdit(rec R) {
	s.mode = Editing
	s.target = rec.RecordID()
	s.draft = rec
}

// Edit lets fn change the draft in place.
func (s *Session[R, P]) Edit(fn func(draft *R) error) error {
	if s.mode == Idle {
		return ErrInactive
	}
	return fn(&s.draft)
}

// SetField sets one draft field by its JSON name. Values are weakly typed: "90" sets an int field.
func (s *Session[R, P]) SetField(name string, value interface{}) error {
	if s.mode == Idle {
		return ErrInactive
	}
	if name == "id" {
		return ErrReadOnlyField
	}

	draft := s.draft
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       dateToStringHook,
		Result:           &draft,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}{name: value}); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: name, Error: "invalid value"})
	}
	s.draft = draft
	return nil
}

// Commit adds the draft to store (Creating) or replaces the edited record (Editing).
// On success the Session becomes idle; on failure it stays open with the draft intact.
func (s *Session[R, P]) Commit(store *Store[R, P]) (R, error) {
	var (
		rec R
		err error
	)
	switch s.mode {
	case Creating:
		rec, err = store.Add(s.draft)
	case Editing:
		rec, err = store.Update(s.target, s.draft)
	default:
		return rec, ErrInactive
	}
	if err != nil {
		return rec, err
	}
	s.Cancel()
	return rec, nil
}

// Cancel discards the draft unconditionally.
func (s *Session[R, P]) Cancel() {
	var zero R
	s.mode = Idle
	s.target = ""
	s.draft = zero
}

// dateToStringHook lets YAML/JSON timestamps fill DateLayout string fields.
func dateToStringHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if t, ok := data.(time.Time); ok && to.Kind() == reflect.String {
		return t.Format(core.DateLayout), nil
	}
	return data, nil
}
