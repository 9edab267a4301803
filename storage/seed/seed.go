// Package seed pre-populates the panel stores from a YAML fixtures file at start-up.
//
//	activities:
//	  - title: يوم رياضي
//	    category: رياضية
//	    date: 2024-09-01
//	    ...
//	exams:
//	  - subject: Math
//	    duration: 90
//
// Every entry goes through an editor session, so it is validated like any other submission.
package seed

import (
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/activity"
	"github.com/trezcool/madrasa/core/behavior"
	"github.com/trezcool/madrasa/core/crud"
	"github.com/trezcool/madrasa/core/exam"
	"github.com/trezcool/madrasa/core/schedule"
)

type (
	Entry map[string]interface{}

	File struct {
		Activities      []Entry `yaml:"activities"`
		BehaviorReports []Entry `yaml:"behavior_reports"`
		Exams           []Entry `yaml:"exams"`
		Schedules       []Entry `yaml:"schedules"`
	}

	Stores struct {
		Activities *activity.Store
		Behavior   *behavior.Store
		Exams      *exam.Store
		Schedules  *schedule.Store
	}

	// Rejection is an entry that could not be committed.
	Rejection struct {
		Panel string
		Index int // position in the panel's list
		Err   error
	}

	Report struct {
		Loaded   map[string]int // {panel: committed entries}
		Rejected []Rejection
	}
)

func Read(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return File{}, errors.Wrap(err, "decoding seed file")
	}
	return f, nil
}

func ReadFile(path string) (File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return File{}, errors.Wrap(err, "opening seed file")
	}
	defer fd.Close()
	return Read(fd)
}

// Load commits the entries of f into the stores, in file order.
// Invalid entries are skipped and reported; they never reach a store.
func Load(f File, stores Stores) Report {
	report := Report{Loaded: make(map[string]int)}
	if stores.Activities != nil {
		load(stores.Activities, f.Activities, &report)
	}
	if stores.Behavior != nil {
		load(stores.Behavior, f.BehaviorReports, &report)
	}
	if stores.Exams != nil {
		load(stores.Exams, f.Exams, &report)
	}
	if stores.Schedules != nil {
		load(stores.Schedules, f.Schedules, &report)
	}
	return report
}

func load[R crud.Record, P crud.Entity[R]](store *crud.Store[R, P], entries []Entry, report *Report) {
	panel := store.Schema().Name
	loaded := 0
	defer func() { report.Loaded[panel] = loaded }()

	var sess crud.Session[R, P]
	for i, entry := range entries {
		if err := fill(&sess, entry); err != nil {
			sess.Cancel()
			report.Rejected = append(report.Rejected, Rejection{Panel: panel, Index: i, Err: err})
			continue
		}
		if _, err := sess.Commit(store); err != nil {
			sess.Cancel()
			report.Rejected = append(report.Rejected, Rejection{Panel: panel, Index: i, Err: err})
			continue
		}
		loaded++
	}
}

// fill starts a draft and sets every field of entry, collecting the field errors.
func fill[R crud.Record, P crud.Entity[R]](sess *crud.Session[R, P], entry Entry) error {
	sess.BeginCreate()

	names := make([]string, 0, len(entry))
	for name := range entry {
		names = append(names, name)
	}
	sort.Strings(names)

	var fldErrs []core.FieldError
	for _, name := range names {
		if err := sess.SetField(name, entry[name]); err != nil {
			var vErr *core.ValidationError
			if errors.As(err, &vErr) {
				fldErrs = append(fldErrs, vErr.Fields...)
				continue
			}
			fldErrs = append(fldErrs, core.FieldError{Field: name, Error: err.Error()})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}
