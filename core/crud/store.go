package crud

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("record not found")
)

// Store holds one panel's records in insertion order. It is safe for concurrent use.
//
// Records are only created through Add, changed through Update or Modify and destroyed
// through Remove. Identifiers are generated by the Store and never reused, even after deletion.
type Store[R Record, P Entity[R]] struct {
	schema   Schema
	validate *validator.Validate

	mu       sync.RWMutex
	records  []R
	index    map[string]int      // {id: position in records}
	issued   map[string]struct{} // every id ever handed out
	onChange ChangeFunc
}

func NewStore[R Record, P Entity[R]](schema Schema, validate *validator.Validate) *Store[R, P] {
	return &Store[R, P]{
		schema:   schema,
		validate: validate,
		index:    make(map[string]int),
		issued:   make(map[string]struct{}),
	}
}

func (s *Store[R, P]) Schema() Schema { return s.schema }

// OnChange registers fn to be called after every successful mutation.
func (s *Store[R, P]) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
	if fn != nil {
		fn(s.schema, len(s.records))
	}
}

// check cleans and validates rec. Returned errors are validator.ValidationErrors.
func (s *Store[R, P]) check(rec *R) error {
	if c, ok := any(P(rec)).(Cleaner); ok {
		c.Clean()
	}
	return s.validate.Struct(rec)
}

// nextID returns `<prefix>-<unix millis>`, bumping the timestamp until the id was never issued.
// Must be called with s.mu held.
func (s *Store[R, P]) nextID() string {
	ts := NowFunc().UnixNano() / int64(time.Millisecond)
	for {
		id := s.schema.IDPrefix + "-" + strconv.FormatInt(ts, 10)
		if _, used := s.issued[id]; !used {
			s.issued[id] = struct{}{}
			return id
		}
		ts++
	}
}

func (s *Store[R, P]) changed() {
	if s.onChange != nil {
		s.onChange(s.schema, len(s.records))
	}
}

// Add appends rec with a freshly generated identifier.
// The store is left untouched if a required field is missing.
func (s *Store[R, P]) Add(rec R) (R, error) {
	if err := s.check(&rec); err != nil {
		var zero R
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	P(&rec).SetRecordID(s.nextID())
	s.records = append(s.records, rec)
	s.index[rec.RecordID()] = len(s.records) - 1
	s.changed()
	return rec, nil
}

// Update replaces the record matching id with rec, keeping its identifier and position.
// The store is left untouched if id is absent or a required field is missing.
func (s *Store[R, P]) Update(id string, rec R) (R, error) {
	var zero R
	if err := s.check(&rec); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return zero, ErrNotFound
	}
	P(&rec).SetRecordID(id)
	s.records[i] = rec
	s.changed()
	return rec, nil
}

// Modify atomically applies fn to a copy of the record matching id and saves the result.
// The store is left untouched if id is absent, fn fails or the result is invalid.
func (s *Store[R, P]) Modify(id string, fn func(rec *R) error) (R, error) {
	var zero R

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return zero, ErrNotFound
	}
	rec := s.records[i]
	if err := fn(&rec); err != nil {
		return zero, err
	}
	if err := s.check(&rec); err != nil {
		return zero, err
	}
	P(&rec).SetRecordID(id)
	s.records[i] = rec
	s.changed()
	return rec, nil
}

// Remove deletes the record matching id; the remaining records keep their order.
func (s *Store[R, P]) Remove(id string) error {
	_, err := s.Pop(id)
	return err
}

// Pop deletes the record matching id and returns it.
func (s *Store[R, P]) Pop(id string) (R, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		var zero R
		return zero, ErrNotFound
	}
	rec := s.records[i]
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].RecordID()] = j
	}
	s.changed()
	return rec, nil
}

func (s *Store[R, P]) Get(id string) (R, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i, ok := s.index[id]; ok {
		return s.records[i], nil
	}
	var zero R
	return zero, ErrNotFound
}

// List returns a copy of the records in insertion order.
func (s *Store[R, P]) List() []R {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]R, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store[R, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
