package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ParseDateTime combines a DateLayout date and an optional ClockLayout time into a UTC time.
// ok is false if the date is missing or malformed; a malformed clock is ignored.
func ParseDateTime(date, clock string) (t time.Time, ok bool) {
	d, err := time.Parse(DateLayout, CleanString(date))
	if err != nil {
		return time.Time{}, false
	}
	if c, err := time.Parse(ClockLayout, CleanString(clock)); err == nil {
		d = d.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute)
	}
	return d, true
}

// Getwd tries to find the project root, the closest parent directory holding a go.mod.
// go-test changes the working directory to the test package being run during tests,
// so we fall back to the current working directory if none is found.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
