package activity

import (
	"errors"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const dateOnly = "2006-01-02"

var errUnrecognisedDate = errors.New("expected YYYY-MM-DD, an RFC 3339 timestamp, or a relative date such as \"yesterday\"")

// DateParser resolves feed date filters in a fixed report time zone.
type DateParser struct {
	loc *time.Location
	w   *when.Parser
}

// NewDateParser creates a parser for loc. A nil loc means UTC.
func NewDateParser(loc *time.Location) *DateParser {
	if loc == nil {
		loc = time.UTC
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &DateParser{loc: loc, w: w}
}

// Parse resolves value relative to now. Calendar dates and relative
// expressions snap to the start of their day, or to the last nanosecond of
// it when endOfDay is set. RFC 3339 timestamps are used as given.
func (p *DateParser) Parse(value string, now time.Time, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errUnrecognisedDate
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation(dateOnly, value, p.loc); err == nil {
		return p.snap(t, endOfDay), nil
	}

	r, err := p.w.Parse(value, now.In(p.loc))
	if err != nil || r == nil {
		return time.Time{}, errUnrecognisedDate
	}
	// Reject inputs where only a fragment was understood.
	if len(strings.TrimSpace(r.Text)) != len(value) {
		return time.Time{}, errUnrecognisedDate
	}
	return p.snap(r.Time.In(p.loc), endOfDay), nil
}

func (p *DateParser) snap(t time.Time, endOfDay bool) time.Time {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
	if endOfDay {
		return start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return start
}
