package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Clock is a time of day on the studio calendar. Orders arrive with a
// display string like "10:00 AM"; it is parsed once at ingestion and the
// Clock is what every downstream computation uses. The raw string is kept
// only for rendering.
type Clock struct {
	Hour   int // 0-23
	Minute int // 0-59
}

var ErrUnparseableTime = errors.New("unparseable time of day")

// ParseClock parses "H[:MM] [AM|PM]" case-insensitively; the space before
// the marker is optional because source data is inconsistent about it
// ("8am", "8:30 AM", "10:00pm" are all seen). 12 AM maps to hour 0 and
// 12 PM stays 12. Anything else is ErrUnparseableTime; callers exclude
// such appointments from the grid rather than failing the render.
func ParseClock(text string) (Clock, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" {
		return Clock{}, ErrUnparseableTime
	}

	var marker string
	switch {
	case strings.HasSuffix(s, "AM"):
		marker = "AM"
	case strings.HasSuffix(s, "PM"):
		marker = "PM"
	default:
		return Clock{}, ErrUnparseableTime
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, marker))
	if s == "" {
		return Clock{}, ErrUnparseableTime
	}

	hourPart, minutePart, hasMinute := strings.Cut(s, ":")
	hour, err := strconv.Atoi(strings.TrimSpace(hourPart))
	if err != nil || hour < 1 || hour > 12 {
		return Clock{}, ErrUnparseableTime
	}

	minute := 0
	if hasMinute {
		minute, err = strconv.Atoi(strings.TrimSpace(minutePart))
		if err != nil || minute < 0 || minute > 59 {
			return Clock{}, ErrUnparseableTime
		}
	}

	if marker == "AM" {
		if hour == 12 {
			hour = 0
		}
	} else if hour != 12 {
		hour += 12
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// Display renders the canonical form, e.g. "8:00 AM" or "2:30 PM".
// ParseClock(c.Display()) round-trips for every valid Clock.
func (c Clock) Display() string {
	marker := "AM"
	hour := c.Hour
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		marker = "PM"
	case hour > 12:
		hour -= 12
		marker = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, c.Minute, marker)
}

// Minutes is the clock as minutes after midnight, the unit the binder
// and position math work in.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) Before(o Clock) bool {
	return c.Minutes() < o.Minutes()
}
