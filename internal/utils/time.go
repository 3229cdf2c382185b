
package utils

import (
	"strings"
	"time"

	_ "time/tzdata"

	"github.com/go-universal/jalaali"
)

const (
	CalendarGregorian = "gregorian"
	CalendarJalali    = "jalali"
)

// TehranLoc returns the Tehran time zone location.
func TehranLoc() *time.Location {
	return jalaali.TehranTz()
}

// JalaliDateTime returns a string like "1404/10/09 - 16:40" in loc.
func JalaliDateTime(t time.Time, loc *time.Location) string {
	j := jalaali.New(t.In(loc))
	return j.Format("2006/01/02 - 15:04")
}

// Clock formats timestamps shown to admins (stats, backup captions).
type Clock struct {
	Calendar string
	Loc      *time.Location
}

// NewClock resolves tz ("" means UTC, "Asia/Tehran" uses the jalaali zone).
func NewClock(calendar, tz string) (Clock, error) {
	c := Clock{Calendar: strings.ToLower(calendar), Loc: time.UTC}
	if c.Calendar == "" {
		c.Calendar = CalendarGregorian
	}
	switch tz {
	case "", "UTC":
	case "Asia/Tehran":
		c.Loc = TehranLoc()
	default:
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Clock{}, err
		}
		c.Loc = loc
	}
	return c, nil
}

func (c Clock) location() *time.Location {
	if c.Loc == nil {
		return time.UTC
	}
	return c.Loc
}

func (c Clock) Format(t time.Time) string {
	if c.Calendar == CalendarJalali {
		return ToPersianDigits(JalaliDateTime(t, c.location()))
	}
	return t.In(c.location()).Format("2006/01/02 - 15:04")
}

// FileStamp is a sortable, filesystem-safe timestamp for backup names.
func (c Clock) FileStamp(t time.Time) string {
	return t.In(c.location()).Format("20060102-150405")
}
