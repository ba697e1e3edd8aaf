package timeutil

import (
	"log"
	"time"
)

// Location is the warehouse-local zone used for "today" and report dates.
// Defaults to Indian Standard Time (UTC+5:30).
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if Asia/Kolkata not available
		Location = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// SetLocation switches the local zone. Unknown names keep the current zone.
func SetLocation(name string) {
	if name == "" {
		return
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[Time] Unknown timezone %q, keeping %s", name, Location)
		return
	}
	Location = loc
}

// Now returns the current time in the local zone
func Now() time.Time {
	return time.Now().In(Location)
}

// ParseDate parses a YYYY-MM-DD string in the local zone
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, Location)
}

// StartOfDay returns 00:00:00 of t's day in the local zone
func StartOfDay(t time.Time) time.Time {
	l := t.In(Location)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Location)
}

// FormatDate formats t as YYYY-MM-DD in the local zone
func FormatDate(t time.Time) string {
	return t.In(Location).Format(DateLayout)
}

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
