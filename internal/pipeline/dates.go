package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical YYYY/MM/DD form of every date field.
const DateLayout = "2006/01/02"

const isoDayOnly = "2006-01-02"

// Spreadsheet serial 25569 is 1970-01-01.
const excelUnixEpochSerial = 25569

var (
	reSerial  = regexp.MustCompile(`^\d+(\.\d+)?$`)
	unixEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	dateSplit = strings.NewReplacer(".", "-", "/", "-")
)

var fallbackDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// NormalizeDate converts a date cell to YYYY/MM/DD. Bare numbers are
// spreadsheet serials with the time of day dropped; D/M/Y and Y/M/D with
// "/", "-" or "." are recognised. Text that cannot be read as a date is
// returned trimmed.
func NormalizeDate(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	if reSerial.MatchString(s) {
		if serial, err := decimal.NewFromString(s); err == nil {
			days := int(serial.Floor().IntPart())
			return unixEpoch.AddDate(0, 0, days-excelUnixEpochSerial).Format(DateLayout)
		}
	}

	parts := strings.Split(dateSplit.Replace(s), "-")
	if len(parts) == 3 {
		for i, p := range parts {
			if len(p) == 1 {
				parts[i] = "0" + p
			}
		}
		var year, month, day string
		switch {
		case len(parts[0]) == 4:
			year, month, day = parts[0], parts[1], parts[2]
		case len(parts[2]) == 4:
			day, month, year = parts[0], parts[1], parts[2]
		}
		if year != "" {
			if t, err := time.Parse(isoDayOnly, year+"-"+month+"-"+day); err == nil {
				return t.Format(DateLayout)
			}
		}
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout)
		}
	}
	return s
}

// ParseDate reads a value already in DateLayout.
func ParseDate(value string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
