package lockboxfile

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/shopspring/decimal"
)

// fieldDecoder converts the raw columns of one line into typed values
type fieldDecoder struct {
	line Line
	// columns holds the characters of the line; layouts count characters,
	// not bytes
	columns []rune
	// now anchors the two-digit year window
	now time.Time
}

// field returns the characters in [start, end)
func (d *fieldDecoder) field(start, end int) string {
	return string(d.columns[start:end])
}

// decodeLine classifies a line by its first character and decodes it. ok is
// false for a record type code that no decoder is registered for.
func decodeLine(ln Line, now time.Time) (rec Record, ok bool, err error) {
	if !utf8.ValidString(ln.Raw) {
		return nil, false, ierr.NewErrorf("line %d is not valid UTF-8", ln.Number).
			WithHintf("Line %d contains bytes that are not text", ln.Number).
			WithReportableDetails(map[string]any{
				"line":    ln.Number,
				"content": strings.ToValidUTF8(ln.Raw, "\uFFFD"),
			}).
			Mark(ierr.ErrDecode)
	}

	columns := []rune(ln.Raw)
	if len(columns) != LineWidth {
		return nil, false, ierr.NewErrorf("line %d is %d characters long, expected %d", ln.Number, len(columns), LineWidth).
			WithHintf("Every lockbox line must be exactly %d characters", LineWidth).
			WithReportableDetails(map[string]any{
				"line":     ln.Number,
				"content":  ln.Raw,
				"length":   len(columns),
				"expected": LineWidth,
			}).
			Mark(ierr.ErrStructure)
	}

	decode, ok := decoders[RecordType(ln.Raw[0])]
	if !ok {
		return nil, false, nil
	}

	d := &fieldDecoder{line: ln, columns: columns, now: now}
	rec, err = decode(d)
	if err != nil {
		return nil, true, err
	}
	return rec, true, nil
}

func (d *fieldDecoder) text(raw string) string {
	return strings.TrimSpace(raw)
}

// strippedText drops a leading run of zeros; an all-zero value becomes ""
func (d *fieldDecoder) strippedText(raw string) string {
	return strings.TrimLeft(strings.TrimSpace(raw), "0")
}

func (d *fieldDecoder) date(field, raw string) (time.Time, error) {
	if len(raw) != 6 || !isDigits(raw) {
		return time.Time{}, d.fieldError(field, raw, "a YYMMDD date")
	}
	return d.calendar(field, raw, raw[0:2], raw[2:4], raw[4:6], "00", "00")
}

func (d *fieldDecoder) dateTime(field, raw string) (time.Time, error) {
	if len(raw) != 10 || !isDigits(raw) {
		return time.Time{}, d.fieldError(field, raw, "a YYMMDDHHMM date-time")
	}
	return d.calendar(field, raw, raw[0:2], raw[2:4], raw[4:6], raw[6:8], raw[8:10])
}

func (d *fieldDecoder) calendar(field, raw, yy, mm, dd, hh, mi string) (time.Time, error) {
	month, day := atoi(mm), atoi(dd)
	hour, minute := atoi(hh), atoi(mi)
	year := resolveYear(atoi(yy), time.Month(month), day, d.now)

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values, so a round trip exposes them
	if t.Year() != year || int(t.Month()) != month || t.Day() != day || t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, d.fieldError(field, raw, "a valid calendar date")
	}
	return t, nil
}

// resolveYear places a two-digit year so the date falls in the hundred years
// starting on the day 80 years before now
func resolveYear(yy int, month time.Month, day int, now time.Time) int {
	start := time.Date(now.Year()-80, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	year := start.Year()/100*100 + yy
	if time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Before(start) {
		year += 100
	}
	return year
}

// amount reads an integer number of cents
func (d *fieldDecoder) amount(field, raw string) (decimal.Decimal, error) {
	digits := strings.TrimSpace(raw)
	if digits == "" || !isDigits(digits) {
		return decimal.Zero, d.fieldError(field, raw, "an amount in cents")
	}
	cents, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return decimal.Zero, d.fieldError(field, raw, "an amount in cents")
	}
	return decimal.New(cents, -2), nil
}

func (d *fieldDecoder) count(field, raw string) (int, error) {
	digits := strings.TrimSpace(raw)
	if digits == "" || !isDigits(digits) {
		return 0, d.fieldError(field, raw, "a count")
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, d.fieldError(field, raw, "a count")
	}
	return n, nil
}

func (d *fieldDecoder) fieldError(field, raw, expected string) error {
	recordType := RecordType(d.line.Raw[0])
	return ierr.NewErrorf("line %d: %s field %q of %s record is not %s", d.line.Number, field, raw, recordType, expected).
		WithHintf("Invalid %s on line %d", field, d.line.Number).
		WithReportableDetails(map[string]any{
			"line":        d.line.Number,
			"content":     d.line.Raw,
			"record_type": recordType.String(),
			"field":       field,
			"value":       raw,
		}).
		Mark(ierr.ErrDecode)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// atoi is only called on strings already checked by isDigits
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
