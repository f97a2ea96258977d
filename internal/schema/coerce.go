package schema

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// CoerceError reports a cell that cannot be converted to its column type.
// Row is the 0-based data row (the CSV line is Row+2).
type CoerceError struct {
	Row    int
	Column string
	Value  string
	Type   ColumnType
	Err    error
}

func (e *CoerceError) Error() string {
	return fmt.Sprintf("schema: row %d column %q: cannot convert %q to %s: %v",
		e.Row, e.Column, e.Value, e.Type, e.Err)
}

func (e *CoerceError) Unwrap() error { return e.Err }

var (
	ErrInvalidDate   = errors.New("unrecognised date")
	ErrOutOfRange    = errors.New("value out of range")
	ErrNotIntegral   = errors.New("not an integer")
	ErrInvalidNumber = errors.New("invalid number")
	ErrInvalidBool   = errors.New("invalid boolean")
)

// DateLayouts are tried in order when parsing DATE cells. ISO dates come
// first; day-first forms follow the Dutch convention used by DUO exports.
var DateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2006/01/02",
	"20060102",
}

// Coerce converts a non-NULL cell to the Go value written for type t:
//
//	Text    string
//	Integer int32
//	BigInt  int64
//	Numeric pgtype.Numeric
//	Double  float64
//	Boolean bool
//	Date    time.Time (midnight UTC)
func Coerce(s string, t ColumnType) (any, error) {
	switch t {
	case Integer:
		n, err := parseInt(s, 32)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case BigInt:
		return parseInt(s, 64)
	case Numeric:
		return parseNumeric(s)
	case Double:
		f, err := parseFloat(s)
		if err != nil {
			return nil, err
		}
		return f, nil
	case Boolean:
		return parseBool(s)
	case Date:
		return ParseDate(s)
	default:
		return s, nil
	}
}

// parseInt accepts plain integers and integral floats such as "12.0", which
// show up when an integer column passed through a float-typed export.
func parseInt(s string, bits int) (int64, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, bits)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrOutOfRange
	}
	f, ferr := parseFloat(s)
	if ferr != nil {
		return 0, ErrNotIntegral
	}
	if f != math.Trunc(f) {
		return 0, ErrNotIntegral
	}
	lim := math.Ldexp(1, bits-1)
	if f < -lim || f >= lim {
		return 0, ErrOutOfRange
	}
	return int64(f), nil
}

// parseFloat accepts plain decimal and exponent notation only. Go literal
// forms that ParseFloat would also take (hex mantissas, '_' separators) are
// text to a CSV reader and to Postgres.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, '_') {
		return 0, ErrInvalidNumber
	}
	if u := strings.TrimLeft(s, "+-"); strings.HasPrefix(u, "0x") || strings.HasPrefix(u, "0X") {
		return 0, ErrInvalidNumber
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ErrOutOfRange
		}
		return 0, ErrInvalidNumber
	}
	return f, nil
}

// numericRE matches what Postgres accepts as a finite NUMERIC literal.
var numericRE = regexp.MustCompile(`^([+-]?)(\d*)(?:\.(\d*))?(?:[eE]([+-]?\d+))?$`)

// parseNumeric converts a decimal literal, optionally with an exponent, to an
// exact pgtype.Numeric: "1.2345678E7" becomes 12345678, "-2.5e-1" becomes
// -25 * 10^-2.
func parseNumeric(s string) (pgtype.Numeric, error) {
	s = strings.TrimSpace(s)
	m := numericRE.FindStringSubmatch(s)
	if m == nil || m[2]+m[3] == "" {
		return pgtype.Numeric{}, fmt.Errorf("%w: %q is not a number", ErrInvalidNumber, s)
	}
	sign, whole, frac, expPart := m[1], m[2], m[3], m[4]

	digits, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return pgtype.Numeric{}, fmt.Errorf("%w: %q is not a number", ErrInvalidNumber, s)
	}
	if sign == "-" {
		digits.Neg(digits)
	}

	exp := -int64(len(frac))
	if expPart != "" {
		e, err := strconv.ParseInt(expPart, 10, 32)
		if err != nil {
			return pgtype.Numeric{}, ErrOutOfRange
		}
		exp += e
	}
	if exp < math.MinInt32 || exp > math.MaxInt32 {
		return pgtype.Numeric{}, ErrOutOfRange
	}
	return pgtype.Numeric{Int: digits, Exp: int32(exp), Valid: true}, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1", "ja", "j":
		return true, nil
	case "false", "f", "no", "n", "0", "nee":
		return false, nil
	}
	return false, ErrInvalidBool
}

// ParseDate parses s with DateLayouts and returns the calendar date at
// midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, ErrInvalidDate
}

// Infer picks a type for a column without a declared one. Only non-NULL
// cells vote: all integers give BigInt, all numbers Double, all "true"/"false"
// Boolean. Anything else, including an all-NULL column, is Text.
func Infer(values []*string) ColumnType {
	var seen bool
	allInt, allFloat, allBool := true, true, true
	for _, v := range values {
		if v == nil {
			continue
		}
		seen = true
		s := strings.TrimSpace(*v)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := parseFloat(s); err != nil {
				allFloat = false
			}
		}
		if allBool {
			allBool = strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
		}
		if !allInt && !allFloat && !allBool {
			return Text
		}
	}
	switch {
	case !seen:
		return Text
	case allInt:
		return BigInt
	case allFloat:
		return Double
	case allBool:
		return Boolean
	}
	return Text
}
