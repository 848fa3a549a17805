package dualwrite

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one row of one entity type, keyed by column name. The local
// store assigns the integer id at creation; mirror rows carry the same id
// in their first column.
type Record map[string]any

// Filter is an exact, case-insensitive equality match over record fields.
type Filter map[string]any

// ID extracts the record identifier, tolerating the numeric types that
// JSON decoding and the two database drivers produce.
func (r Record) ID() (int64, bool) {
	raw, ok := r["id"]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Matches reports whether every filter field equals the record's value,
// comparing the string forms case-insensitively. Missing fields never match.
func (r Record) Matches(filter Filter) bool {
	for key, want := range filter {
		got, ok := r[key]
		if !ok {
			return false
		}
		if !strings.EqualFold(stringify(got), stringify(want)) {
			return false
		}
	}
	return true
}

// HasFields reports whether the record carries a non-empty value for every
// named field. Used to reject mirror rows whose shape lost a column the
// caller needs (e.g. a credential field).
func (r Record) HasFields(fields []string) bool {
	for _, field := range fields {
		value, ok := r[field]
		if !ok || value == nil {
			return false
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

// String returns the field as a string, empty when absent.
func (r Record) String(key string) string {
	value, ok := r[key]
	if !ok || value == nil {
		return ""
	}
	if s, isString := value.(string); isString {
		return s
	}
	return stringify(value)
}

// Bool folds the boolean encodings of both stores: Go bools, sqlite 0/1
// integers and spreadsheet TRUE/FALSE strings.
func (r Record) Bool(key string) bool {
	value, ok := r[key]
	if !ok || value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int64:
		return v != 0
	case int:
		return v != 0
	case string:
		return stringify(v) == "1"
	default:
		return false
	}
}

// Int64 returns the field as an integer across the numeric encodings
// the two stores produce.
func (r Record) Int64(key string) (int64, bool) {
	value, ok := r[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Time parses the field from the timestamp forms the stores emit.
func (r Record) Time(key string) (time.Time, bool) {
	value, ok := r[key]
	if !ok || value == nil {
		return time.Time{}, false
	}
	if t, isTime := value.(time.Time); isTime {
		return t, true
	}
	raw, isString := value.(string)
	if !isString {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		// Spreadsheet cells render booleans as TRUE/FALSE while sqlite
		// stores them as 0/1; fold both onto one form.
		if strings.EqualFold(t, "true") {
			return "1"
		}
		if strings.EqualFold(t, "false") {
			return "0"
		}
		return t
	case float64:
		// JSON numbers decode as float64; render integral values without
		// a trailing ".0" so they compare equal to db integers.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(t)
	}
}
