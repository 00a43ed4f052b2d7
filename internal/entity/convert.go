package entity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// Record is one converted source row.
type Record struct {
	// Row is the 1-based position in the source result set.
	Row int
	// Key is the encoded natural key.
	Key string
	// Values are aligned with the descriptor's Fields.
	Values       []any
	LastModified time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

var clockLayouts = []string{
	"15:04:05.999999999",
	"15:04",
}

// Convert turns a positional driver row into a Record.
// The row holds one value per field, optionally followed by lastmodified;
// a missing or NULL lastmodified defaults to now.
func Convert(d *Descriptor, row int, raw []any, now time.Time) (Record, error) {
	rec := Record{Row: row, LastModified: now}

	if len(raw) != len(d.Fields) && len(raw) != len(d.Fields)+1 {
		return rec, fmt.Errorf("%w: expected %d or %d columns, got %d",
			erpsync.ErrRowConversion, len(d.Fields), len(d.Fields)+1, len(raw))
	}

	rec.Values = make([]any, len(d.Fields))
	for i, f := range d.Fields {
		v, err := convertValue(f.Kind, raw[i])
		if err != nil {
			return rec, fmt.Errorf("%w: field %s: %w", erpsync.ErrRowConversion, f.Name, err)
		}
		if s, ok := v.(string); ok && s == "" && !d.IsKey(i) {
			v = nil
		}
		if (v == nil || v == "") && f.Required {
			return rec, fmt.Errorf("%w: field %s is required", erpsync.ErrRowConversion, f.Name)
		}
		rec.Values[i] = v
	}

	if len(raw) > len(d.Fields) {
		v, err := convertValue(KindTime, raw[len(d.Fields)])
		if err != nil {
			return rec, fmt.Errorf("%w: field %s: %w", erpsync.ErrRowConversion, erpsync.LastModifiedColumn, err)
		}
		if t, ok := v.(time.Time); ok {
			rec.LastModified = t
		}
	}

	rec.Key = d.KeyOf(rec.Values)
	return rec, nil
}

func convertValue(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch kind {
	case KindString:
		return toString(v)
	case KindNumber:
		return toNumber(v)
	case KindInteger:
		return toInteger(v)
	case KindBool:
		return toBool(v)
	case KindTime:
		return toTime(v)
	case KindDuration:
		return toDuration(v)
	case KindClock:
		return toClock(v)
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
}

func toString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(time.RFC3339), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to string", v)
	}
}

func toNumber(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		if !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", x)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to number", v)
	}
}

func toInteger(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, fmt.Errorf("%g is not an integer", x)
		}
		return int64(x), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := toNumber(s)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", x)
		}
		return toInteger(f)
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "":
			return nil, nil
		case "1", "true", "t", "yes", "y":
			return true, nil
		case "0", "false", "f", "no", "n":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", x)
	default:
		return nil, fmt.Errorf("cannot convert %T to bool", v)
	}
}

// toTime rounds to microseconds, the precision of PostgreSQL timestamps.
func toTime(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x.Round(time.Microsecond), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Round(time.Microsecond), nil
			}
		}
		return nil, fmt.Errorf("invalid time %q", x)
	default:
		return nil, fmt.Errorf("cannot convert %T to time", v)
	}
}

func toDuration(v any) (any, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case int64:
		return time.Duration(x) * time.Second, nil
	case int:
		return time.Duration(x) * time.Second, nil
	case float64:
		return time.Duration(x * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
		if d, ok := parseClockDuration(s); ok {
			return d, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q", x)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to duration", v)
	}
}

// parseClockDuration accepts "[D ]HH:MM[:SS[.fff]]".
func parseClockDuration(s string) (time.Duration, bool) {
	var days int64
	if before, after, ok := strings.Cut(s, " "); ok {
		n, err := strconv.ParseInt(before, 10, 64)
		if err != nil {
			return 0, false
		}
		days = n
		s = strings.TrimSpace(after)
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	m, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	var sec float64
	if len(parts) == 3 {
		sec, err = strconv.ParseFloat(parts[2], 64)
		if err != nil || sec < 0 || sec >= 60 {
			return 0, false
		}
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second))
	return d, true
}

func toClock(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x.Format("15:04:05"), nil
	case time.Duration:
		return formatClock(x), nil
	case int64:
		return formatClock(time.Duration(x) * time.Second), nil
	case float64:
		return formatClock(time.Duration(x * float64(time.Second))), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		for _, layout := range clockLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("15:04:05"), nil
			}
		}
		if t, err := toTime(s); err == nil {
			return t.(time.Time).Format("15:04:05"), nil
		}
		return nil, fmt.Errorf("invalid time of day %q", x)
	default:
		return nil, fmt.Errorf("cannot convert %T to time of day", v)
	}
}

func formatClock(d time.Duration) string {
	d = d % (24 * time.Hour)
	if d < 0 {
		d += 24 * time.Hour
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
