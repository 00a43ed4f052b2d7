package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	keySeparator = "\x1f"
	keyNull      = "\x00"
	keyTime      = "2006-01-02T15:04:05.999999999"
)

// KeyOf encodes the natural key of a value vector aligned with Fields.
func (d *Descriptor) KeyOf(values []any) string {
	idx := d.KeyIndexes()
	parts := make([]any, len(idx))
	for i, j := range idx {
		parts[i] = values[j]
	}
	return EncodeKey(parts...)
}

// EncodeKey renders key values canonically. Source records and target
// snapshots use the same encoding, so equal column values give equal keys.
// Times are compared as UTC wall-clock at microsecond precision.
func EncodeKey(values ...any) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteString(keySeparator)
		}
		b.WriteString(encodeKeyValue(v))
	}
	return b.String()
}

func encodeKeyValue(v any) string {
	switch x := v.(type) {
	case nil:
		return keyNull
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Round(time.Microsecond).UTC().Format(keyTime)
	case time.Duration:
		return strconv.FormatFloat(x.Seconds(), 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// DisplayKey renders an encoded key for humans.
func DisplayKey(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, keySeparator, " | "), keyNull, "NULL")
}
