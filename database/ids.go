package database

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NormalizeID maps the shapes an ID can take on disk (JSON number, numeric
// string, padded string) onto one canonical decimal key.
func NormalizeID(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", false
		}
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return strconv.FormatUint(n, 10), true
		}
		return s, true
	case json.Number:
		if n, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return strconv.FormatUint(n, 10), true
		}
		f, err := v.Float64()
		if err != nil {
			return "", false
		}
		return NormalizeID(f)
	case float64:
		if v < 0 || v != math.Trunc(v) || v >= 1<<63 {
			return "", false
		}
		return strconv.FormatUint(uint64(v), 10), true
	case int:
		if v < 0 {
			return "", false
		}
		return strconv.Itoa(v), true
	case int64:
		if v < 0 {
			return "", false
		}
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	default:
		return "", false
	}
}

// encodeID writes numeric IDs back as JSON numbers, matching the files the
// bot has always produced.
func encodeID(id string) any {
	if _, err := strconv.ParseUint(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}

var closureLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseClosure accepts ISO-8601 timestamps with or without a zone (zoneless
// values are UTC) and Unix seconds.
func parseClosure(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range closureLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	case json.Number:
		secs, err := v.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
		}
		return time.Unix(secs, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unrecognised timestamp of type %T", raw)
	}
}

func formatClosure(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
