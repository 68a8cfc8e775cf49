package normalizer

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/util"
)

// lookup returns the first present, non-nil value among the aliases.
func lookup(r models.RawRecord, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// number reads a numeric field. NaN and infinities count as missing.
func number(r models.RawRecord, keys ...string) (float64, bool) {
	f, ok := rawNumber(r, keys...)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawNumber(r models.RawRecord, keys ...string) (float64, bool) {
	v, ok := lookup(r, keys...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return util.ParseFloat(n)
	}
	return 0, false
}

func text(r models.RawRecord, keys ...string) (string, bool) {
	v, ok := lookup(r, keys...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func timestamp(r models.RawRecord, keys ...string) (time.Time, bool) {
	v, ok := lookup(r, keys...)
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return util.ParseTime(t)
	case float64:
		return epoch(int64(t))
	case int64:
		return epoch(t)
	case int:
		return epoch(int64(t))
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return epoch(n)
	}
	return time.Time{}, false
}

func epoch(n int64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	if n >= 1e12 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

func flag(r models.RawRecord, keys ...string) (bool, bool) {
	v, ok := lookup(r, keys...)
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	case float64:
		return b != 0, true
	}
	return false, false
}
