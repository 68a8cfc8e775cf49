package util

import (
    "strconv"
    "strings"
)

// ParseFloat accepts plain numbers and provider formats like "1,250,000", "8.5%" or "2.2M".
func ParseFloat(s string) (float64, bool) {
    v := strings.TrimSpace(s)
    v = strings.TrimSuffix(v, "%")
    v = strings.ReplaceAll(v, ",", "")
    v = strings.TrimPrefix(v, "$")
    if v == "" {
        return 0, false
    }
    mult := 1.0
    switch v[len(v)-1] {
    case 'K', 'k':
        mult = 1e3
    case 'M', 'm':
        mult = 1e6
    case 'B', 'b':
        mult = 1e9
    }
    if mult != 1 {
        v = v[:len(v)-1]
    }
    f, err := strconv.ParseFloat(v, 64)
    if err != nil {
        return 0, false
    }
    return f * mult, true
}

// SplitList splits a comma separated list, trimming blanks.
func SplitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
